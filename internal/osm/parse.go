package osm

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/twpayne/go-geom"
)

// ParsePlaces folds one tile's geometry fragments into canonical places,
// keyed by raw entity id. Layers are processed in canonical order, fragments
// in collection order, so the merge is deterministic for a given response.
//
// Fragments without an id property, or with a non-positive id, are skipped.
// Place ids are namespaced by the tile's quadkey so records from adjacent
// tiles describing the same real-world entity stay distinct documents.
func ParsePlaces(tv *TileVector, quadKey string) map[int64]*Place {
	places := make(map[int64]*Place)
	layers := tv.Layers()
	for i, layerName := range LayerOrder {
		fc := layers[i]
		if fc == nil {
			continue
		}
		for _, feature := range fc.Features {
			id, ok := fragmentID(feature.Properties)
			if !ok || id <= 0 {
				continue
			}
			place, exists := places[id]
			if !exists {
				place = &Place{
					ID:        fmt.Sprintf("%s-%d", quadKey, id),
					QuadKey:   quadKey,
					OSMID:     id,
					Type:      TypeNode,
					Layer:     layerName,
					CreatedAt: time.Now().UTC(),
				}
				places[id] = place
			}
			mergeProperties(place, feature.Properties, exists)
			mergeGeometry(place, feature.Geometry)
		}
	}
	return places
}

// mergeProperties applies a fragment's attributes to a place. On resight the
// existing attribute values take priority, with one exception: a later
// fragment carrying a real (non-generic) name renames the place.
func mergeProperties(place *Place, props map[string]interface{}, resight bool) {
	kind := stringProp(props, "kind")
	if kind == "" {
		kind = NoKind
	}
	name := stringProp(props, "name")
	if name == "" {
		name = kind
	}

	if !resight {
		place.Amenity = kind
		place.Name = name
	} else {
		if place.Amenity == NoKind && kind != NoKind {
			place.Amenity = kind
		}
		// A kind-equal name is a generic placeholder and never displaces a
		// name already on the record; a real name always does.
		if name != kind {
			place.Name = name
		}
	}

	// Upstream tile data carries addresses under addr_-prefixed keys; the
	// bare names are accepted too.
	mergeField(&place.Street, firstStringProp(props, "addr_street", "street"))
	mergeField(&place.Cuisine, stringProp(props, "cuisine"))
	mergeField(&place.Highway, stringProp(props, "highway"))
	mergeField(&place.Footway, stringProp(props, "footway"))
	mergeField(&place.HouseNumber, firstStringProp(props, "addr_housenumber", "housenumber"))
	mergeField(&place.Phone, stringProp(props, "phone"))
	mergeField(&place.Postcode, stringProp(props, "postcode"))
	mergeField(&place.City, stringProp(props, "city"))
	mergeNumber(&place.Height, numberProp(props, "height"))
	mergeNumber(&place.Volume, numberProp(props, "volume"))
}

// mergeGeometry applies a fragment's geometry. Linear or polygonal geometry
// promotes the place to a way and its lines are concatenated onto any
// existing way geometry, never replaced, so an entity split across fragments
// keeps every piece. A point only positions an entity that is still a bare
// node.
func mergeGeometry(place *Place, geometry geom.T) {
	switch g := geometry.(type) {
	case *geom.Point:
		if place.Type == TypeNode {
			place.Location = &GeoPoint{Lat: g.Y(), Lon: g.X()}
		}
	case *geom.LineString:
		promoteToWay(place)
		place.Geometry.Coordinates = append(place.Geometry.Coordinates, lineCoords(g.Coords()))
	case *geom.MultiLineString:
		promoteToWay(place)
		for i := 0; i < g.NumLineStrings(); i++ {
			place.Geometry.Coordinates = append(place.Geometry.Coordinates, lineCoords(g.LineString(i).Coords()))
		}
	case *geom.Polygon:
		promoteToWay(place)
		for i := 0; i < g.NumLinearRings(); i++ {
			place.Geometry.Coordinates = append(place.Geometry.Coordinates, lineCoords(g.LinearRing(i).Coords()))
		}
	case *geom.MultiPolygon:
		promoteToWay(place)
		for i := 0; i < g.NumPolygons(); i++ {
			poly := g.Polygon(i)
			for j := 0; j < poly.NumLinearRings(); j++ {
				place.Geometry.Coordinates = append(place.Geometry.Coordinates, lineCoords(poly.LinearRing(j).Coords()))
			}
		}
	}
}

func promoteToWay(place *Place) {
	place.Type = TypeWay
	if place.Geometry == nil {
		place.Geometry = NewMultiLine()
	}
}

func lineCoords(coords []geom.Coord) [][]float64 {
	line := make([][]float64, len(coords))
	for i, c := range coords {
		line[i] = []float64{c.X(), c.Y()}
	}
	return line
}

func mergeField(existing *string, incoming string) {
	if strings.TrimSpace(*existing) == "" && strings.TrimSpace(incoming) != "" {
		*existing = incoming
	}
}

func mergeNumber(existing *float64, incoming float64) {
	if *existing == 0 && incoming != 0 {
		*existing = incoming
	}
}

func stringProp(props map[string]interface{}, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

func firstStringProp(props map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v := stringProp(props, key); v != "" {
			return v
		}
	}
	return ""
}

func numberProp(props map[string]interface{}, key string) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// fragmentID extracts the numeric id property. GeoJSON properties decode
// numbers as float64, but string and json.Number ids are tolerated.
func fragmentID(props map[string]interface{}) (int64, bool) {
	raw, ok := props["id"]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return int64(v), true
	case json.Number:
		id, err := v.Int64()
		return id, err == nil
	case string:
		var id int64
		if _, err := fmt.Sscanf(v, "%d", &id); err != nil {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}
