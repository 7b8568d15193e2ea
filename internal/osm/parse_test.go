package osm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

func feature(props map[string]interface{}, geometry geom.T) *geojson.Feature {
	return &geojson.Feature{Properties: props, Geometry: geometry}
}

func point(lon, lat float64) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{lon, lat})
}

func line(coords ...float64) *geom.LineString {
	return geom.NewLineStringFlat(geom.XY, coords)
}

func collection(features ...*geojson.Feature) *geojson.FeatureCollection {
	return &geojson.FeatureCollection{Features: features}
}

func TestParsePlacesSkipsFragmentsWithoutValidID(t *testing.T) {
	tv := &TileVector{
		Pois: collection(
			feature(map[string]interface{}{"kind": "cafe"}, point(1, 2)),
			feature(map[string]interface{}{"id": float64(0), "kind": "cafe"}, point(1, 2)),
			feature(map[string]interface{}{"id": float64(-7), "kind": "cafe"}, point(1, 2)),
			feature(map[string]interface{}{"id": float64(42), "kind": "cafe"}, point(1, 2)),
		),
	}

	places := ParsePlaces(tv, "0320101101322020")
	require.Len(t, places, 1)
	assert.Contains(t, places, int64(42))
}

func TestParsePlacesCreatesNamespacedNode(t *testing.T) {
	tv := &TileVector{
		Pois: collection(feature(map[string]interface{}{
			"id":      float64(42),
			"kind":    "cafe",
			"name":    "Blue Bottle",
			"street":  "W 4th St",
			"cuisine": "coffee",
		}, point(-74.0010, 40.7367))),
	}

	places := ParsePlaces(tv, "0320101101322020")
	require.Len(t, places, 1)

	place := places[42]
	assert.Equal(t, "0320101101322020-42", place.ID)
	assert.Equal(t, "0320101101322020", place.QuadKey)
	assert.Equal(t, int64(42), place.OSMID)
	assert.Equal(t, TypeNode, place.Type)
	assert.Equal(t, "pois", place.Layer)
	assert.Equal(t, "cafe", place.Amenity)
	assert.Equal(t, "Blue Bottle", place.Name)
	assert.Equal(t, "W 4th St", place.Street)
	assert.Equal(t, "coffee", place.Cuisine)
	require.NotNil(t, place.Location)
	assert.InDelta(t, 40.7367, place.Location.Lat, 1e-9)
	assert.InDelta(t, -74.0010, place.Location.Lon, 1e-9)
	assert.False(t, place.CreatedAt.IsZero())
}

func TestParsePlacesKindFallsBackToNone(t *testing.T) {
	tv := &TileVector{
		Pois: collection(feature(map[string]interface{}{"id": float64(7)}, point(1, 2))),
	}

	places := ParsePlaces(tv, "qk")
	place := places[7]
	assert.Equal(t, NoKind, place.Amenity)
	assert.Equal(t, NoKind, place.Name)
}

func TestParsePlacesAmenityIsSticky(t *testing.T) {
	tv := &TileVector{
		Landuse: collection(feature(map[string]interface{}{"id": float64(9), "kind": "park"}, point(1, 2))),
		Pois:    collection(feature(map[string]interface{}{"id": float64(9), "kind": "playground"}, point(1, 2))),
	}

	places := ParsePlaces(tv, "qk")
	assert.Equal(t, "park", places[9].Amenity, "first non-none kind wins")
	assert.Equal(t, "landuse", places[9].Layer, "originating layer is kept")
}

func TestParsePlacesAmenityFillsInAfterNone(t *testing.T) {
	tv := &TileVector{
		Landuse: collection(feature(map[string]interface{}{"id": float64(9)}, point(1, 2))),
		Pois:    collection(feature(map[string]interface{}{"id": float64(9), "kind": "cafe"}, point(1, 2))),
	}

	places := ParsePlaces(tv, "qk")
	assert.Equal(t, "cafe", places[9].Amenity)
}

func TestParsePlacesGenericNameNeverDisplacesRealName(t *testing.T) {
	tv := &TileVector{
		Pois: collection(
			feature(map[string]interface{}{"id": float64(5), "kind": "cafe", "name": "Joe's"}, point(1, 2)),
			feature(map[string]interface{}{"id": float64(5), "kind": "cafe"}, point(1, 2)),
		),
	}

	places := ParsePlaces(tv, "qk")
	assert.Equal(t, "Joe's", places[5].Name)
}

func TestParsePlacesRealNameReplacesGenericName(t *testing.T) {
	tv := &TileVector{
		Landuse: collection(feature(map[string]interface{}{"id": float64(5), "kind": "cafe"}, point(1, 2))),
		Pois:    collection(feature(map[string]interface{}{"id": float64(5), "kind": "cafe", "name": "Joe's"}, point(1, 2))),
	}

	places := ParsePlaces(tv, "qk")
	assert.Equal(t, "Joe's", places[5].Name)
}

func TestParsePlacesLatestRealNameWins(t *testing.T) {
	tv := &TileVector{
		Pois: collection(
			feature(map[string]interface{}{"id": float64(5), "kind": "cafe", "name": "Joe's"}, point(1, 2)),
			feature(map[string]interface{}{"id": float64(5), "kind": "cafe", "name": "Joe's Coffee"}, point(1, 2)),
		),
	}

	places := ParsePlaces(tv, "qk")
	assert.Equal(t, "Joe's Coffee", places[5].Name)
}

func TestParsePlacesExistingFieldsTakePriority(t *testing.T) {
	tv := &TileVector{
		Pois: collection(
			feature(map[string]interface{}{"id": float64(5), "kind": "cafe", "street": "First Ave"}, point(1, 2)),
			feature(map[string]interface{}{"id": float64(5), "kind": "cafe", "street": "Second Ave", "highway": "residential"}, point(1, 2)),
		),
	}

	places := ParsePlaces(tv, "qk")
	assert.Equal(t, "First Ave", places[5].Street, "existing non-blank value is kept")
	assert.Equal(t, "residential", places[5].Highway, "blank field is filled from the new fragment")
}

func TestParsePlacesReadsAddrPrefixedKeys(t *testing.T) {
	tv := &TileVector{
		Pois: collection(feature(map[string]interface{}{
			"id":               float64(4),
			"kind":             "cafe",
			"addr_street":      "W 4th St",
			"addr_housenumber": "375",
		}, point(1, 2))),
	}

	places := ParsePlaces(tv, "qk")
	place := places[4]
	assert.Equal(t, "W 4th St", place.Street)
	assert.Equal(t, "375", place.HouseNumber)
}

func TestParsePlacesCopiesContactAndDimensionAttributes(t *testing.T) {
	tv := &TileVector{
		Buildings: collection(feature(map[string]interface{}{
			"id":     float64(6),
			"kind":   "building",
			"height": float64(21.5),
			"volume": float64(4300),
		}, point(1, 2))),
		Pois: collection(feature(map[string]interface{}{
			"id":       float64(6),
			"kind":     "building",
			"phone":    "+1 212 555 0100",
			"postcode": "10014",
			"city":     "New York",
			"height":   float64(99),
		}, point(1, 2))),
	}

	places := ParsePlaces(tv, "qk")
	place := places[6]
	assert.Equal(t, "+1 212 555 0100", place.Phone)
	assert.Equal(t, "10014", place.Postcode)
	assert.Equal(t, "New York", place.City)
	assert.InDelta(t, 21.5, place.Height, 1e-9, "existing height is kept on resight")
	assert.InDelta(t, 4300, place.Volume, 1e-9)
}

func TestParsePlacesLineStringsAccumulate(t *testing.T) {
	tv := &TileVector{
		Roads: collection(
			feature(map[string]interface{}{"id": float64(11), "kind": "road"}, line(0, 0, 1, 1)),
			feature(map[string]interface{}{"id": float64(11), "kind": "road"}, line(1, 1, 2, 2)),
		),
	}

	places := ParsePlaces(tv, "qk")
	place := places[11]
	assert.Equal(t, TypeWay, place.Type)
	require.NotNil(t, place.Geometry)
	assert.Equal(t, "multilinestring", place.Geometry.Type)
	require.Len(t, place.Geometry.Coordinates, 2)
	assert.Equal(t, [][]float64{{0, 0}, {1, 1}}, place.Geometry.Coordinates[0])
	assert.Equal(t, [][]float64{{1, 1}, {2, 2}}, place.Geometry.Coordinates[1])
}

func TestParsePlacesPolygonRingsBecomeLines(t *testing.T) {
	ring := geom.NewPolygonFlat(geom.XY, []float64{0, 0, 0, 1, 1, 1, 0, 0}, []int{8})
	tv := &TileVector{
		Buildings: collection(feature(map[string]interface{}{"id": float64(3), "kind": "building"}, ring)),
	}

	places := ParsePlaces(tv, "qk")
	place := places[3]
	assert.Equal(t, TypeWay, place.Type)
	require.Len(t, place.Geometry.Coordinates, 1)
	assert.Len(t, place.Geometry.Coordinates[0], 4)
}

func TestParsePlacesPointDoesNotOverwriteWay(t *testing.T) {
	tv := &TileVector{
		Roads:  collection(feature(map[string]interface{}{"id": float64(11), "kind": "road"}, line(0, 0, 1, 1))),
		Places: collection(feature(map[string]interface{}{"id": float64(11), "kind": "road"}, point(9, 9))),
	}

	places := ParsePlaces(tv, "qk")
	place := places[11]
	assert.Equal(t, TypeWay, place.Type)
	assert.Nil(t, place.Location, "a way's geometry is not repositioned by a point fragment")
}

func TestParsePlacesStickyFieldsSurviveDuplicateFragment(t *testing.T) {
	props := map[string]interface{}{"id": float64(8), "kind": "cafe", "name": "Joe's"}
	tv := &TileVector{
		Pois: collection(feature(props, point(1, 2)), feature(props, point(1, 2))),
	}

	places := ParsePlaces(tv, "qk")
	require.Len(t, places, 1)
	assert.Equal(t, TypeNode, places[8].Type)
	assert.Equal(t, "cafe", places[8].Amenity)
	assert.Equal(t, "Joe's", places[8].Name)
}

func TestParsePlacesMergesAcrossLayersInOrder(t *testing.T) {
	tv := &TileVector{
		Buildings: collection(feature(map[string]interface{}{"id": float64(2), "kind": "building"}, line(0, 0, 1, 0))),
		Pois:      collection(feature(map[string]interface{}{"id": float64(2), "kind": "building", "housenumber": "12"}, point(0.5, 0))),
	}

	places := ParsePlaces(tv, "qk")
	place := places[2]
	assert.Equal(t, "buildings", place.Layer)
	assert.Equal(t, "12", place.HouseNumber)
	assert.Equal(t, TypeWay, place.Type)
}
