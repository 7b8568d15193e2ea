package osm

import (
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/CatalystCode/elastic-osm-tiles/internal/fanout"
)

// Layer names in canonical merge order. Fragments for the same entity in a
// later layer are merged into the record created by an earlier one, so the
// order is part of the merge semantics and must not change.
var LayerOrder = []string{
	"landuse",
	"buildings",
	"pois",
	"places",
	"boundaries",
	"roads",
	"transit",
	"water",
}

// TileVector is one vector tile response: a GeoJSON feature collection per
// entity layer, plus the source and timing envelope stamped after the fetch.
type TileVector struct {
	Landuse    *geojson.FeatureCollection `json:"landuse,omitempty"`
	Buildings  *geojson.FeatureCollection `json:"buildings,omitempty"`
	Pois       *geojson.FeatureCollection `json:"pois,omitempty"`
	Places     *geojson.FeatureCollection `json:"places,omitempty"`
	Boundaries *geojson.FeatureCollection `json:"boundaries,omitempty"`
	Roads      *geojson.FeatureCollection `json:"roads,omitempty"`
	Transit    *geojson.FeatureCollection `json:"transit,omitempty"`
	Water      *geojson.FeatureCollection `json:"water,omitempty"`

	// Earth carries base landmass geometry. It is decoded for completeness
	// but contributes nothing to the place merge.
	Earth *geojson.FeatureCollection `json:"earth,omitempty"`

	SourceProvider string                 `json:"-"`
	Status         *fanout.ResponseStatus `json:"-"`
}

// StampSource records which provider produced this tile.
func (tv *TileVector) StampSource(key string) { tv.SourceProvider = key }

// StampStatus records the fetch status and timing.
func (tv *TileVector) StampStatus(status *fanout.ResponseStatus) { tv.Status = status }

// Layers returns the feature collections in canonical merge order. Absent
// layers are returned as nil entries so callers can iterate positionally.
func (tv *TileVector) Layers() []*geojson.FeatureCollection {
	return []*geojson.FeatureCollection{
		tv.Landuse,
		tv.Buildings,
		tv.Pois,
		tv.Places,
		tv.Boundaries,
		tv.Roads,
		tv.Transit,
		tv.Water,
	}
}

// FeatureCount returns the total number of fragments across all layers.
func (tv *TileVector) FeatureCount() int {
	n := 0
	for _, fc := range tv.Layers() {
		if fc != nil {
			n += len(fc.Features)
		}
	}
	return n
}
