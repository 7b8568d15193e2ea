// Package osm models the entities extracted from vector tile responses and
// the merge engine that folds multi-layer geometry fragments into canonical
// place records.
package osm

import "time"

// Entity types. Every place starts life as a node; linear or polygonal
// geometry promotes it to a way.
const (
	TypeNode = "node"
	TypeWay  = "way"

	// NoKind marks an entity whose source fragment carried no kind.
	NoKind = "none"
)

// GeoPoint is a document-index geo_point.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// MultiLine is a document-index geo_shape multilinestring. Coordinates are
// [longitude, latitude] pairs per vertex, one array per line or ring.
type MultiLine struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

// NewMultiLine builds an empty multilinestring shape.
func NewMultiLine() *MultiLine {
	return &MultiLine{Type: "multilinestring"}
}

// Place is one canonical entity assembled from a tile's geometry fragments.
// It is the document stored in and queried from the places index.
type Place struct {
	ID          string     `json:"id"`
	QuadKey     string     `json:"quadKey"`
	OSMID       int64      `json:"osmId"`
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	Amenity     string     `json:"amenity"`
	Layer       string     `json:"layer"`
	Street      string     `json:"street,omitempty"`
	Cuisine     string     `json:"cuisine,omitempty"`
	Highway     string     `json:"highway,omitempty"`
	Footway     string     `json:"footway,omitempty"`
	HouseNumber string     `json:"housenumber,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Postcode    string     `json:"postcode,omitempty"`
	City        string     `json:"city,omitempty"`
	Height      float64    `json:"height,omitempty"`
	Volume      float64    `json:"volume,omitempty"`
	Location    *GeoPoint  `json:"location,omitempty"`
	Geometry    *MultiLine `json:"geometry,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`

	// Score and Distance are search-time values, never indexed; both are
	// zero on documents being written.
	Score    float64 `json:"score,omitempty"`
	Distance float64 `json:"distance,omitempty"`
}
