// Package explore is the cache orchestrator: it resolves the tiles covering
// a query, refreshes the cache misses from the upstream tile provider
// through the fan-out engine, writes the merged places through to the
// document index, and runs the final proximity query.
package explore

import (
	"github.com/CatalystCode/elastic-osm-tiles/internal/fanout"
	"github.com/CatalystCode/elastic-osm-tiles/internal/osm"
)

// Location is a WGS84 coordinate.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SpatialDataRequest is a proximity query. SearchRadius and Limit fall back
// to configured defaults when zero; SearchTerm switches the final query to a
// localized text search; Layer restricts results to one source layer.
type SpatialDataRequest struct {
	CurrentLocation Location `json:"currentLocation"`
	SearchRadius    float64  `json:"searchRadius,omitempty"`
	Limit           int      `json:"limit,omitempty"`
	SearchTerm      string   `json:"searchTerm,omitempty"`
	Layer           string   `json:"layer,omitempty"`
}

// SpatialDataResponse is the client-facing result set with its execution
// envelope.
type SpatialDataResponse struct {
	Results             []osm.Place         `json:"results"`
	ReturnedResultCount int                 `json:"returnedResultCount"`
	SourceResultCount   int                 `json:"sourceResultCount"`
	SourceProvider      string              `json:"sourceProvider"`
	ResponseStatus      fanout.ClientStatus `json:"responseStatus"`
}

// TileOutcome is the per-tile result of a cache refresh.
type TileOutcome struct {
	QuadKey string               `json:"quadKey"`
	Places  int                  `json:"places"`
	Status  *fanout.ClientStatus `json:"status,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// RefreshResult summarizes one refresh pass over a set of cache misses.
type RefreshResult struct {
	Attempted int           `json:"attempted"`
	Succeeded int           `json:"succeeded"`
	Outcomes  []TileOutcome `json:"outcomes"`
}
