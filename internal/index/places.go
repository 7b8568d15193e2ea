package index

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/olivere/elastic/v7"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/CatalystCode/elastic-osm-tiles/internal/osm"
)

const (
	proximityPageSize = 4000
	localizedPageSize = 2000
)

// geoShapeCircleQuery matches documents whose way geometry intersects a
// circle. The olivere client has no geo_shape builder, so the query source
// is assembled by hand.
type geoShapeCircleQuery struct {
	field        string
	lat, lon     float64
	radiusMeters float64
}

func (q geoShapeCircleQuery) Source() (interface{}, error) {
	return map[string]interface{}{
		"geo_shape": map[string]interface{}{
			q.field: map[string]interface{}{
				"shape": map[string]interface{}{
					"type":        "circle",
					"coordinates": []float64{q.lon, q.lat},
					"radius":      fmt.Sprintf("%dm", int(q.radiusMeters)),
				},
				"relation": "intersects",
			},
		},
	}, nil
}

// ProximitySearch returns every place within radiusMeters of the coordinate:
// nodes by point distance, ways by geometry intersection with the search
// circle. A non-empty layer restricts results to entities from that source
// layer. Results are paged and concatenated.
func (s *Store) ProximitySearch(ctx context.Context, lat, lon, radiusMeters float64, layer string) ([]osm.Place, error) {
	query := elastic.NewBoolQuery().
		Should(
			elastic.NewGeoDistanceQuery("location").
				Lat(lat).
				Lon(lon).
				Distance(fmt.Sprintf("%dm", int(radiusMeters))),
			geoShapeCircleQuery{field: "geometry", lat: lat, lon: lon, radiusMeters: radiusMeters},
		).
		MinimumNumberShouldMatch(1)
	if layer != "" {
		query = query.Filter(elastic.NewTermQuery("layer", layer))
	}

	return s.pagedPlaces(ctx, query, proximityPageSize)
}

// LocalizedSearch returns places around the coordinate whose textual fields
// match the term, with fuzziness so close misspellings still hit.
func (s *Store) LocalizedSearch(ctx context.Context, term string, lat, lon, radiusMeters float64, layer string) ([]osm.Place, error) {
	query := elastic.NewBoolQuery().
		Must(
			elastic.NewMultiMatchQuery(term, "name", "amenity", "cuisine", "street").
				Fuzziness("AUTO"),
		).
		Filter(
			elastic.NewGeoDistanceQuery("location").
				Lat(lat).
				Lon(lon).
				Distance(fmt.Sprintf("%dm", int(radiusMeters))),
		)
	if layer != "" {
		query = query.Filter(elastic.NewTermQuery("layer", layer))
	}

	return s.pagedPlaces(ctx, query, localizedPageSize)
}

func (s *Store) pagedPlaces(ctx context.Context, query elastic.Query, pageSize int) ([]osm.Place, error) {
	var places []osm.Place
	for from := 0; ; from += pageSize {
		result, err := s.client.Search().
			Index(s.places).
			Query(query).
			From(from).
			Size(pageSize).
			Do(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "index: query places")
		}

		for _, hit := range result.Hits.Hits {
			var place osm.Place
			if err := json.Unmarshal(hit.Source, &place); err != nil {
				zap.L().Warn("skipping malformed place document", zap.Error(err))
				continue
			}
			if hit.Score != nil {
				place.Score = *hit.Score
			}
			places = append(places, place)
		}

		if len(result.Hits.Hits) < pageSize {
			break
		}
	}
	return places, nil
}
