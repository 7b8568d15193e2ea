package index

import (
	"context"
	"encoding/json"
	"time"

	"github.com/olivere/elastic/v7"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// cachedTilesPageSize bounds each page of the tile cache lookup.
const cachedTilesPageSize = 100

// TileCache is a marker document recording that a tile's places have been
// fully indexed. Its presence is the only cache condition; there is no TTL.
type TileCache struct {
	QuadKey   string    `json:"quadkey"`
	CreatedAt time.Time `json:"created_at"`
}

// CachedTiles returns the subset of the requested quadkeys that have a cache
// marker, paging through the tile index in fixed-size chunks.
func (s *Store) CachedTiles(ctx context.Context, quadKeys []string) ([]string, error) {
	if len(quadKeys) == 0 {
		return nil, nil
	}

	query := elastic.NewBoolQuery()
	for _, qk := range quadKeys {
		query = query.Should(elastic.NewTermQuery("quadkey", qk))
	}
	query = query.MinimumNumberShouldMatch(1)

	var cached []string
	for from := 0; ; from += cachedTilesPageSize {
		result, err := s.client.Search().
			Index(s.tiles).
			Query(query).
			From(from).
			Size(cachedTilesPageSize).
			Do(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "index: query cached tiles")
		}

		for _, hit := range result.Hits.Hits {
			var tile TileCache
			if err := json.Unmarshal(hit.Source, &tile); err != nil {
				zap.L().Warn("skipping malformed tile cache document", zap.Error(err))
				continue
			}
			cached = append(cached, tile.QuadKey)
		}

		if len(result.Hits.Hits) < cachedTilesPageSize {
			break
		}
	}
	return cached, nil
}

// AllCachedTiles returns every cached quadkey, used by the warm-up command
// to re-seed tiles after an index rebuild.
func (s *Store) AllCachedTiles(ctx context.Context) ([]string, error) {
	var cached []string
	for from := 0; ; from += cachedTilesPageSize {
		result, err := s.client.Search().
			Index(s.tiles).
			Query(elastic.NewMatchAllQuery()).
			From(from).
			Size(cachedTilesPageSize).
			Do(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "index: query all cached tiles")
		}

		for _, hit := range result.Hits.Hits {
			var tile TileCache
			if err := json.Unmarshal(hit.Source, &tile); err != nil {
				continue
			}
			cached = append(cached, tile.QuadKey)
		}

		if len(result.Hits.Hits) < cachedTilesPageSize {
			break
		}
	}
	return cached, nil
}

// CacheMisses diffs the requested quadkeys against the cached set,
// preserving request order.
func CacheMisses(requested, cached []string) []string {
	have := make(map[string]struct{}, len(cached))
	for _, qk := range cached {
		have[qk] = struct{}{}
	}

	var misses []string
	for _, qk := range requested {
		if _, ok := have[qk]; !ok {
			misses = append(misses, qk)
		}
	}
	return misses
}
