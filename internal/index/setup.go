package index

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const placesMapping = `{
	"settings": {
		"index": {
			"max_result_window": 20000
		}
	},
	"mappings": {
		"properties": {
			"id":          {"type": "keyword"},
			"quadKey":     {"type": "keyword"},
			"osmId":       {"type": "long"},
			"name":        {"type": "text"},
			"type":        {"type": "keyword"},
			"amenity":     {"type": "text"},
			"layer":       {"type": "keyword"},
			"street":      {"type": "text"},
			"cuisine":     {"type": "text"},
			"highway":     {"type": "keyword"},
			"footway":     {"type": "keyword"},
			"housenumber": {"type": "keyword"},
			"phone":       {"type": "keyword"},
			"postcode":    {"type": "keyword"},
			"city":        {"type": "text"},
			"height":      {"type": "float"},
			"volume":      {"type": "float"},
			"location":    {"type": "geo_point"},
			"geometry":    {"type": "geo_shape"},
			"created_at":  {"type": "date"}
		}
	}
}`

const tilesMapping = `{
	"mappings": {
		"properties": {
			"quadkey":    {"type": "keyword"},
			"created_at": {"type": "date"}
		}
	}
}`

// EnsureIndices creates the places and tile cache indices with their
// mappings if they do not already exist.
func (s *Store) EnsureIndices(ctx context.Context) error {
	for _, idx := range []struct {
		name    string
		mapping string
	}{
		{s.places, placesMapping},
		{s.tiles, tilesMapping},
	} {
		exists, err := s.client.IndexExists(idx.name).Do(ctx)
		if err != nil {
			return eris.Wrapf(err, "index: check index %s", idx.name)
		}
		if exists {
			zap.L().Debug("index already exists", zap.String("index", idx.name))
			continue
		}

		created, err := s.client.CreateIndex(idx.name).BodyString(idx.mapping).Do(ctx)
		if err != nil {
			return eris.Wrapf(err, "index: create index %s", idx.name)
		}
		if !created.Acknowledged {
			zap.L().Warn("index creation not acknowledged", zap.String("index", idx.name))
		}
		zap.L().Info("created index", zap.String("index", idx.name))
	}
	return nil
}
