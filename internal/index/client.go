// Package index is the document-index layer: it owns the places and tile
// cache indices in Elasticsearch, the bulk write-through path, and the geo
// and text queries the explore service runs against them.
package index

import (
	"github.com/olivere/elastic/v7"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Config carries the connection settings and index names.
type Config struct {
	URLs        []string
	Username    string
	Password    string
	Sniff       bool
	PlacesIndex string
	TilesIndex  string
}

// Store wraps the Elasticsearch client with the two indices the system owns.
type Store struct {
	client *elastic.Client
	places string
	tiles  string
}

// New connects to the cluster eagerly so a bad configuration fails at
// startup instead of on the first query.
func New(cfg Config) (*Store, error) {
	opts := []elastic.ClientOptionFunc{
		elastic.SetURL(cfg.URLs...),
		elastic.SetSniff(cfg.Sniff),
	}
	if cfg.Username != "" {
		opts = append(opts, elastic.SetBasicAuth(cfg.Username, cfg.Password))
	}

	client, err := elastic.NewClient(opts...)
	if err != nil {
		return nil, eris.Wrap(err, "index: connect to elasticsearch")
	}

	zap.L().Info("connected to elasticsearch",
		zap.Strings("urls", cfg.URLs),
		zap.String("places_index", cfg.PlacesIndex),
		zap.String("tiles_index", cfg.TilesIndex))

	return &Store{client: client, places: cfg.PlacesIndex, tiles: cfg.TilesIndex}, nil
}

// NewWithClient wires an existing client, used by tests with a stubbed
// transport.
func NewWithClient(client *elastic.Client, placesIndex, tilesIndex string) *Store {
	return &Store{client: client, places: placesIndex, tiles: tilesIndex}
}
