package main

import (
	"time"

	"github.com/CatalystCode/elastic-osm-tiles/internal/explore"
	"github.com/CatalystCode/elastic-osm-tiles/internal/index"
	"github.com/CatalystCode/elastic-osm-tiles/internal/observability"
)

// env bundles the wired components shared by the subcommands.
type env struct {
	Store   *index.Store
	Service *explore.Service
	Metrics *observability.Collector
}

// initEnv wires the document index, metrics, and the explore service from
// the loaded configuration.
func initEnv() (*env, error) {
	store, err := index.New(index.Config{
		URLs:        cfg.Elastic.URLs,
		Username:    cfg.Elastic.Username,
		Password:    cfg.Elastic.Password,
		Sniff:       cfg.Elastic.Sniff,
		PlacesIndex: cfg.Elastic.PlacesIndex,
		TilesIndex:  cfg.Elastic.TilesIndex,
	})
	if err != nil {
		return nil, err
	}

	metrics, err := observability.NewCollector(nil)
	if err != nil {
		return nil, err
	}

	svc := explore.NewService(store, explore.Config{
		TileURLTemplate:   cfg.TileServer.URLTemplate,
		APIKey:            cfg.TileServer.APIKey,
		ProviderName:      cfg.TileServer.ProviderName,
		Zoom:              cfg.Explore.Zoom,
		BatchSize:         cfg.Explore.BatchSize,
		RefreshTimeout:    time.Duration(cfg.Explore.RefreshTimeoutMS) * time.Millisecond,
		DefaultRadius:     cfg.Explore.DefaultRadius,
		DefaultLimit:      cfg.Explore.DefaultLimit,
		RequestsPerSecond: cfg.TileServer.RequestsPerSecond,
	}, metrics)

	return &env{Store: store, Service: svc, Metrics: metrics}, nil
}
