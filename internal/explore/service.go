package explore

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/CatalystCode/elastic-osm-tiles/internal/errkind"
	"github.com/CatalystCode/elastic-osm-tiles/internal/fanout"
	"github.com/CatalystCode/elastic-osm-tiles/internal/index"
	"github.com/CatalystCode/elastic-osm-tiles/internal/observability"
	"github.com/CatalystCode/elastic-osm-tiles/internal/osm"
	"github.com/CatalystCode/elastic-osm-tiles/internal/tiles"
)

// Config carries the orchestrator's tunables.
type Config struct {
	// TileURLTemplate receives zoom, x, y in that order.
	TileURLTemplate string
	APIKey          string
	ProviderName    string

	Zoom              int
	BatchSize         int
	RefreshTimeout    time.Duration
	DefaultRadius     float64
	DefaultLimit      int
	RequestsPerSecond float64
}

// Service orchestrates the write-through tile cache: resolve tiles, diff
// against the cache, refresh misses upstream, and answer from the index.
type Service struct {
	store   *index.Store
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	metrics *observability.Collector
}

// NewService wires the orchestrator. A zero RequestsPerSecond disables the
// upstream rate limiter.
func NewService(store *index.Store, cfg Config, metrics *observability.Collector) *Service {
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BatchSize)
	}
	return &Service{
		store:   store,
		cfg:     cfg,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: limiter,
		metrics: metrics,
	}
}

// Search answers a proximity query, refreshing any uncached tiles first. A
// refresh failure degrades coverage but never fails the query; a failure of
// the final index query is fatal.
func (s *Service) Search(ctx context.Context, req SpatialDataRequest, headers http.Header) (*SpatialDataResponse, error) {
	start := time.Now()

	radius, limit := s.defaults(req)
	loc := req.CurrentLocation

	if err := s.ensureCoverage(ctx, loc, radius, headers); err != nil {
		return nil, err
	}

	results, err := s.store.ProximitySearch(ctx, loc.Latitude, loc.Longitude, radius, req.Layer)
	if err != nil {
		return nil, eris.Wrap(err, "explore: proximity search")
	}

	return s.respond(results, limit, loc, start), nil
}

// SearchPOI answers a localized text query around a point, refreshing
// uncached tiles first so the text search sees current data.
func (s *Service) SearchPOI(ctx context.Context, req SpatialDataRequest, headers http.Header) (*SpatialDataResponse, error) {
	start := time.Now()

	if req.SearchTerm == "" {
		return nil, errkind.InvalidArgument("explore: search term is required")
	}

	radius, limit := s.defaults(req)
	loc := req.CurrentLocation

	if err := s.ensureCoverage(ctx, loc, radius, headers); err != nil {
		return nil, err
	}

	results, err := s.store.LocalizedSearch(ctx, req.SearchTerm, loc.Latitude, loc.Longitude, radius, req.Layer)
	if err != nil {
		return nil, eris.Wrap(err, "explore: localized search")
	}

	return s.respond(results, limit, loc, start), nil
}

// ensureCoverage resolves the tiles covering the query, diffs them against
// the cache, and refreshes the misses.
func (s *Service) ensureCoverage(ctx context.Context, loc Location, radius float64, headers http.Header) error {
	nearby, err := tiles.NearbyTiles(loc.Latitude, loc.Longitude, s.cfg.Zoom, radius)
	if err != nil {
		return err
	}
	if len(nearby) == 0 {
		return errkind.InvalidArgument("explore: no tiles cover the requested area")
	}

	quadKeys := tiles.QuadKeys(nearby)
	cached, err := s.store.CachedTiles(ctx, quadKeys)
	if err != nil {
		return eris.Wrap(err, "explore: look up cached tiles")
	}

	misses := index.CacheMisses(quadKeys, cached)
	s.metrics.ObserveCache(len(quadKeys)-len(misses), len(misses))

	if len(misses) == 0 {
		return nil
	}

	result, err := s.Refresh(ctx, misses, headers)
	if err != nil {
		return err
	}
	if result.Succeeded < result.Attempted {
		zap.L().Warn("serving degraded coverage",
			zap.Int("attempted", result.Attempted),
			zap.Int("succeeded", result.Succeeded))
	}
	return nil
}

// Refresh fetches, parses, and indexes the given tiles in sequential
// batches. One deadline governs the whole refresh, detached from the
// caller's cancellation so index writes already in flight are not wasted
// when a client disconnects. Within a batch tiles are fetched concurrently;
// batches never overlap.
func (s *Service) Refresh(ctx context.Context, quadKeys []string, headers http.Header) (*RefreshResult, error) {
	refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.RefreshTimeout)
	defer cancel()

	result := &RefreshResult{Attempted: len(quadKeys)}
	for offset := 0; offset < len(quadKeys); offset += s.cfg.BatchSize {
		end := offset + s.cfg.BatchSize
		if end > len(quadKeys) {
			end = len(quadKeys)
		}
		batch := quadKeys[offset:end]

		providers, err := s.providers(batch)
		if err != nil {
			return nil, err
		}

		caller := &fanout.Caller[osm.TileVector, *osm.TileVector, refreshJob, TileOutcome]{
			Providers: providers,
			Client:    s.client,
			Limiter:   s.limiter,
			Headers:   headers,
			Hooks:     tileHooks{store: s.store, metrics: s.metrics},
		}

		outcomes := caller.CollectGet(refreshCtx, refreshJob{ctx: refreshCtx, quadKeys: batch})
		for _, outcome := range outcomes {
			if outcome.Error == "" {
				result.Succeeded++
			}
			result.Outcomes = append(result.Outcomes, outcome)
		}

		if refreshCtx.Err() != nil {
			zap.L().Warn("tile refresh deadline elapsed",
				zap.Int("remaining", len(quadKeys)-end))
			break
		}
	}

	zap.L().Info("tile refresh finished",
		zap.Int("attempted", result.Attempted),
		zap.Int("succeeded", result.Succeeded))
	return result, nil
}

// Warm re-fetches every cached tile, used to re-seed the places index after
// a rebuild.
func (s *Service) Warm(ctx context.Context) (*RefreshResult, error) {
	quadKeys, err := s.store.AllCachedTiles(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "explore: list cached tiles")
	}
	if len(quadKeys) == 0 {
		return &RefreshResult{}, nil
	}
	return s.Refresh(ctx, quadKeys, http.Header{})
}

// providers maps a batch of quadkeys to one tile provider endpoint each.
func (s *Service) providers(quadKeys []string) ([]fanout.Provider, error) {
	providers := make([]fanout.Provider, len(quadKeys))
	for i, qk := range quadKeys {
		tile, err := tiles.FromQuadKey(qk)
		if err != nil {
			return nil, err
		}
		endpoint := fmt.Sprintf(s.cfg.TileURLTemplate, tile.Zoom, tile.X, tile.Y)
		if s.cfg.APIKey != "" {
			endpoint += "?api_key=" + url.QueryEscape(s.cfg.APIKey)
		}
		providers[i] = fanout.Provider{Key: qk, URL: endpoint}
	}
	return providers, nil
}

func (s *Service) defaults(req SpatialDataRequest) (radius float64, limit int) {
	radius = req.SearchRadius
	if radius <= 0 {
		radius = s.cfg.DefaultRadius
	}
	limit = req.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	return radius, limit
}

func (s *Service) respond(results []osm.Place, limit int, loc Location, start time.Time) *SpatialDataResponse {
	sourceCount := len(results)
	if len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []osm.Place{}
	}
	for i := range results {
		if p := results[i].Location; p != nil {
			results[i].Distance = tiles.HaversineDistance(loc.Latitude, loc.Longitude, p.Lat, p.Lon)
		}
	}
	return &SpatialDataResponse{
		Results:             results,
		ReturnedResultCount: len(results),
		SourceResultCount:   sourceCount,
		SourceProvider:      s.cfg.ProviderName,
		ResponseStatus:      fanout.NewStatus(http.StatusOK, time.Since(start).Milliseconds()).Client(),
	}
}
