package explore

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/CatalystCode/elastic-osm-tiles/internal/errkind"
	"github.com/CatalystCode/elastic-osm-tiles/internal/fanout"
	"github.com/CatalystCode/elastic-osm-tiles/internal/index"
	"github.com/CatalystCode/elastic-osm-tiles/internal/observability"
	"github.com/CatalystCode/elastic-osm-tiles/internal/osm"
)

// refreshJob carries the per-refresh state the hooks need: the refresh
// context for index writes and the quadkeys of the batch for logging.
type refreshJob struct {
	ctx      context.Context
	quadKeys []string
}

// tileHooks processes one fetched tile: validates the response, parses the
// geometry layers into places, and writes them through to the index. Parse
// and index time is accumulated onto the fetch envelope so the outcome's
// timing covers the whole sub-pipeline.
type tileHooks struct {
	store   *index.Store
	metrics *observability.Collector
}

func (h tileHooks) Validate(outcome fanout.Exceptional[*osm.TileVector]) fanout.Exceptional[*osm.TileVector] {
	if !outcome.HasValue() {
		return outcome
	}
	tv := outcome.Value()
	if tv.SourceProvider == "" {
		return fanout.Err[*osm.TileVector](errkind.InvalidResponse("explore: tile response missing source tile key"))
	}
	return outcome
}

func (h tileHooks) Log(outcome fanout.Exceptional[*osm.TileVector], job refreshJob) {
	if outcome.HasValue() {
		tv := outcome.Value()
		zap.L().Debug("fetched tile",
			zap.String("quadkey", tv.SourceProvider),
			zap.Int("features", tv.FeatureCount()),
			zap.Int64("elapsed_ms", tv.Status.ExecutionTimeMS()))
		return
	}
	zap.L().Warn("tile fetch failed",
		zap.Strings("batch", job.quadKeys),
		zap.String("error_type", errkind.Label(outcome.Err())),
		zap.Error(outcome.Err()))
}

func (h tileHooks) PostProcess(tv *osm.TileVector, job refreshJob) TileOutcome {
	quadKey := tv.SourceProvider
	start := time.Now()

	places := osm.ParsePlaces(tv, quadKey)
	err := h.store.BulkIndexTile(job.ctx, quadKey, places)

	tv.Status.AddExecutionTime(time.Since(start).Milliseconds())
	h.metrics.ObserveIndexed(len(places), err != nil)

	if err != nil {
		tv.Status.Fail(err)
		h.metrics.ObserveFetch("index_failure")
		zap.L().Warn("tile refresh failed to index",
			zap.String("quadkey", quadKey),
			zap.Error(err))
		status := tv.Status.Client()
		return TileOutcome{QuadKey: quadKey, Status: &status, Error: err.Error()}
	}

	h.metrics.ObserveFetch("success")
	status := tv.Status.Client()
	return TileOutcome{QuadKey: quadKey, Places: len(places), Status: &status}
}

func (h tileHooks) ConvertError(err error) TileOutcome {
	h.metrics.ObserveFetch("fetch_failure")
	status := fanout.StatusFromError(err, 0).Client()
	return TileOutcome{Status: &status, Error: err.Error()}
}
