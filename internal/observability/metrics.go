// Package observability bundles the Prometheus metrics for the explore
// service and exposes the /metrics handler the server mounts.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the service's Prometheus metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec

	TileFetches     *prometheus.CounterVec
	TileCacheHits   prometheus.Counter
	TileCacheMisses prometheus.Counter
	IndexedPlaces   prometheus.Counter
	IndexFailures   prometheus.Counter
}

// NewCollector registers the metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "explore_http_requests_total",
		Help: "Total handled HTTP requests, labeled by route and status code.",
	}, []string{"route", "code"})
	requests, err := registerCounterVec(reg, requests, "explore_http_requests_total")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "explore_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"route"})
	durations, err = registerHistogramVec(reg, durations, "explore_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "explore_tile_fetches_total",
		Help: "Upstream tile fetches, labeled by outcome.",
	}, []string{"outcome"})
	fetches, err = registerCounterVec(reg, fetches, "explore_tile_fetches_total")
	if err != nil {
		return nil, err
	}

	hits, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "explore_tile_cache_hits_total",
		Help: "Requested tiles already present in the tile cache.",
	}), "explore_tile_cache_hits_total")
	if err != nil {
		return nil, err
	}
	misses, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "explore_tile_cache_misses_total",
		Help: "Requested tiles absent from the tile cache.",
	}), "explore_tile_cache_misses_total")
	if err != nil {
		return nil, err
	}
	indexed, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "explore_indexed_places_total",
		Help: "Place documents written through to the index.",
	}), "explore_indexed_places_total")
	if err != nil {
		return nil, err
	}
	failures, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "explore_index_failures_total",
		Help: "Tile refreshes that failed to index.",
	}), "explore_index_failures_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:        gatherer,
		HTTPRequests:    requests,
		HTTPDurations:   durations,
		TileFetches:     fetches,
		TileCacheHits:   hits,
		TileCacheMisses: misses,
		IndexedPlaces:   indexed,
		IndexFailures:   failures,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveCache records a cache lookup outcome for a batch of tiles.
func (c *Collector) ObserveCache(hits, misses int) {
	if c == nil {
		return
	}
	if c.TileCacheHits != nil {
		c.TileCacheHits.Add(float64(hits))
	}
	if c.TileCacheMisses != nil {
		c.TileCacheMisses.Add(float64(misses))
	}
}

// ObserveFetch records one upstream tile fetch outcome.
func (c *Collector) ObserveFetch(outcome string) {
	if c == nil || c.TileFetches == nil {
		return
	}
	c.TileFetches.WithLabelValues(outcome).Inc()
}

// ObserveIndexed records place documents written and index failures.
func (c *Collector) ObserveIndexed(places int, failed bool) {
	if c == nil {
		return
	}
	if c.IndexedPlaces != nil && places > 0 {
		c.IndexedPlaces.Add(float64(places))
	}
	if failed && c.IndexFailures != nil {
		c.IndexFailures.Inc()
	}
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
