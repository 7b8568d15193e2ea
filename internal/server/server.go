// Package server exposes the explore service over HTTP: request decoding
// and validation, error-to-status mapping, and the health and metrics
// endpoints.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CatalystCode/elastic-osm-tiles/internal/errkind"
	"github.com/CatalystCode/elastic-osm-tiles/internal/explore"
	"github.com/CatalystCode/elastic-osm-tiles/internal/observability"
)

const sessionIDHeader = "X-SessionId"

// ExploreService is the slice of the explore service the server needs.
type ExploreService interface {
	Search(ctx context.Context, req explore.SpatialDataRequest, headers http.Header) (*explore.SpatialDataResponse, error)
	SearchPOI(ctx context.Context, req explore.SpatialDataRequest, headers http.Header) (*explore.SpatialDataResponse, error)
}

// Server routes HTTP requests to the explore service.
type Server struct {
	svc            ExploreService
	metrics        *observability.Collector
	requestTimeout time.Duration
}

// New builds the server.
func New(svc ExploreService, metrics *observability.Collector, requestTimeout time.Duration) *Server {
	return &Server{svc: svc, metrics: metrics, requestTimeout: requestTimeout}
}

// Router assembles the route tree with its middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", sessionIDHeader, "X-ClientId"},
	}))
	r.Use(s.ensureSession)
	r.Use(s.instrument)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())
	r.Post("/api/explore", s.handleExplore)
	r.Post("/api/search", s.handleSearch)

	return r
}

// ensureSession guarantees every request carries a session id so fan-out
// calls can be correlated upstream.
func (s *Server) ensureSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(sessionIDHeader) == "" {
			r.Header.Set(sessionIDHeader, uuid.NewString())
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		elapsed := time.Since(start)
		if s.metrics != nil && s.metrics.HTTPRequests != nil {
			s.metrics.HTTPRequests.WithLabelValues(route, http.StatusText(ww.Status())).Inc()
		}
		if s.metrics != nil && s.metrics.HTTPDurations != nil {
			s.metrics.HTTPDurations.WithLabelValues(route).Observe(elapsed.Seconds())
		}
		zap.L().Info("request served",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", ww.Status()),
			zap.String("session_id", r.Header.Get(sessionIDHeader)),
			zap.Duration("elapsed", elapsed))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleExplore(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	resp, err := s.svc.Search(ctx, req, r.Header)
	s.respond(w, resp, err)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	if req.SearchTerm == "" {
		writeError(w, http.StatusBadRequest, "searchTerm is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	resp, err := s.svc.SearchPOI(ctx, req, r.Header)
	s.respond(w, resp, err)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (explore.SpatialDataRequest, bool) {
	var req explore.SpatialDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}

	// An absent currentLocation decodes to the zero value, so (0, 0) doubles
	// as the missing marker. A real query there would be open ocean.
	loc := req.CurrentLocation
	if loc.Latitude == 0 && loc.Longitude == 0 {
		writeError(w, http.StatusBadRequest, "latitude and longitude must be provided")
		return req, false
	}
	if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
		writeError(w, http.StatusBadRequest, "currentLocation is out of range")
		return req, false
	}
	return req, true
}

// respond maps service outcomes to transport codes. An empty result set is
// a client-visible condition of its own, distinct from a mid-flight
// failure.
func (s *Server) respond(w http.ResponseWriter, resp *explore.SpatialDataResponse, err error) {
	if err != nil {
		status := errkind.HTTPStatus(err)
		zap.L().Warn("request failed",
			zap.Int("status", status),
			zap.String("error_type", errkind.Label(err)),
			zap.Error(err))
		writeError(w, status, errkind.Label(err))
		return
	}
	if resp.ReturnedResultCount == 0 {
		writeError(w, http.StatusNotFound, "no places found for the requested area")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeJSON marshals before writing any header so a serialization failure
// can still be reported cleanly, without leaking internal detail.
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	payload, err := json.Marshal(body)
	if err != nil {
		zap.L().Error("failed to encode response", zap.Error(err))
		http.Error(w, `{"error":"failed to serialize response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
