// Package api provides the live status HTTP server for a collection run.
// It exposes run counters, slot states and optionally Prometheus metrics.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/uitrail/uitrail/internal/collector"
)

// Server serves the status API for one running collection.
type Server struct {
	orch           *collector.Orchestrator
	version        string
	metricsEnabled bool
}

// NewServer creates a status server over a running orchestrator.
func NewServer(orch *collector.Orchestrator, version string) *Server {
	return &Server{orch: orch, version: version}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": s.version,
		})
	})

	r.Get("/api/status", s.handleStatus)

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// StatusResponse is the /api/status payload.
type StatusResponse struct {
	Counters   collector.Snapshot `json:"counters"`
	QueueDepth int                `json:"queue_depth"`
	Slots      map[int]string     `json:"slots"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	slots := map[int]string{}
	for idx, st := range s.orch.SlotStates() {
		slots[idx] = string(st)
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Counters:   s.orch.Aggregator().Snapshot(),
		QueueDepth: s.orch.QueueDepth(),
		Slots:      slots,
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
