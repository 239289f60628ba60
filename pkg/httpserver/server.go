package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mselser95/orderbook-snapshotter/internal/snapshot"
	"github.com/mselser95/orderbook-snapshotter/pkg/healthprobe"
)

// Server serves the Latest-Snapshot Cell over HTTP, alongside the
// ambient /metrics and /readyz endpoints.
type Server struct {
	server        *http.Server
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
}

// Config holds server configuration.
type Config struct {
	Addr          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker
	Cell          *snapshot.Cell
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/readyz", cfg.HealthChecker.Ready())
	r.Get("/healthz", handleHealthz)
	r.Get("/snapshot", handleSnapshot(cfg.Cell))

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		server:        server,
		logger:        cfg.Logger,
		healthChecker: cfg.HealthChecker,
	}
}

// handleHealthz always reports 200 with an empty body per spec.md §4.I:
// liveness, not readiness.
func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// handleSnapshot serves the Latest-Snapshot Cell: 204 if it is still
// empty, otherwise 200 with the snapshot's JSON payload.
func handleSnapshot(cell *snapshot.Cell) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		rec := cell.Load()
		if rec == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		body, err := json.Marshal(rec.Payload)
		if err != nil {
			http.Error(w, "failed to encode snapshot", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}

// Start starts the HTTP server. Blocking call that returns when the
// server stops or encounters an error.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}
