// Package server serves the reports root over HTTP: the live leaderboard,
// the per-team reports and a small JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/build-flow-labs/judge/internal/judge/dashboard"
)

// RequestIDHeader carries the id assigned to each request.
const RequestIDHeader = "X-Request-ID"

const shutdownTimeout = 10 * time.Second

// Config holds server configuration.
type Config struct {
	Addr       string
	ReportsDir string
}

// Server is the report HTTP server.
type Server struct {
	cfg       Config
	dashboard *dashboard.Dashboard
	logger    *slog.Logger
	handler   http.Handler
	started   time.Time

	requestsServed atomic.Int64
	lastRequestAt  atomic.Value // time.Time
}

// NewServer creates a configured server.
func NewServer(cfg Config, logger *slog.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		dashboard: dashboard.New(cfg.ReportsDir, logger),
		logger:    logger,
		started:   time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	s.dashboard.RegisterRoutes(mux)

	s.handler = s.withRequestID(mux)
	return s
}

// Handler returns the root handler, including request logging.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address. It blocks until ctx is cancelled
// and then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.dashboard.Refresh()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("report server starting",
			"addr", s.cfg.Addr,
			"reports_dir", s.cfg.ReportsDir,
			"teams", s.dashboard.Index().Count(),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutting down report server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.requestsServed.Add(1)
		s.lastRequestAt.Store(start)
		s.logger.Debug("request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"requests_served": s.requestsServed.Load(),
		"teams":           s.dashboard.Index().Count(),
		"reports_dir":     s.cfg.ReportsDir,
		"uptime_seconds":  int64(time.Since(s.started).Seconds()),
	}
	if t, ok := s.lastRequestAt.Load().(time.Time); ok {
		status["last_request_at"] = t.UTC().Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}
