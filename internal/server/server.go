// Package server runs the HTTP listener that hosts the translator API next to
// health, readiness and metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// HealthStatus represents the health status of the server
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthChecker is a function that checks component health
type HealthChecker func() (ok bool, message string)

// Pinger is implemented by backends that can report reachability
type Pinger interface {
	Ping() error
}

// PingCheck adapts a Pinger to a HealthChecker
func PingCheck(p Pinger) HealthChecker {
	return func() (bool, string) {
		if err := p.Ping(); err != nil {
			return false, err.Error()
		}
		return true, "ok"
	}
}

// Server serves the API, metrics and health endpoints on one listener
type Server struct {
	mu              sync.RWMutex
	server          *http.Server
	mux             *http.ServeMux
	checkers        map[string]HealthChecker
	startTime       time.Time
	version         string
	shutdownTimeout time.Duration
	logger          zerolog.Logger
}

// Config holds server configuration
type Config struct {
	// Addr is the address to listen on (e.g., ":8080")
	Addr string

	// MetricsEnabled exposes Prometheus metrics on MetricsPath
	MetricsEnabled bool

	// MetricsPath is the path for Prometheus metrics
	MetricsPath string

	// HealthPath is the path for health checks
	HealthPath string

	// ReadyPath is the path for readiness checks
	ReadyPath string

	// LivePath is the path for liveness checks
	LivePath string

	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration

	// Version is the application version
	Version string
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Addr:            ":8080",
		MetricsEnabled:  true,
		MetricsPath:     "/metrics",
		HealthPath:      "/health",
		ReadyPath:       "/ready",
		LivePath:        "/live",
		ShutdownTimeout: 10 * time.Second,
		Version:         "dev",
	}
}

// New creates a new server. api is mounted at the root; a nil api serves
// only the operational endpoints.
func New(cfg *Config, api http.Handler, logger zerolog.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	s := &Server{
		mux:             http.NewServeMux(),
		checkers:        make(map[string]HealthChecker),
		startTime:       time.Now(),
		version:         cfg.Version,
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          logger,
	}

	// Register routes
	if cfg.MetricsEnabled {
		s.mux.Handle(cfg.MetricsPath, promhttp.Handler())
	}
	s.mux.HandleFunc(cfg.HealthPath, s.healthHandler)
	s.mux.HandleFunc(cfg.ReadyPath, s.readyHandler)
	s.mux.HandleFunc(cfg.LivePath, s.liveHandler)
	if api != nil {
		s.mux.Handle("/", api)
	}

	// No read/write timeouts: they would also cut long-lived websockets
	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// RegisterHealthCheck registers a health checker
func (s *Server) RegisterHealthCheck(name string, checker HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers[name] = checker
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.server.Addr).Msg("server listening")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// healthHandler returns detailed health status
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   s.version,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Checks:    make(map[string]string),
	}

	allHealthy := true
	for name, checker := range s.checkers {
		ok, msg := checker()
		if ok {
			status.Checks[name] = "ok"
		} else {
			status.Checks[name] = msg
			allHealthy = false
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if !allHealthy {
		status.Status = "unhealthy"
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Debug().Err(err).Msg("failed to encode health status")
	}
}

// readyHandler indicates if the service is ready to receive traffic
func (s *Server) readyHandler(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for name, checker := range s.checkers {
		ok, _ := checker()
		if !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprintf(w, "not ready: %s check failed", name)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// liveHandler indicates if the service is alive
func (s *Server) liveHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Addr returns the server address
func (s *Server) Addr() string {
	return s.server.Addr
}
