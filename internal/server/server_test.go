package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hfi/betabet/internal/api"
	"github.com/hfi/betabet/internal/storage"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping() error { return p.err }

func newTestServer(t *testing.T, cfg *Config) (*Server, *api.API) {
	t.Helper()
	a := api.New()
	t.Cleanup(func() { _ = a.Close() })
	return New(cfg, a, zerolog.Nop()), a
}

func getHealth(t *testing.T, srv *Server) (int, HealthStatus) {
	t.Helper()
	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var status HealthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	return rec.Code, status
}

func TestServer_HealthHandler(t *testing.T) {
	srv, _ := newTestServer(t, DefaultConfig())

	code, status := getHealth(t, srv)

	if code != http.StatusOK {
		t.Errorf("health status = %d, want %d", code, http.StatusOK)
	}
	if status.Status != "healthy" {
		t.Errorf("status = %q, want 'healthy'", status.Status)
	}
	if status.Version != "dev" {
		t.Errorf("version = %q, want 'dev'", status.Version)
	}
}

func TestServer_HealthHandler_ShareStore(t *testing.T) {
	srv, a := newTestServer(t, DefaultConfig())
	srv.RegisterHealthCheck("share_store", PingCheck(a.Store()))

	code, status := getHealth(t, srv)

	if code != http.StatusOK {
		t.Errorf("health status = %d, want %d", code, http.StatusOK)
	}
	if status.Checks["share_store"] != "ok" {
		t.Errorf("share_store check = %q, want 'ok'", status.Checks["share_store"])
	}
}

func TestServer_HealthHandler_Unhealthy(t *testing.T) {
	srv, _ := newTestServer(t, DefaultConfig())
	srv.RegisterHealthCheck("share_store", PingCheck(stubPinger{err: errors.New("connection refused")}))

	code, status := getHealth(t, srv)

	if code != http.StatusServiceUnavailable {
		t.Errorf("health status = %d, want %d", code, http.StatusServiceUnavailable)
	}
	if status.Status != "unhealthy" {
		t.Errorf("status = %q, want 'unhealthy'", status.Status)
	}
	if status.Checks["share_store"] != "connection refused" {
		t.Errorf("share_store check = %q, want 'connection refused'", status.Checks["share_store"])
	}
}

func TestServer_ReadyHandler(t *testing.T) {
	tests := []struct {
		name     string
		pingErr  error
		wantCode int
		wantBody string
	}{
		{"ready", nil, http.StatusOK, "ready"},
		{"store down", errors.New("timeout"), http.StatusServiceUnavailable, "not ready: share_store check failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, DefaultConfig())
			srv.RegisterHealthCheck("share_store", PingCheck(stubPinger{err: tt.pingErr}))

			req := httptest.NewRequest("GET", "/ready", nil)
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("ready status = %d, want %d", rec.Code, tt.wantCode)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestServer_LiveHandler(t *testing.T) {
	srv, _ := newTestServer(t, DefaultConfig())

	req := httptest.NewRequest("GET", "/live", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("live status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "alive" {
		t.Errorf("body = %q, want 'alive'", rec.Body.String())
	}
}

func TestServer_MetricsHandler(t *testing.T) {
	srv, _ := newTestServer(t, DefaultConfig())

	// Produce at least one API observation
	enc := httptest.NewRequest("POST", "/v1/encrypt", strings.NewReader(`{"text":"abc"}`))
	srv.Handler().ServeHTTP(httptest.NewRecorder(), enc)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("metrics status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "betabet_operations_total") {
		t.Error("metrics response should contain betabet_operations_total")
	}
}

func TestServer_MetricsDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MetricsEnabled = false
	srv, _ := newTestServer(t, cfg)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	// Falls through to the API router, which knows no such route
	if rec.Code != http.StatusNotFound {
		t.Errorf("metrics status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestServer_MountsAPI(t *testing.T) {
	srv, _ := newTestServer(t, DefaultConfig())

	req := httptest.NewRequest("POST", "/v1/encrypt", strings.NewReader(`{"text":"HELLO"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("encrypt status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "MEVVI") {
		t.Errorf("body = %q, want ciphertext MEVVI", rec.Body.String())
	}
}

func TestServer_WithoutAPI(t *testing.T) {
	srv := New(DefaultConfig(), nil, zerolog.Nop())

	req := httptest.NewRequest("POST", "/v1/encrypt", strings.NewReader(`{"text":"HELLO"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("encrypt status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestServer_Run(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.ShutdownTimeout = time.Second
	srv, _ := newTestServer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(ctx)
	}()

	// Give server time to start
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}
}

func TestServer_RunListenError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "invalid-address"
	srv, _ := newTestServer(t, cfg)

	if err := srv.Run(context.Background()); err == nil {
		t.Error("Run() expected listen error")
	}
}

func TestPingCheck_MemoryStore(t *testing.T) {
	store := storage.NewMemoryStore(time.Minute)
	check := PingCheck(store)

	if ok, msg := check(); !ok {
		t.Errorf("check() = false, %q; want ok", msg)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want ':8080'", cfg.Addr)
	}
	if !cfg.MetricsEnabled {
		t.Error("metrics should be enabled by default")
	}
	if cfg.MetricsPath != "/metrics" {
		t.Errorf("MetricsPath = %q, want '/metrics'", cfg.MetricsPath)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
}

func TestServer_Addr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = ":9191"
	srv := New(cfg, nil, zerolog.Nop())

	if srv.Addr() != ":9191" {
		t.Errorf("Addr() = %q, want ':9191'", srv.Addr())
	}
}
