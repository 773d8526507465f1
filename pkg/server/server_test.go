package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/richrines1/qiskit-serverless/pkg/config"
	"github.com/richrines1/qiskit-serverless/pkg/telemetry/logging"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.New(&config.LoggingConfig{Level: "error", Format: "json"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("creating logger: %v", err)
	}
	return logger
}

func testConfig(backendURL string) *config.Config {
	return &config.Config{
		Proxy: config.ProxyConfig{ListenAddress: ":0"},
		Upstreams: map[string]config.UpstreamConfig{
			"gateway": {BaseURL: backendURL, Weight: 1, Timeout: 5 * time.Second},
		},
		API: config.APIConfig{
			DefaultVersion:  "v1",
			AllowedVersions: []string{"v1"},
		},
		Auth: config.AuthConfig{
			Mode: "static",
			Tokens: []config.TokenConfig{
				{Token: "secret-token", User: "alice", Tier: "default"},
			},
			Sources: []string{"header:Authorization:Bearer"},
		},
		Routing: config.RoutingConfig{Strategy: "round-robin"},
		Limits:  config.LimitsConfig{Enabled: false, Storage: "memory"},
		Audit:   config.AuditConfig{Enabled: true, Backend: "memory"},
		Telemetry: config.TelemetryConfig{
			Logging: config.LoggingConfig{Level: "error", Format: "json"},
			Metrics: config.MetricsConfig{
				Enabled:   true,
				Path:      "/metrics",
				Namespace: "serverless",
				Subsystem: "proxy",
			},
		},
	}
}

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"jobs":[]}`))
	}))
	t.Cleanup(backend.Close)

	s, err := New(testConfig(backend.URL), "test", testLogger(t))
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	return s, s.Handler()
}

func TestHealthEndpoint(t *testing.T) {
	_, handler := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, handler := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	_, handler := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAPIForwardsAuthenticated(t *testing.T) {
	_, handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %q", rec.Code, rec.Body.String())
	}
	if got := rec.Body.String(); got != `{"jobs":[]}` {
		t.Errorf("body = %q", got)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID response header")
	}
}

func TestAPIUnknownVersion(t *testing.T) {
	_, handler := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v9/jobs", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "not_found") {
		t.Errorf("body = %q, want not_found code", rec.Body.String())
	}
}

func TestAdminRequiresToken(t *testing.T) {
	_, handler := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/routing/stats", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/routing/stats", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated status = %d, want 200", rec.Code)
	}
}

func TestNewRejectsUnknownAuthMode(t *testing.T) {
	cfg := testConfig("http://gateway:8000")
	cfg.Auth.Mode = "oauth"

	if _, err := New(cfg, "test", testLogger(t)); err == nil {
		t.Fatal("expected error for unknown auth mode")
	}
}

func TestNewRejectsUnknownAuditBackend(t *testing.T) {
	cfg := testConfig("http://gateway:8000")
	cfg.Audit.Backend = "postgres"

	if _, err := New(cfg, "test", testLogger(t)); err == nil {
		t.Fatal("expected error for unknown audit backend")
	}
}
