package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

const minimalConfig = `
upstreams:
  gateway:
    base_url: http://gateway:8000
security:
  tls:
    cert_file: /certs/tls.crt
    key_file: /certs/tls.key
auth:
  tokens:
    - token: secret-token
      user: alice
`

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfigFile(t, minimalConfig)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Proxy.ListenAddress != ":8443" {
		t.Errorf("expected listen address :8443, got %q", cfg.Proxy.ListenAddress)
	}
	if cfg.Proxy.ShutdownTimeout != 30*time.Second {
		t.Errorf("expected shutdown timeout 30s, got %v", cfg.Proxy.ShutdownTimeout)
	}
	if cfg.API.DefaultVersion != "v1" {
		t.Errorf("expected default version v1, got %q", cfg.API.DefaultVersion)
	}
	if cfg.Auth.Mode != "static" {
		t.Errorf("expected auth mode static, got %q", cfg.Auth.Mode)
	}
	if cfg.Routing.Strategy != "round-robin" {
		t.Errorf("expected strategy round-robin, got %q", cfg.Routing.Strategy)
	}
	if !cfg.Routing.FallbackEnabled {
		t.Error("expected fallback enabled by default")
	}
	if !cfg.Limits.Enabled {
		t.Error("expected limits enabled by default")
	}
	if !cfg.Audit.Enabled {
		t.Error("expected audit enabled by default")
	}
	if !cfg.Security.TLS.Enabled {
		t.Error("expected TLS enabled by default")
	}
	if cfg.Security.TLS.MinVersion != "1.3" {
		t.Errorf("expected TLS min version 1.3, got %q", cfg.Security.TLS.MinVersion)
	}

	gw, ok := cfg.Upstreams["gateway"]
	if !ok {
		t.Fatal("expected gateway upstream")
	}
	if gw.MaxRetries != 3 {
		t.Errorf("expected 3 retries, got %d", gw.MaxRetries)
	}
	if gw.HealthPath != "/health" {
		t.Errorf("expected health path /health, got %q", gw.HealthPath)
	}
}

func TestLoadConfigExplicitDisable(t *testing.T) {
	path := writeConfigFile(t, minimalConfig+`
limits:
  enabled: false
audit:
  enabled: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Limits.Enabled {
		t.Error("expected limits disabled")
	}
	if cfg.Audit.Enabled {
		t.Error("expected audit disabled")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "proxy:\n  listen_address: [not a string")

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := NewDefault()
		cfg.Upstreams = map[string]UpstreamConfig{
			"gateway": {BaseURL: "http://gateway:8000"},
		}
		cfg.Auth.Tokens = []TokenConfig{{Token: "tok", User: "alice"}}
		cfg.Security.TLS.CertFile = "/certs/tls.crt"
		cfg.Security.TLS.KeyFile = "/certs/tls.key"
		ApplyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "valid config",
			mutate:    func(*Config) {},
			wantField: "",
		},
		{
			name:      "empty listen address",
			mutate:    func(c *Config) { c.Proxy.ListenAddress = "" },
			wantField: "proxy.listen_address",
		},
		{
			name:      "malformed listen address",
			mutate:    func(c *Config) { c.Proxy.ListenAddress = "no-port" },
			wantField: "proxy.listen_address",
		},
		{
			name:      "upstream missing base URL",
			mutate:    func(c *Config) { c.Upstreams["gateway"] = UpstreamConfig{} },
			wantField: "upstreams.gateway.base_url",
		},
		{
			name:      "upstream bad URL",
			mutate:    func(c *Config) { c.Upstreams["gateway"] = UpstreamConfig{BaseURL: "not-a-url"} },
			wantField: "upstreams.gateway.base_url",
		},
		{
			name:      "unknown auth mode",
			mutate:    func(c *Config) { c.Auth.Mode = "oauth" },
			wantField: "auth.mode",
		},
		{
			name: "static mode without tokens",
			mutate: func(c *Config) {
				c.Auth.Tokens = nil
				c.Auth.TokenFile = ""
			},
			wantField: "auth.tokens",
		},
		{
			name:      "unknown routing strategy",
			mutate:    func(c *Config) { c.Routing.Strategy = "random" },
			wantField: "routing.strategy",
		},
		{
			name: "manual routing without default upstream",
			mutate: func(c *Config) {
				c.Routing.Strategy = "manual"
				c.Routing.DefaultUpstream = ""
			},
			wantField: "routing.default_upstream",
		},
		{
			name:      "default upstream not configured",
			mutate:    func(c *Config) { c.Routing.DefaultUpstream = "missing" },
			wantField: "routing.default_upstream",
		},
		{
			name:      "unknown limits backend",
			mutate:    func(c *Config) { c.Limits.Storage = "redis" },
			wantField: "limits.storage",
		},
		{
			name:      "unknown audit backend",
			mutate:    func(c *Config) { c.Audit.Backend = "postgres" },
			wantField: "audit.backend",
		},
		{
			name:      "unknown log level",
			mutate:    func(c *Config) { c.Telemetry.Logging.Level = "verbose" },
			wantField: "telemetry.logging.level",
		},
		{
			name:      "sample ratio out of range",
			mutate:    func(c *Config) { c.Telemetry.Tracing.SampleRatio = 1.5 },
			wantField: "telemetry.tracing.sample_ratio",
		},
		{
			name:      "tls enabled without cert",
			mutate:    func(c *Config) { c.Security.TLS.CertFile = "" },
			wantField: "security.tls.cert_file",
		},
		{
			name:      "bad tls min version",
			mutate:    func(c *Config) { c.Security.TLS.MinVersion = "1.0" },
			wantField: "security.tls.min_version",
		},
		{
			name: "clusters enabled without chart",
			mutate: func(c *Config) {
				c.Clusters.Enabled = true
				c.Clusters.Chart = ""
			},
			wantField: "clusters.chart",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected valid config, got: %v", err)
				}
				return
			}

			if err == nil {
				t.Fatal("expected validation error")
			}
			verr, ok := err.(ValidationError)
			if !ok {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on field %q, got: %v", tt.wantField, err)
			}
		})
	}
}

func TestValidationErrorFormatting(t *testing.T) {
	err := ValidationError{Errors: []FieldError{
		{Field: "proxy.listen_address", Message: "must not be empty"},
		{Field: "auth.mode", Message: "unknown mode"},
	}}

	msg := err.Error()
	if !strings.Contains(msg, "2 errors") {
		t.Errorf("expected error count in message, got %q", msg)
	}
	if !strings.Contains(msg, "proxy.listen_address") {
		t.Errorf("expected field name in message, got %q", msg)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, minimalConfig)

	t.Setenv("SERVERLESS_PROXY_LISTEN_ADDRESS", ":9443")
	t.Setenv("SERVERLESS_AUTH_MODE", "upstream")
	t.Setenv("SERVERLESS_ROUTING_STRATEGY", "sticky")
	t.Setenv("SERVERLESS_LIMITS_ENABLED", "false")
	t.Setenv("SERVERLESS_TELEMETRY_LOGGING_LEVEL", "debug")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides failed: %v", err)
	}

	if cfg.Proxy.ListenAddress != ":9443" {
		t.Errorf("expected listen address :9443, got %q", cfg.Proxy.ListenAddress)
	}
	if cfg.Auth.Mode != "upstream" {
		t.Errorf("expected auth mode upstream, got %q", cfg.Auth.Mode)
	}
	if cfg.Routing.Strategy != "sticky" {
		t.Errorf("expected strategy sticky, got %q", cfg.Routing.Strategy)
	}
	if cfg.Limits.Enabled {
		t.Error("expected limits disabled via env")
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %q", cfg.Telemetry.Logging.Level)
	}
}

func TestEnvOverrideGatewayHost(t *testing.T) {
	path := writeConfigFile(t, `
auth:
  tokens:
    - token: tok
security:
  tls:
    cert_file: /certs/tls.crt
    key_file: /certs/tls.key
`)

	t.Setenv("SERVERLESS_GATEWAY_HOST", "http://gateway.svc:8000")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides failed: %v", err)
	}

	gw, ok := cfg.Upstreams["gateway"]
	if !ok {
		t.Fatal("expected gateway upstream created from env")
	}
	if gw.BaseURL != "http://gateway.svc:8000" {
		t.Errorf("unexpected base URL %q", gw.BaseURL)
	}
	if gw.MaxRetries != 3 {
		t.Errorf("expected defaults applied to env upstream, got retries %d", gw.MaxRetries)
	}
}

func TestSingleton(t *testing.T) {
	resetForTesting()
	t.Cleanup(resetForTesting)

	if _, err := GetConfig(); err == nil {
		t.Fatal("expected error before Initialize")
	}

	path := writeConfigFile(t, minimalConfig)
	if err := Initialize(path); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	cfg, err := GetConfig()
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}
	if cfg.Proxy.ListenAddress != ":8443" {
		t.Errorf("unexpected listen address %q", cfg.Proxy.ListenAddress)
	}

	// Second Initialize is a no-op.
	if err := Initialize("/nonexistent/other.yaml"); err != nil {
		t.Fatalf("second Initialize should be a no-op, got: %v", err)
	}

	if err := ReloadConfig(); err != nil {
		t.Fatalf("ReloadConfig failed: %v", err)
	}
}
