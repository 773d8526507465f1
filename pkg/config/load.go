package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := NewDefault()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention SERVERLESS_SECTION_FIELD (e.g. SERVERLESS_PROXY_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables use the format SERVERLESS_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Proxy overrides
	if val := os.Getenv("SERVERLESS_PROXY_LISTEN_ADDRESS"); val != "" {
		cfg.Proxy.ListenAddress = val
	}
	if val := os.Getenv("SERVERLESS_PROXY_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Proxy.ReadTimeout = d
		}
	}
	if val := os.Getenv("SERVERLESS_PROXY_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Proxy.WriteTimeout = d
		}
	}
	if val := os.Getenv("SERVERLESS_PROXY_IDLE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Proxy.IdleTimeout = d
		}
	}
	if val := os.Getenv("SERVERLESS_PROXY_MAX_HEADER_BYTES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Proxy.MaxHeaderBytes = i
		}
	}

	// Gateway upstream overrides. GATEWAY_HOST mirrors the environment
	// variable the original client reads; it configures a single upstream
	// named "gateway" without a config file.
	if val := os.Getenv("SERVERLESS_GATEWAY_HOST"); val != "" {
		if cfg.Upstreams == nil {
			cfg.Upstreams = make(map[string]UpstreamConfig)
		}
		u := cfg.Upstreams["gateway"]
		u.BaseURL = val
		cfg.Upstreams["gateway"] = u
		applyUpstreamDefaults(cfg)
	}
	if val := os.Getenv("SERVERLESS_GATEWAY_VERSION"); val != "" {
		cfg.API.DefaultVersion = val
		if !containsString(cfg.API.AllowedVersions, val) {
			cfg.API.AllowedVersions = append(cfg.API.AllowedVersions, val)
		}
	}

	// Auth overrides
	if val := os.Getenv("SERVERLESS_AUTH_MODE"); val != "" {
		cfg.Auth.Mode = val
	}
	if val := os.Getenv("SERVERLESS_AUTH_TOKEN_FILE"); val != "" {
		cfg.Auth.TokenFile = val
	}
	if val := os.Getenv("SERVERLESS_AUTH_VERIFY_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Auth.VerifyTTL = d
		}
	}

	// Routing overrides
	if val := os.Getenv("SERVERLESS_ROUTING_STRATEGY"); val != "" {
		cfg.Routing.Strategy = val
	}
	if val := os.Getenv("SERVERLESS_ROUTING_DEFAULT_UPSTREAM"); val != "" {
		cfg.Routing.DefaultUpstream = val
	}

	// Limits overrides
	if val := os.Getenv("SERVERLESS_LIMITS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Limits.Enabled = b
		}
	}
	if val := os.Getenv("SERVERLESS_LIMITS_STORAGE"); val != "" {
		cfg.Limits.Storage = val
	}
	if val := os.Getenv("SERVERLESS_LIMITS_SQLITE_PATH"); val != "" {
		cfg.Limits.SQLitePath = val
	}

	// Cluster overrides
	if val := os.Getenv("SERVERLESS_CLUSTERS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Clusters.Enabled = b
		}
	}
	if val := os.Getenv("SERVERLESS_CLUSTERS_NAMESPACE"); val != "" {
		cfg.Clusters.Namespace = val
	}
	if val := os.Getenv("SERVERLESS_CLUSTERS_CHART"); val != "" {
		cfg.Clusters.Chart = val
	}
	if val := os.Getenv("SERVERLESS_CLUSTERS_KUBECONFIG"); val != "" {
		cfg.Clusters.Kubeconfig = val
	}

	// Audit overrides
	if val := os.Getenv("SERVERLESS_AUDIT_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Audit.Enabled = b
		}
	}
	if val := os.Getenv("SERVERLESS_AUDIT_BACKEND"); val != "" {
		cfg.Audit.Backend = val
	}
	if val := os.Getenv("SERVERLESS_AUDIT_SQLITE_PATH"); val != "" {
		cfg.Audit.SQLite.Path = val
	}
	if val := os.Getenv("SERVERLESS_AUDIT_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Audit.Retention.Days = i
		}
	}

	// Telemetry overrides
	if val := os.Getenv("SERVERLESS_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("SERVERLESS_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("SERVERLESS_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("SERVERLESS_TELEMETRY_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val := os.Getenv("SERVERLESS_TELEMETRY_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
	if val := os.Getenv("SERVERLESS_TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}

	// Security overrides
	if val := os.Getenv("SERVERLESS_SECURITY_TLS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Security.TLS.Enabled = b
		}
	}
	if val := os.Getenv("SERVERLESS_SECURITY_TLS_CERT_FILE"); val != "" {
		cfg.Security.TLS.CertFile = val
	}
	if val := os.Getenv("SERVERLESS_SECURITY_TLS_KEY_FILE"); val != "" {
		cfg.Security.TLS.KeyFile = val
	}
	if val := os.Getenv("SERVERLESS_SECURITY_MTLS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Security.TLS.MTLS.Enabled = b
		}
	}
	if val := os.Getenv("SERVERLESS_SECURITY_MTLS_CA_FILE"); val != "" {
		cfg.Security.TLS.MTLS.ClientCAFile = val
	}
}

// containsString reports whether s is present in list.
func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
