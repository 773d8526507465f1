package config

import "time"

// Config is the root configuration structure for the serverless gateway proxy.
// It contains all configuration sections for the HTTPS server, gateway
// upstreams, authentication, routing, rate limits, cluster management, audit
// storage, telemetry, and security settings.
type Config struct {
	// Proxy contains HTTPS server configuration including listen address,
	// timeouts, and connection limits.
	Proxy ProxyConfig `yaml:"proxy"`

	// Upstreams contains configuration for all gateway upstream replicas.
	// Keys are upstream names (e.g., "gateway-a", "gateway-b").
	Upstreams map[string]UpstreamConfig `yaml:"upstreams"`

	// API contains configuration for the proxied gateway API surface.
	API APIConfig `yaml:"api"`

	// Auth contains token authentication configuration.
	Auth AuthConfig `yaml:"auth"`

	// Routing contains configuration for upstream selection including
	// strategy, sticky routing, and fallback settings.
	Routing RoutingConfig `yaml:"routing"`

	// Limits contains configuration for per-token rate limiting and usage
	// tracking.
	Limits LimitsConfig `yaml:"limits"`

	// Clusters contains configuration for the Ray cluster manager.
	Clusters ClustersConfig `yaml:"clusters"`

	// Audit contains configuration for request audit recording and storage.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Security contains security-related configuration including TLS settings
	// and mutual TLS.
	Security SecurityConfig `yaml:"security"`
}

// ProxyConfig contains configuration for the HTTPS proxy server.
type ProxyConfig struct {
	// ListenAddress is the address and port for the proxy to listen on.
	// Format: "host:port" (e.g., ":8443", "0.0.0.0:8443").
	// Default: ":8443"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body. A zero or negative value means no timeout.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. File downloads stream through this deadline, so it should be
	// generous. A zero or negative value means no timeout.
	// Default: 5m
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled. If IdleTimeout is zero, ReadTimeout is used.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// If requests are still in-flight after this timeout, the server will
	// force shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes controls the maximum number of bytes the server will
	// read parsing the request header's keys and values, including the
	// request line. It does not limit the size of the request body.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS (Cross-Origin Resource Sharing) configuration.
type CORSConfig struct {
	// Enabled controls whether CORS is enabled.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins for CORS requests.
	// Use ["*"] to allow all origins (not recommended for production).
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods for CORS requests.
	// Default: ["GET", "POST", "PUT", "DELETE", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed HTTP headers for CORS requests.
	// Default: ["Authorization", "Content-Type", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// ExposedHeaders is a list of headers that are exposed to the client.
	// Default: ["X-Request-ID"]
	ExposedHeaders []string `yaml:"exposed_headers"`

	// MaxAge is the maximum age (in seconds) for preflight request cache.
	// Default: 3600 (1 hour)
	MaxAge int `yaml:"max_age"`

	// AllowCredentials controls whether credentials (cookies, auth headers)
	// are allowed in CORS requests.
	// Default: false
	AllowCredentials bool `yaml:"allow_credentials"`
}

// UpstreamConfig contains configuration for a single gateway upstream.
type UpstreamConfig struct {
	// BaseURL is the base URL for the gateway API endpoint.
	// Example: "http://gateway:8000"
	BaseURL string `yaml:"base_url"`

	// Timeout is the maximum duration for requests to this upstream.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the maximum number of retry attempts for failed requests.
	// Retries apply to network errors and 5xx responses only.
	// Default: 3
	MaxRetries int `yaml:"max_retries"`

	// Weight is the round-robin weight for this upstream. Higher weight
	// receives more traffic. Zero or negative excludes the upstream from
	// weighted selection.
	// Default: 1
	Weight int `yaml:"weight"`

	// HealthPath is the path polled by the background health checker.
	// Default: "/health"
	HealthPath string `yaml:"health_path"`

	// HealthInterval is how often the health checker polls the upstream.
	// Default: 30s
	HealthInterval time.Duration `yaml:"health_interval"`

	// MaxIdleConns is the maximum number of idle connections in the pool.
	// Default: 100
	MaxIdleConns int `yaml:"max_idle_conns"`

	// MaxIdleConnsPerHost is the maximum idle connections per host.
	// Default: 10
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host"`

	// IdleConnTimeout is how long idle connections are kept open.
	// Default: 90s
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

// APIConfig contains configuration for the proxied gateway API surface.
type APIConfig struct {
	// DefaultVersion is the gateway API version assumed when clients omit it.
	// Default: "v1"
	DefaultVersion string `yaml:"default_version"`

	// AllowedVersions lists the API versions the proxy will forward.
	// Requests for other versions are rejected with 404.
	// Default: ["v1"]
	AllowedVersions []string `yaml:"allowed_versions"`

	// MaxBodyBytes limits the size of request bodies the proxy will accept.
	// Zero means no limit. File uploads count against this limit.
	// Default: 536870912 (512MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// RequestTimeout is the per-request timeout applied by the timeout
	// middleware.
	// Default: 5m
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// AuthConfig contains token authentication configuration.
type AuthConfig struct {
	// Mode selects how bearer tokens are validated.
	// Options: "static" (allowlist from config/file), "upstream" (verify
	// against the gateway programs endpoint).
	// Default: "static"
	Mode string `yaml:"mode"`

	// Tokens is the inline token allowlist used in "static" mode.
	Tokens []TokenConfig `yaml:"tokens"`

	// TokenFile is an optional YAML file holding additional tokens in
	// "static" mode. The file is watched and hot-reloaded on change.
	TokenFile string `yaml:"token_file"`

	// VerifyTTL is how long a positive upstream verification is cached in
	// "upstream" mode.
	// Default: 5m
	VerifyTTL time.Duration `yaml:"verify_ttl"`

	// Sources configures where tokens are extracted from, in order.
	// Each source is "header:<name>[:<scheme>]" or "query:<param>".
	// Default: ["header:Authorization:Bearer"]
	Sources []string `yaml:"sources"`
}

// TokenConfig describes a single static token.
type TokenConfig struct {
	// Token is the bearer token value.
	Token string `yaml:"token"`

	// User is the user identifier associated with the token.
	User string `yaml:"user"`

	// Enabled controls whether the token is accepted. Nil means enabled.
	Enabled *bool `yaml:"enabled"`

	// Tier names the rate-limit tier applied to this token.
	// Default: "default"
	Tier string `yaml:"tier"`
}

// RoutingConfig contains configuration for upstream selection.
type RoutingConfig struct {
	// Strategy selects the routing strategy.
	// Options: "round-robin", "sticky", "health-based", "manual".
	// Default: "round-robin"
	Strategy string `yaml:"strategy"`

	// DefaultUpstream is the upstream used by the "manual" strategy and as
	// the last-resort fallback for the others.
	DefaultUpstream string `yaml:"default_upstream"`

	// Sticky configures sticky routing.
	Sticky StickyConfig `yaml:"sticky"`

	// FallbackEnabled allows routing to fall back to any healthy upstream
	// when the selected one is unavailable.
	// Default: true
	FallbackEnabled bool `yaml:"fallback_enabled"`
}

// StickyConfig configures the sticky routing cache.
type StickyConfig struct {
	// TTL is how long a sticky assignment lives.
	// Default: 30m
	TTL time.Duration `yaml:"ttl"`

	// MaxEntries bounds the sticky cache size (LRU eviction).
	// Default: 10000
	MaxEntries int `yaml:"max_entries"`
}

// LimitsConfig contains configuration for per-token rate limiting.
type LimitsConfig struct {
	// Enabled controls whether rate limiting is applied.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Tiers maps tier names to their limits. The "default" tier applies to
	// tokens without an explicit tier.
	Tiers map[string]TierConfig `yaml:"tiers"`

	// Storage selects the usage-tracking backend.
	// Options: "memory", "sqlite".
	// Default: "memory"
	Storage string `yaml:"storage"`

	// SQLitePath is the usage database path when Storage is "sqlite".
	// Default: "data/usage.db"
	SQLitePath string `yaml:"sqlite_path"`
}

// TierConfig describes the limits for one rate-limit tier.
type TierConfig struct {
	// RequestsPerSecond is the sustained request rate (token bucket refill).
	// Default: 10
	RequestsPerSecond int `yaml:"requests_per_second"`

	// Burst is the token bucket capacity.
	// Default: 20
	Burst int `yaml:"burst"`

	// MaxConcurrent limits simultaneous in-flight requests per token.
	// Zero means unlimited.
	MaxConcurrent int `yaml:"max_concurrent"`
}

// ClustersConfig contains configuration for the Ray cluster manager.
type ClustersConfig struct {
	// Enabled controls whether the cluster admin API and CLI are active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Namespace is the Kubernetes namespace holding Ray clusters.
	// Default: "serverless"
	Namespace string `yaml:"namespace"`

	// Chart is the Helm chart reference or local path used to create
	// clusters.
	// Default: "./charts/ray-cluster"
	Chart string `yaml:"chart"`

	// Kubeconfig is the path to a kubeconfig file. Empty uses in-cluster
	// config, then $KUBECONFIG, then ~/.kube/config.
	Kubeconfig string `yaml:"kubeconfig"`

	// HeadServiceSuffix is appended to a cluster name to form its head node
	// service name.
	// Default: "-ray-head"
	HeadServiceSuffix string `yaml:"head_service_suffix"`

	// InstallTimeout is the Helm install wait timeout.
	// Default: 5m
	InstallTimeout time.Duration `yaml:"install_timeout"`
}

// AuditConfig contains configuration for request audit recording.
type AuditConfig struct {
	// Enabled controls whether audit records are written.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the audit storage backend.
	// Options: "sqlite", "memory".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite configures the SQLite backend.
	SQLite AuditSQLiteConfig `yaml:"sqlite"`

	// Recorder configures the async audit recorder.
	Recorder AuditRecorderConfig `yaml:"recorder"`

	// Retention configures audit record retention.
	Retention AuditRetentionConfig `yaml:"retention"`
}

// AuditSQLiteConfig configures the SQLite audit backend.
type AuditSQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// AuditRecorderConfig configures the async audit recorder.
type AuditRecorderConfig struct {
	// AsyncBuffer is the size of the async write channel.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout is the timeout for writes to storage.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// AuditRetentionConfig configures audit record retention.
type AuditRetentionConfig struct {
	// Days is how many days of records to keep. Zero disables age pruning.
	// Default: 30
	Days int `yaml:"days"`

	// MaxRecords caps the total record count. Zero disables the cap.
	MaxRecords int64 `yaml:"max_records"`

	// PruneSchedule is a cron expression for scheduled pruning.
	// Empty disables the scheduler.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures Prometheus metrics.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing configures OpenTelemetry tracing.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format ("json", "text").
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the metrics endpoint path.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "serverless"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem label.
	// Default: "proxy"
	Subsystem string `yaml:"subsystem"`

	// RequestDurationBuckets are the histogram buckets (seconds) for
	// request durations.
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled controls whether traces are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// ServiceName identifies this service in traces.
	// Default: "serverless-proxy"
	ServiceName string `yaml:"service_name"`

	// Endpoint is the OTLP/gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS on the exporter connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the trace sampling ratio in [0, 1].
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`
}

// SecurityConfig contains TLS configuration.
type SecurityConfig struct {
	// TLS configures server TLS.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig configures server TLS.
type TLSConfig struct {
	// Enabled controls whether the server terminates TLS.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// CertFile is the path to the PEM-encoded certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded private key.
	KeyFile string `yaml:"key_file"`

	// MinVersion is the minimum TLS version ("1.2" or "1.3").
	// Default: "1.3"
	MinVersion string `yaml:"min_version"`

	// ReloadInterval is how often certificate files are checked for changes.
	// Default: 5m
	ReloadInterval time.Duration `yaml:"cert_reload_interval"`

	// MTLS configures mutual TLS.
	MTLS MTLSConfig `yaml:"mtls"`
}

// MTLSConfig configures mutual TLS (client certificate authentication).
type MTLSConfig struct {
	// Enabled controls whether client certificates are required.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// ClientCAFile is the PEM-encoded CA used to verify client certificates.
	ClientCAFile string `yaml:"client_ca_file"`

	// ClientAuthType specifies how to handle client certificates:
	// "require", "request", or "verify_if_given".
	// Default: "require"
	ClientAuthType string `yaml:"client_auth_type"`
}
