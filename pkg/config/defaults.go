package config

import "time"

// Default values applied by ApplyDefaults. Defaults follow the container
// packaging contract: the proxy listens on 8443 with TLS enabled.
const (
	DefaultListenAddress   = ":8443"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 5 * time.Minute
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1 << 20 // 1MB

	DefaultUpstreamTimeout     = 60 * time.Second
	DefaultUpstreamMaxRetries  = 3
	DefaultUpstreamWeight      = 1
	DefaultHealthPath          = "/health"
	DefaultHealthInterval      = 30 * time.Second
	DefaultMaxIdleConns        = 100
	DefaultMaxIdleConnsPerHost = 10
	DefaultIdleConnTimeout     = 90 * time.Second

	DefaultAPIVersion     = "v1"
	DefaultMaxBodyBytes   = 512 << 20 // 512MB
	DefaultRequestTimeout = 5 * time.Minute

	DefaultAuthMode  = "static"
	DefaultVerifyTTL = 5 * time.Minute

	DefaultRoutingStrategy  = "round-robin"
	DefaultStickyTTL        = 30 * time.Minute
	DefaultStickyMaxEntries = 10000

	DefaultTierRPS   = 10
	DefaultTierBurst = 20

	DefaultClusterNamespace  = "serverless"
	DefaultClusterChart      = "./charts/ray-cluster"
	DefaultHeadServiceSuffix = "-ray-head"
	DefaultInstallTimeout    = 5 * time.Minute

	DefaultAuditBackend       = "sqlite"
	DefaultAuditSQLitePath    = "data/audit.db"
	DefaultAuditMaxOpenConns  = 10
	DefaultAuditMaxIdleConns  = 5
	DefaultAuditBusyTimeout   = 5 * time.Second
	DefaultAuditAsyncBuffer   = 1000
	DefaultAuditWriteTimeout  = 5 * time.Second
	DefaultAuditRetentionDays = 30
	DefaultAuditPruneSchedule = "0 3 * * *"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "serverless"
	DefaultMetricsSubsystem = "proxy"

	DefaultTracingServiceName = "serverless-proxy"
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingSampleRatio = 0.1

	DefaultTLSMinVersion    = "1.3"
	DefaultTLSReload        = 5 * time.Minute
	DefaultMTLSClientAuth   = "require"
	DefaultLimitsStorage    = "memory"
	DefaultLimitsSQLitePath = "data/usage.db"
)

// NewDefault returns a configuration pre-seeded with the boolean defaults
// that cannot be recovered after YAML unmarshaling (an omitted `enabled:`
// field and an explicit `enabled: false` are indistinguishable afterwards).
// LoadConfig unmarshals the file over this base so omitted fields keep
// their defaults.
func NewDefault() *Config {
	cfg := &Config{}
	cfg.Limits.Enabled = true
	cfg.Audit.Enabled = true
	cfg.Telemetry.Metrics.Enabled = true
	cfg.Security.TLS.Enabled = true
	cfg.Routing.FallbackEnabled = true
	cfg.Audit.SQLite.WALMode = true
	cfg.Telemetry.Tracing.Insecure = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in default values for any zero-valued configuration
// fields. It mutates the given config in place and is safe to call multiple
// times.
func ApplyDefaults(cfg *Config) {
	applyProxyDefaults(&cfg.Proxy)
	applyUpstreamDefaults(cfg)
	applyAPIDefaults(&cfg.API)
	applyAuthDefaults(&cfg.Auth)
	applyRoutingDefaults(&cfg.Routing)
	applyLimitsDefaults(&cfg.Limits)
	applyClustersDefaults(&cfg.Clusters)
	applyAuditDefaults(&cfg.Audit)
	applyTelemetryDefaults(&cfg.Telemetry)
	applySecurityDefaults(&cfg.Security)
}

func applyProxyDefaults(p *ProxyConfig) {
	if p.ListenAddress == "" {
		p.ListenAddress = DefaultListenAddress
	}
	if p.ReadTimeout == 0 {
		p.ReadTimeout = DefaultReadTimeout
	}
	if p.WriteTimeout == 0 {
		p.WriteTimeout = DefaultWriteTimeout
	}
	if p.IdleTimeout == 0 {
		p.IdleTimeout = DefaultIdleTimeout
	}
	if p.ShutdownTimeout == 0 {
		p.ShutdownTimeout = DefaultShutdownTimeout
	}
	if p.MaxHeaderBytes == 0 {
		p.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if len(p.CORS.AllowedOrigins) == 0 {
		p.CORS.AllowedOrigins = []string{"*"}
	}
	if len(p.CORS.AllowedMethods) == 0 {
		p.CORS.AllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(p.CORS.AllowedHeaders) == 0 {
		p.CORS.AllowedHeaders = []string{"Authorization", "Content-Type", "X-Request-ID"}
	}
	if len(p.CORS.ExposedHeaders) == 0 {
		p.CORS.ExposedHeaders = []string{"X-Request-ID"}
	}
	if p.CORS.MaxAge == 0 {
		p.CORS.MaxAge = 3600
	}
}

func applyUpstreamDefaults(cfg *Config) {
	for name, u := range cfg.Upstreams {
		if u.Timeout == 0 {
			u.Timeout = DefaultUpstreamTimeout
		}
		if u.MaxRetries == 0 {
			u.MaxRetries = DefaultUpstreamMaxRetries
		}
		if u.Weight == 0 {
			u.Weight = DefaultUpstreamWeight
		}
		if u.HealthPath == "" {
			u.HealthPath = DefaultHealthPath
		}
		if u.HealthInterval == 0 {
			u.HealthInterval = DefaultHealthInterval
		}
		if u.MaxIdleConns == 0 {
			u.MaxIdleConns = DefaultMaxIdleConns
		}
		if u.MaxIdleConnsPerHost == 0 {
			u.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost
		}
		if u.IdleConnTimeout == 0 {
			u.IdleConnTimeout = DefaultIdleConnTimeout
		}
		cfg.Upstreams[name] = u
	}
}

func applyAPIDefaults(a *APIConfig) {
	if a.DefaultVersion == "" {
		a.DefaultVersion = DefaultAPIVersion
	}
	if len(a.AllowedVersions) == 0 {
		a.AllowedVersions = []string{DefaultAPIVersion}
	}
	if a.MaxBodyBytes == 0 {
		a.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if a.RequestTimeout == 0 {
		a.RequestTimeout = DefaultRequestTimeout
	}
}

func applyAuthDefaults(a *AuthConfig) {
	if a.Mode == "" {
		a.Mode = DefaultAuthMode
	}
	if a.VerifyTTL == 0 {
		a.VerifyTTL = DefaultVerifyTTL
	}
	if len(a.Sources) == 0 {
		a.Sources = []string{"header:Authorization:Bearer"}
	}
	for i := range a.Tokens {
		if a.Tokens[i].Tier == "" {
			a.Tokens[i].Tier = "default"
		}
	}
}

func applyRoutingDefaults(r *RoutingConfig) {
	if r.Strategy == "" {
		r.Strategy = DefaultRoutingStrategy
	}
	if r.Sticky.TTL == 0 {
		r.Sticky.TTL = DefaultStickyTTL
	}
	if r.Sticky.MaxEntries == 0 {
		r.Sticky.MaxEntries = DefaultStickyMaxEntries
	}
}

func applyLimitsDefaults(l *LimitsConfig) {
	if l.Tiers == nil {
		l.Tiers = make(map[string]TierConfig)
	}
	if _, ok := l.Tiers["default"]; !ok {
		l.Tiers["default"] = TierConfig{
			RequestsPerSecond: DefaultTierRPS,
			Burst:             DefaultTierBurst,
		}
	}
	for name, t := range l.Tiers {
		if t.RequestsPerSecond == 0 {
			t.RequestsPerSecond = DefaultTierRPS
		}
		if t.Burst == 0 {
			t.Burst = DefaultTierBurst
		}
		l.Tiers[name] = t
	}
	if l.Storage == "" {
		l.Storage = DefaultLimitsStorage
	}
	if l.SQLitePath == "" {
		l.SQLitePath = DefaultLimitsSQLitePath
	}
}

func applyClustersDefaults(c *ClustersConfig) {
	if c.Namespace == "" {
		c.Namespace = DefaultClusterNamespace
	}
	if c.Chart == "" {
		c.Chart = DefaultClusterChart
	}
	if c.HeadServiceSuffix == "" {
		c.HeadServiceSuffix = DefaultHeadServiceSuffix
	}
	if c.InstallTimeout == 0 {
		c.InstallTimeout = DefaultInstallTimeout
	}
}

func applyAuditDefaults(a *AuditConfig) {
	if a.Backend == "" {
		a.Backend = DefaultAuditBackend
	}
	if a.SQLite.Path == "" {
		a.SQLite.Path = DefaultAuditSQLitePath
	}
	if a.SQLite.MaxOpenConns == 0 {
		a.SQLite.MaxOpenConns = DefaultAuditMaxOpenConns
	}
	if a.SQLite.MaxIdleConns == 0 {
		a.SQLite.MaxIdleConns = DefaultAuditMaxIdleConns
	}
	if a.SQLite.BusyTimeout == 0 {
		a.SQLite.BusyTimeout = DefaultAuditBusyTimeout
	}
	if a.Recorder.AsyncBuffer == 0 {
		a.Recorder.AsyncBuffer = DefaultAuditAsyncBuffer
	}
	if a.Recorder.WriteTimeout == 0 {
		a.Recorder.WriteTimeout = DefaultAuditWriteTimeout
	}
	if a.Retention.Days == 0 {
		a.Retention.Days = DefaultAuditRetentionDays
	}
	if a.Retention.PruneSchedule == "" {
		a.Retention.PruneSchedule = DefaultAuditPruneSchedule
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLogLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLogFormat
	}
	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Metrics.Subsystem == "" {
		t.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(t.Metrics.RequestDurationBuckets) == 0 {
		t.Metrics.RequestDurationBuckets = []float64{
			0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
		}
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.Endpoint == "" {
		t.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
}

func applySecurityDefaults(s *SecurityConfig) {
	if s.TLS.MinVersion == "" {
		s.TLS.MinVersion = DefaultTLSMinVersion
	}
	if s.TLS.ReloadInterval == 0 {
		s.TLS.ReloadInterval = DefaultTLSReload
	}
	if s.TLS.MTLS.ClientAuthType == "" {
		s.TLS.MTLS.ClientAuthType = DefaultMTLSClientAuth
	}
}
