package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "proxy.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateProxy(&cfg.Proxy)...)
	errs = append(errs, validateUpstreams(cfg.Upstreams)...)
	errs = append(errs, validateAPI(&cfg.API)...)
	errs = append(errs, validateAuth(&cfg.Auth)...)
	errs = append(errs, validateRouting(cfg)...)
	errs = append(errs, validateLimits(&cfg.Limits)...)
	errs = append(errs, validateClusters(&cfg.Clusters)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateSecurity(&cfg.Security)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateProxy(p *ProxyConfig) []FieldError {
	var errs []FieldError

	if p.ListenAddress == "" {
		errs = append(errs, FieldError{"proxy.listen_address", "must not be empty"})
	} else if _, _, err := net.SplitHostPort(p.ListenAddress); err != nil {
		errs = append(errs, FieldError{"proxy.listen_address",
			fmt.Sprintf("invalid address %q: must be host:port", p.ListenAddress)})
	}

	if p.ReadTimeout < 0 {
		errs = append(errs, FieldError{"proxy.read_timeout", "must not be negative"})
	}
	if p.WriteTimeout < 0 {
		errs = append(errs, FieldError{"proxy.write_timeout", "must not be negative"})
	}
	if p.ShutdownTimeout <= 0 {
		errs = append(errs, FieldError{"proxy.shutdown_timeout", "must be positive"})
	}
	if p.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{"proxy.max_header_bytes", "must not be negative"})
	}

	return errs
}

func validateUpstreams(upstreams map[string]UpstreamConfig) []FieldError {
	var errs []FieldError

	for name, u := range upstreams {
		field := fmt.Sprintf("upstreams.%s", name)
		if u.BaseURL == "" {
			errs = append(errs, FieldError{field + ".base_url", "must not be empty"})
			continue
		}
		parsed, err := url.Parse(u.BaseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			errs = append(errs, FieldError{field + ".base_url",
				fmt.Sprintf("invalid URL %q: must include scheme and host", u.BaseURL)})
		}
		if u.MaxRetries < 0 {
			errs = append(errs, FieldError{field + ".max_retries", "must not be negative"})
		}
		if u.Timeout < 0 {
			errs = append(errs, FieldError{field + ".timeout", "must not be negative"})
		}
	}

	return errs
}

func validateAPI(a *APIConfig) []FieldError {
	var errs []FieldError

	if a.DefaultVersion == "" {
		errs = append(errs, FieldError{"api.default_version", "must not be empty"})
	}
	if !containsString(a.AllowedVersions, a.DefaultVersion) {
		errs = append(errs, FieldError{"api.allowed_versions",
			fmt.Sprintf("must include the default version %q", a.DefaultVersion)})
	}
	if a.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{"api.max_body_bytes", "must not be negative"})
	}

	return errs
}

func validateAuth(a *AuthConfig) []FieldError {
	var errs []FieldError

	switch a.Mode {
	case "static", "upstream":
	default:
		errs = append(errs, FieldError{"auth.mode",
			fmt.Sprintf("unknown mode %q: must be \"static\" or \"upstream\"", a.Mode)})
	}

	if a.Mode == "static" && len(a.Tokens) == 0 && a.TokenFile == "" {
		errs = append(errs, FieldError{"auth.tokens",
			"static mode requires at least one token or a token_file"})
	}

	for i, t := range a.Tokens {
		if t.Token == "" {
			errs = append(errs, FieldError{fmt.Sprintf("auth.tokens[%d].token", i),
				"must not be empty"})
		}
	}

	for i, s := range a.Sources {
		parts := strings.Split(s, ":")
		if len(parts) < 2 || (parts[0] != "header" && parts[0] != "query") {
			errs = append(errs, FieldError{fmt.Sprintf("auth.sources[%d]", i),
				fmt.Sprintf("invalid source %q: must be \"header:<name>[:<scheme>]\" or \"query:<param>\"", s)})
		}
	}

	return errs
}

func validateRouting(cfg *Config) []FieldError {
	var errs []FieldError
	r := &cfg.Routing

	switch r.Strategy {
	case "round-robin", "sticky", "health-based", "manual":
	default:
		errs = append(errs, FieldError{"routing.strategy",
			fmt.Sprintf("unknown strategy %q", r.Strategy)})
	}

	if r.Strategy == "manual" && r.DefaultUpstream == "" {
		errs = append(errs, FieldError{"routing.default_upstream",
			"manual strategy requires a default upstream"})
	}

	if r.DefaultUpstream != "" {
		if _, ok := cfg.Upstreams[r.DefaultUpstream]; !ok {
			errs = append(errs, FieldError{"routing.default_upstream",
				fmt.Sprintf("upstream %q is not configured", r.DefaultUpstream)})
		}
	}

	if r.Sticky.MaxEntries < 0 {
		errs = append(errs, FieldError{"routing.sticky.max_entries", "must not be negative"})
	}

	return errs
}

func validateLimits(l *LimitsConfig) []FieldError {
	var errs []FieldError

	for name, t := range l.Tiers {
		field := fmt.Sprintf("limits.tiers.%s", name)
		if t.RequestsPerSecond < 0 {
			errs = append(errs, FieldError{field + ".requests_per_second", "must not be negative"})
		}
		if t.Burst < 0 {
			errs = append(errs, FieldError{field + ".burst", "must not be negative"})
		}
		if t.MaxConcurrent < 0 {
			errs = append(errs, FieldError{field + ".max_concurrent", "must not be negative"})
		}
	}

	switch l.Storage {
	case "memory", "sqlite":
	default:
		errs = append(errs, FieldError{"limits.storage",
			fmt.Sprintf("unknown backend %q: must be \"memory\" or \"sqlite\"", l.Storage)})
	}

	return errs
}

func validateClusters(c *ClustersConfig) []FieldError {
	var errs []FieldError

	if !c.Enabled {
		return errs
	}

	if c.Namespace == "" {
		errs = append(errs, FieldError{"clusters.namespace", "must not be empty"})
	}
	if c.Chart == "" {
		errs = append(errs, FieldError{"clusters.chart", "must not be empty"})
	}
	if c.InstallTimeout <= 0 {
		errs = append(errs, FieldError{"clusters.install_timeout", "must be positive"})
	}

	return errs
}

func validateAudit(a *AuditConfig) []FieldError {
	var errs []FieldError

	switch a.Backend {
	case "sqlite", "memory":
	default:
		errs = append(errs, FieldError{"audit.backend",
			fmt.Sprintf("unknown backend %q: must be \"sqlite\" or \"memory\"", a.Backend)})
	}

	if a.Backend == "sqlite" && a.SQLite.Path == "" {
		errs = append(errs, FieldError{"audit.sqlite.path", "must not be empty"})
	}
	if a.Retention.Days < 0 {
		errs = append(errs, FieldError{"audit.retention.days", "must not be negative"})
	}
	if a.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{"audit.retention.max_records", "must not be negative"})
	}

	return errs
}

func validateTelemetry(t *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch t.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{"telemetry.logging.level",
			fmt.Sprintf("unknown level %q", t.Logging.Level)})
	}

	switch t.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{"telemetry.logging.format",
			fmt.Sprintf("unknown format %q", t.Logging.Format)})
	}

	if t.Tracing.SampleRatio < 0 || t.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{"telemetry.tracing.sample_ratio",
			"must be between 0 and 1"})
	}

	return errs
}

func validateSecurity(s *SecurityConfig) []FieldError {
	var errs []FieldError

	if s.TLS.Enabled {
		if s.TLS.CertFile == "" {
			errs = append(errs, FieldError{"security.tls.cert_file",
				"required when TLS is enabled"})
		}
		if s.TLS.KeyFile == "" {
			errs = append(errs, FieldError{"security.tls.key_file",
				"required when TLS is enabled"})
		}
	}

	switch s.TLS.MinVersion {
	case "1.2", "1.3":
	default:
		errs = append(errs, FieldError{"security.tls.min_version",
			fmt.Sprintf("unknown version %q: must be \"1.2\" or \"1.3\"", s.TLS.MinVersion)})
	}

	if s.TLS.MTLS.Enabled {
		if s.TLS.MTLS.ClientCAFile == "" {
			errs = append(errs, FieldError{"security.tls.mtls.client_ca_file",
				"required when mTLS is enabled"})
		}
		switch s.TLS.MTLS.ClientAuthType {
		case "require", "request", "verify_if_given":
		default:
			errs = append(errs, FieldError{"security.tls.mtls.client_auth_type",
				fmt.Sprintf("unknown type %q", s.TLS.MTLS.ClientAuthType)})
		}
	}

	return errs
}
