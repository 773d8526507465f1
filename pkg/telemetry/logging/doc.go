// Package logging provides structured logging for the serverless gateway
// proxy, built on log/slog.
//
// Loggers are created from the telemetry configuration and tagged per
// component. Bearer token values are redacted before they reach log output.
// Context-aware variants extract request IDs, users, and upstream names from
// the request context automatically.
package logging
