// Package middleware provides the HTTP middleware chain for the serverless
// gateway proxy: request IDs, access logging, panic recovery, CORS, body
// size limits, per-request timeouts, Prometheus metrics, and distributed
// tracing.
//
// Middleware composes as func(http.Handler) http.Handler and is mounted on
// the chi router by the server package. Authentication and rate limiting
// middleware live with their subsystems in pkg/security/auth and pkg/limits.
package middleware
