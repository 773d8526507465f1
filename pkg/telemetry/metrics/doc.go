// Package metrics provides Prometheus metrics collection for the serverless
// gateway proxy.
//
// The Collector owns a prometheus.Registry and groups metrics by concern:
// proxied requests, upstream health and errors, rate limiting, and Ray
// cluster operations. All metric names share the configured namespace and
// subsystem (serverless_proxy_* by default).
package metrics
