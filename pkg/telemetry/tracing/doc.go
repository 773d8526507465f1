// Package tracing provides OpenTelemetry distributed tracing for the
// serverless gateway proxy.
//
// Spans are exported over OTLP/gRPC and propagated to upstreams with W3C
// trace context headers, so a request can be followed from the client
// through the proxy into the gateway.
package tracing
