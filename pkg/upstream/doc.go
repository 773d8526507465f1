// Package upstream manages the gateway replicas behind the proxy.
//
// Each upstream wraps a pooled HTTP client with retry and backoff for
// transient failures, and a circuit breaker that opens after three
// consecutive failures. A background health checker probes each upstream's
// health endpoint and closes the circuit once the replica recovers.
package upstream
