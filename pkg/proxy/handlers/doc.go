// Package handlers contains the HTTP handlers served by the proxy: the
// transparent forwarder for API traffic, health and readiness probes, the
// compute-cluster admin API, and admin endpoints for routing statistics,
// usage counters, and audit queries.
package handlers
