// Package server assembles and runs the HTTPS proxy: it wires the upstream
// manager, router, authentication, rate limits, the audit pipeline, and the
// optional cluster manager into one http.Server with graceful shutdown.
package server
