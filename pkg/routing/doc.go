// Package routing selects which gateway upstream serves each request.
//
// The router filters to healthy upstreams, applies the configured strategy
// (round-robin, sticky, health-based, or manual), and optionally falls back
// to any healthy upstream when the strategy's choice is unavailable.
// Selection statistics are exposed through the admin API.
package routing
