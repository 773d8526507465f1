package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/richrines1/qiskit-serverless/pkg/config"
)

// UpstreamMetrics tracks health and errors for gateway upstreams.
//
// Metrics:
//   - serverless_proxy_upstream_healthy: Health gauge per upstream (1=healthy)
//   - serverless_proxy_upstream_errors_total: Upstream errors by type
//   - serverless_proxy_upstream_retries_total: Retry attempts per upstream
//   - serverless_proxy_upstream_latency_seconds: Upstream round-trip latency
type UpstreamMetrics struct {
	healthy      *prometheus.GaugeVec
	errorsTotal  *prometheus.CounterVec
	retriesTotal *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

// NewUpstreamMetrics creates and registers upstream metrics with the provided registry.
func NewUpstreamMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *UpstreamMetrics {
	um := &UpstreamMetrics{
		healthy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "upstream_healthy",
				Help:      "Upstream health status (1=healthy, 0=unhealthy)",
			},
			[]string{"upstream"},
		),

		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "upstream_errors_total",
				Help:      "Total upstream errors by type",
			},
			[]string{"upstream", "error_type"},
		),

		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "upstream_retries_total",
				Help:      "Total retry attempts against upstreams",
			},
			[]string{"upstream"},
		),

		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "upstream_latency_seconds",
				Help:      "Round-trip latency of upstream requests in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"upstream"},
		),
	}

	registry.MustRegister(um.healthy, um.errorsTotal, um.retriesTotal, um.latency)

	return um
}

// UpdateHealth updates the health gauge for an upstream.
func (um *UpstreamMetrics) UpdateHealth(upstream string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1.0
	}
	um.healthy.WithLabelValues(upstream).Set(v)
}

// RecordError records an upstream error by type.
func (um *UpstreamMetrics) RecordError(upstream, errorType string) {
	um.errorsTotal.WithLabelValues(upstream, errorType).Inc()
}

// RecordRetry records a retry attempt against an upstream.
func (um *UpstreamMetrics) RecordRetry(upstream string) {
	um.retriesTotal.WithLabelValues(upstream).Inc()
}

// RecordLatency records the round-trip latency of an upstream request.
func (um *UpstreamMetrics) RecordLatency(upstream string, seconds float64) {
	um.latency.WithLabelValues(upstream).Observe(seconds)
}
