package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/richrines1/qiskit-serverless/pkg/config"
)

// LimitMetrics tracks rate limiting and authentication outcomes.
//
// Metrics:
//   - serverless_proxy_ratelimit_rejections_total: Rejected requests by tier
//   - serverless_proxy_inflight_requests: In-flight request gauge
//   - serverless_proxy_auth_failures_total: Authentication failures by reason
type LimitMetrics struct {
	rejectionsTotal *prometheus.CounterVec
	inflight        prometheus.Gauge
	authFailures    *prometheus.CounterVec
}

// NewLimitMetrics creates and registers limit metrics with the provided registry.
func NewLimitMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *LimitMetrics {
	lm := &LimitMetrics{
		rejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ratelimit_rejections_total",
				Help:      "Total requests rejected by rate limiting",
			},
			[]string{"tier", "reason"},
		),

		inflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "inflight_requests",
				Help:      "Number of requests currently being proxied",
			},
		),

		authFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "auth_failures_total",
				Help:      "Total authentication failures by reason",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(lm.rejectionsTotal, lm.inflight, lm.authFailures)

	return lm
}

// RecordRejection records a rate-limit rejection.
func (lm *LimitMetrics) RecordRejection(tier, reason string) {
	lm.rejectionsTotal.WithLabelValues(tier, reason).Inc()
}

// IncInflight increments the in-flight request gauge.
func (lm *LimitMetrics) IncInflight() {
	lm.inflight.Inc()
}

// DecInflight decrements the in-flight request gauge.
func (lm *LimitMetrics) DecInflight() {
	lm.inflight.Dec()
}

// RecordAuthFailure records an authentication failure.
func (lm *LimitMetrics) RecordAuthFailure(reason string) {
	lm.authFailures.WithLabelValues(reason).Inc()
}
