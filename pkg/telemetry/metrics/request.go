package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/richrines1/qiskit-serverless/pkg/config"
)

// RequestMetrics tracks metrics for proxied gateway requests.
//
// Metrics:
//   - serverless_proxy_requests_total: Request count by method, route, version, resource, status, upstream
//   - serverless_proxy_request_duration_seconds: Request duration histogram by method, route, version, resource, upstream
//   - serverless_proxy_request_size_bytes: Request body size histogram
//   - serverless_proxy_response_size_bytes: Response body size histogram
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestSize     *prometheus.HistogramVec
	responseSize    *prometheus.HistogramVec
}

// NewRequestMetrics creates and registers request metrics with the provided registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	sizeBuckets := prometheus.ExponentialBuckets(256, 4, 10)

	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of proxied requests",
			},
			[]string{"method", "route", "version", "resource", "status", "upstream"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "Duration of proxied requests in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"method", "route", "version", "resource", "upstream"},
		),

		requestSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_size_bytes",
				Help:      "Size of proxied request bodies in bytes",
				Buckets:   sizeBuckets,
			},
			[]string{"route"},
		),

		responseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "response_size_bytes",
				Help:      "Size of proxied response bodies in bytes",
				Buckets:   sizeBuckets,
			},
			[]string{"route"},
		),
	}

	registry.MustRegister(rm.requestsTotal, rm.requestDuration, rm.requestSize, rm.responseSize)

	return rm
}

// RecordRequest records a completed proxied request. Version and resource
// are empty for requests that never reach the forwarding handler.
func (rm *RequestMetrics) RecordRequest(method, route, version, resource, status, upstream string, duration time.Duration, requestBytes, responseBytes int64) {
	rm.requestsTotal.WithLabelValues(method, route, version, resource, status, upstream).Inc()
	rm.requestDuration.WithLabelValues(method, route, version, resource, upstream).Observe(duration.Seconds())
	if requestBytes > 0 {
		rm.requestSize.WithLabelValues(route).Observe(float64(requestBytes))
	}
	if responseBytes > 0 {
		rm.responseSize.WithLabelValues(route).Observe(float64(responseBytes))
	}
}
