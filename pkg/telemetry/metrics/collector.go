package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/richrines1/qiskit-serverless/pkg/config"
)

// Collector is the central registry for all Prometheus metrics in the proxy.
// It owns the prometheus.Registry and provides a unified recording interface
// for the middleware, upstream pool, rate limiter, and cluster manager.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	requestMetrics  *RequestMetrics
	upstreamMetrics *UpstreamMetrics
	limitMetrics    *LimitMetrics
	clusterMetrics  *ClusterMetrics
}

// NewCollector creates a new metrics collector with the specified
// configuration and Prometheus registry. If registry is nil, a fresh
// registry is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = "serverless"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "proxy"
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		cfg.RequestDurationBuckets = []float64{
			0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
		}
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
	}

	c.requestMetrics = NewRequestMetrics(cfg, registry)
	c.upstreamMetrics = NewUpstreamMetrics(cfg, registry)
	c.limitMetrics = NewLimitMetrics(cfg, registry)
	c.clusterMetrics = NewClusterMetrics(cfg, registry)

	return c
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordRequest records a completed proxied request.
func (c *Collector) RecordRequest(method, route, version, resource, status, upstream string, duration time.Duration, requestBytes, responseBytes int64) {
	if !c.config.Enabled {
		return
	}
	c.requestMetrics.RecordRequest(method, route, version, resource, status, upstream, duration, requestBytes, responseBytes)
}

// UpdateUpstreamHealth updates the health gauge for an upstream.
func (c *Collector) UpdateUpstreamHealth(upstream string, healthy bool) {
	if !c.config.Enabled {
		return
	}
	c.upstreamMetrics.UpdateHealth(upstream, healthy)
}

// RecordUpstreamError records an upstream error by type.
func (c *Collector) RecordUpstreamError(upstream, errorType string) {
	if !c.config.Enabled {
		return
	}
	c.upstreamMetrics.RecordError(upstream, errorType)
}

// RecordUpstreamRetry records a retry attempt against an upstream.
func (c *Collector) RecordUpstreamRetry(upstream string) {
	if !c.config.Enabled {
		return
	}
	c.upstreamMetrics.RecordRetry(upstream)
}

// RecordUpstreamLatency records upstream round-trip latency in seconds.
func (c *Collector) RecordUpstreamLatency(upstream string, seconds float64) {
	if !c.config.Enabled {
		return
	}
	c.upstreamMetrics.RecordLatency(upstream, seconds)
}

// RecordRateLimitRejection records a rate-limit rejection.
func (c *Collector) RecordRateLimitRejection(tier, reason string) {
	if !c.config.Enabled {
		return
	}
	c.limitMetrics.RecordRejection(tier, reason)
}

// RecordAuthFailure records an authentication failure.
func (c *Collector) RecordAuthFailure(reason string) {
	if !c.config.Enabled {
		return
	}
	c.limitMetrics.RecordAuthFailure(reason)
}

// IncInflight increments the in-flight request gauge.
func (c *Collector) IncInflight() {
	if !c.config.Enabled {
		return
	}
	c.limitMetrics.IncInflight()
}

// DecInflight decrements the in-flight request gauge.
func (c *Collector) DecInflight() {
	if !c.config.Enabled {
		return
	}
	c.limitMetrics.DecInflight()
}

// RecordClusterOperation records a cluster management operation.
func (c *Collector) RecordClusterOperation(operation, outcome string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.clusterMetrics.RecordOperation(operation, outcome, duration)
}
