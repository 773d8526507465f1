package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/richrines1/qiskit-serverless/pkg/config"
)

// ClusterMetrics tracks Ray cluster management operations.
//
// Metrics:
//   - serverless_proxy_cluster_operations_total: Operations by type and outcome
//   - serverless_proxy_cluster_operation_duration_seconds: Operation duration
type ClusterMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

// NewClusterMetrics creates and registers cluster metrics with the provided registry.
func NewClusterMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ClusterMetrics {
	cm := &ClusterMetrics{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cluster_operations_total",
				Help:      "Total Ray cluster management operations",
			},
			[]string{"operation", "outcome"},
		),

		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cluster_operation_duration_seconds",
				Help:      "Duration of Ray cluster management operations in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"operation"},
		),
	}

	registry.MustRegister(cm.operationsTotal, cm.operationDuration)

	return cm
}

// RecordOperation records a cluster management operation.
func (cm *ClusterMetrics) RecordOperation(operation, outcome string, duration time.Duration) {
	cm.operationsTotal.WithLabelValues(operation, outcome).Inc()
	cm.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
