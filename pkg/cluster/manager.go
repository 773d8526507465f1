package cluster

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/richrines1/qiskit-serverless/pkg/config"
	"github.com/richrines1/qiskit-serverless/pkg/telemetry/logging"
	"github.com/richrines1/qiskit-serverless/pkg/telemetry/metrics"
)

// Cluster names become Helm release and Kubernetes service names, so they
// must be valid DNS labels.
var nameRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,51}[a-z0-9])?$`)

// Manager creates, inspects, and deletes Ray clusters in one Kubernetes
// namespace. Clusters are materialized as Helm releases; each is reachable
// through a head node service named <cluster><suffix>.
type Manager struct {
	cfg       *config.ClustersConfig
	clientset kubernetes.Interface
	releaser  releaser
	logger    *logging.Logger
	collector *metrics.Collector
}

// NewManager connects to Kubernetes and prepares the Helm releaser.
func NewManager(cfg *config.ClustersConfig, logger *logging.Logger, collector *metrics.Collector) (*Manager, error) {
	restCfg, err := restConfig(cfg.Kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("resolving kubernetes config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("creating kubernetes client: %w", err)
	}

	return newManager(cfg, clientset, newHelmReleaser(cfg, logger), logger, collector), nil
}

func newManager(cfg *config.ClustersConfig, clientset kubernetes.Interface, rel releaser, logger *logging.Logger, collector *metrics.Collector) *Manager {
	return &Manager{
		cfg:       cfg,
		clientset: clientset,
		releaser:  rel,
		logger:    logger.Component("cluster.manager"),
		collector: collector,
	}
}

// List returns all clusters in the namespace, identified by their head node
// services.
func (m *Manager) List(ctx context.Context) ([]Cluster, error) {
	start := time.Now()

	services, err := m.clientset.CoreV1().Services(m.cfg.Namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		m.recordOperation("list", "error", start)
		return nil, &OperationError{Op: "list", Err: err}
	}

	clusters := make([]Cluster, 0)
	for _, svc := range services.Items {
		name, ok := strings.CutSuffix(svc.Name, m.cfg.HeadServiceSuffix)
		if !ok || name == "" {
			continue
		}
		clusters = append(clusters, Cluster{Name: name, Host: svc.Name})
	}

	m.recordOperation("list", "success", start)
	m.logger.Debug("listed clusters", "count", len(clusters))
	return clusters, nil
}

// Get returns a cluster's head service address.
func (m *Manager) Get(ctx context.Context, name string) (*Cluster, error) {
	start := time.Now()
	host := name + m.cfg.HeadServiceSuffix

	svc, err := m.clientset.CoreV1().Services(m.cfg.Namespace).Get(ctx, host, metav1.GetOptions{})
	if err != nil {
		if k8serrors.IsNotFound(err) {
			m.recordOperation("get", "not_found", start)
			return nil, fmt.Errorf("getting cluster %q: %w", name, ErrClusterNotFound)
		}
		m.recordOperation("get", "error", start)
		return nil, &OperationError{Op: "get", Cluster: name, Err: err}
	}

	cluster := &Cluster{
		Name: name,
		Host: host,
		IP:   svc.Spec.ClusterIP,
	}
	if len(svc.Spec.Ports) > 0 {
		cluster.Port = svc.Spec.Ports[0].TargetPort.String()
	}

	m.recordOperation("get", "success", start)
	return cluster, nil
}

// Create installs a new cluster release.
func (m *Manager) Create(ctx context.Context, name string) (*Cluster, error) {
	if !nameRe.MatchString(name) {
		return nil, &OperationError{Op: "create", Cluster: name, Err: ErrInvalidName}
	}

	start := time.Now()
	m.logger.InfoContext(ctx, "creating cluster", "name", name)

	if err := m.releaser.Install(name); err != nil {
		m.recordOperation("create", "error", start)
		return nil, &OperationError{Op: "create", Cluster: name, Err: err}
	}

	m.recordOperation("create", "success", start)
	return &Cluster{Name: name, Host: name + m.cfg.HeadServiceSuffix}, nil
}

// Delete removes a cluster's release.
func (m *Manager) Delete(ctx context.Context, name string) error {
	start := time.Now()
	m.logger.InfoContext(ctx, "deleting cluster", "name", name)

	if err := m.releaser.Uninstall(name); err != nil {
		if errors.Is(err, ErrClusterNotFound) {
			m.recordOperation("delete", "not_found", start)
			return fmt.Errorf("deleting cluster %q: %w", name, ErrClusterNotFound)
		}
		m.recordOperation("delete", "error", start)
		return &OperationError{Op: "delete", Cluster: name, Err: err}
	}

	m.recordOperation("delete", "success", start)
	return nil
}

func (m *Manager) recordOperation(operation, outcome string, start time.Time) {
	if m.collector != nil {
		m.collector.RecordClusterOperation(operation, outcome, time.Since(start))
	}
}
