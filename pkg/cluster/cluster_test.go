package cluster

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/richrines1/qiskit-serverless/pkg/config"
	"github.com/richrines1/qiskit-serverless/pkg/telemetry/logging"
)

type fakeReleaser struct {
	installed   []string
	uninstalled []string
	installErr  error
	notFound    bool
}

func (f *fakeReleaser) Install(name string) error {
	if f.installErr != nil {
		return f.installErr
	}
	f.installed = append(f.installed, name)
	return nil
}

func (f *fakeReleaser) Uninstall(name string) error {
	if f.notFound {
		return ErrClusterNotFound
	}
	f.uninstalled = append(f.uninstalled, name)
	return nil
}

func testClusterConfig() *config.ClustersConfig {
	return &config.ClustersConfig{
		Enabled:           true,
		Namespace:         "serverless",
		Chart:             "./charts/ray-cluster",
		HeadServiceSuffix: "-ray-head",
		InstallTimeout:    time.Minute,
	}
}

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.New(&config.LoggingConfig{Level: "error", Format: "json"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("creating logger: %v", err)
	}
	return logger
}

func headService(name, ip string, targetPort int) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name + "-ray-head",
			Namespace: "serverless",
		},
		Spec: corev1.ServiceSpec{
			ClusterIP: ip,
			Ports: []corev1.ServicePort{
				{Port: 10001, TargetPort: intstr.FromInt(targetPort)},
			},
		},
	}
}

func TestManagerList(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		headService("circuit-a", "10.96.0.10", 10001),
		headService("circuit-b", "10.96.0.11", 10001),
		// Unrelated service in the namespace is ignored.
		&corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: "gateway", Namespace: "serverless"}},
	)
	manager := newManager(testClusterConfig(), clientset, &fakeReleaser{}, testLogger(t), nil)

	clusters, err := manager.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}

	names := map[string]bool{}
	for _, c := range clusters {
		names[c.Name] = true
		if c.Host != c.Name+"-ray-head" {
			t.Errorf("unexpected host %s for %s", c.Host, c.Name)
		}
	}
	if !names["circuit-a"] || !names["circuit-b"] {
		t.Errorf("unexpected cluster names: %v", names)
	}
}

func TestManagerGet(t *testing.T) {
	clientset := fake.NewSimpleClientset(headService("circuit-a", "10.96.0.10", 10001))
	manager := newManager(testClusterConfig(), clientset, &fakeReleaser{}, testLogger(t), nil)

	c, err := manager.Get(context.Background(), "circuit-a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if c.Host != "circuit-a-ray-head" {
		t.Errorf("unexpected host %s", c.Host)
	}
	if c.IP != "10.96.0.10" {
		t.Errorf("unexpected ip %s", c.IP)
	}
	if c.Port != "10001" {
		t.Errorf("unexpected port %s", c.Port)
	}
}

func TestManagerGetNotFound(t *testing.T) {
	manager := newManager(testClusterConfig(), fake.NewSimpleClientset(), &fakeReleaser{}, testLogger(t), nil)

	_, err := manager.Get(context.Background(), "missing")
	if !errors.Is(err, ErrClusterNotFound) {
		t.Errorf("expected ErrClusterNotFound, got %v", err)
	}
}

func TestManagerCreate(t *testing.T) {
	rel := &fakeReleaser{}
	manager := newManager(testClusterConfig(), fake.NewSimpleClientset(), rel, testLogger(t), nil)

	c, err := manager.Create(context.Background(), "circuit-a")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if c.Name != "circuit-a" || c.Host != "circuit-a-ray-head" {
		t.Errorf("unexpected cluster: %+v", c)
	}
	if len(rel.installed) != 1 || rel.installed[0] != "circuit-a" {
		t.Errorf("expected one install of circuit-a, got %v", rel.installed)
	}
}

func TestManagerCreateInvalidName(t *testing.T) {
	manager := newManager(testClusterConfig(), fake.NewSimpleClientset(), &fakeReleaser{}, testLogger(t), nil)

	for _, name := range []string{"", "Bad_Name", "-leading", "trailing-", "has space"} {
		if _, err := manager.Create(context.Background(), name); err == nil {
			t.Errorf("expected error for name %q", name)
		}
	}
}

func TestManagerCreateInstallError(t *testing.T) {
	rel := &fakeReleaser{installErr: errors.New("chart not found")}
	manager := newManager(testClusterConfig(), fake.NewSimpleClientset(), rel, testLogger(t), nil)

	_, err := manager.Create(context.Background(), "circuit-a")
	if err == nil {
		t.Fatal("expected install error")
	}
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Op != "create" {
		t.Errorf("expected create OperationError, got %v", err)
	}
}

func TestManagerDelete(t *testing.T) {
	rel := &fakeReleaser{}
	manager := newManager(testClusterConfig(), fake.NewSimpleClientset(), rel, testLogger(t), nil)

	if err := manager.Delete(context.Background(), "circuit-a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(rel.uninstalled) != 1 || rel.uninstalled[0] != "circuit-a" {
		t.Errorf("expected one uninstall of circuit-a, got %v", rel.uninstalled)
	}
}

func TestManagerDeleteNotFound(t *testing.T) {
	manager := newManager(testClusterConfig(), fake.NewSimpleClientset(), &fakeReleaser{notFound: true}, testLogger(t), nil)

	err := manager.Delete(context.Background(), "missing")
	if !errors.Is(err, ErrClusterNotFound) {
		t.Errorf("expected ErrClusterNotFound, got %v", err)
	}
}
