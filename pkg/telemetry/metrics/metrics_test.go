package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/richrines1/qiskit-serverless/pkg/config"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	cfg := &config.MetricsConfig{
		Enabled:   true,
		Namespace: "serverless",
		Subsystem: "proxy",
	}
	return NewCollector(cfg, prometheus.NewRegistry())
}

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	c.Handler().ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("scrape returned status %d", rec.Code)
	}
	return rec.Body.String()
}

func TestRecordRequest(t *testing.T) {
	c := newTestCollector(t)

	c.RecordRequest("POST", "/api/{version}/*", "v1", "jobs", "200", "gateway-a", 150*time.Millisecond, 1024, 2048)
	c.RecordRequest("POST", "/api/{version}/*", "v1", "jobs", "200", "gateway-a", 50*time.Millisecond, 512, 256)
	c.RecordRequest("POST", "/api/{version}/*", "v1", "jobs.result", "200", "gateway-a", 50*time.Millisecond, 0, 0)

	body := scrape(t, c)
	if !strings.Contains(body, `serverless_proxy_requests_total{method="POST",resource="jobs",route="/api/{version}/*",status="200",upstream="gateway-a",version="v1"} 2`) {
		t.Errorf("expected request counter in scrape output:\n%s", body)
	}
	if !strings.Contains(body, `resource="jobs.result"`) {
		t.Errorf("expected sub-resource label in scrape output:\n%s", body)
	}
	if !strings.Contains(body, "serverless_proxy_request_duration_seconds") {
		t.Error("expected duration histogram in scrape output")
	}
}

func TestUpstreamHealthGauge(t *testing.T) {
	c := newTestCollector(t)

	c.UpdateUpstreamHealth("gateway-a", true)
	c.UpdateUpstreamHealth("gateway-b", false)

	body := scrape(t, c)
	if !strings.Contains(body, `serverless_proxy_upstream_healthy{upstream="gateway-a"} 1`) {
		t.Errorf("expected healthy gauge for gateway-a:\n%s", body)
	}
	if !strings.Contains(body, `serverless_proxy_upstream_healthy{upstream="gateway-b"} 0`) {
		t.Errorf("expected unhealthy gauge for gateway-b:\n%s", body)
	}
}

func TestRateLimitRejections(t *testing.T) {
	c := newTestCollector(t)

	c.RecordRateLimitRejection("default", "rate")
	c.RecordRateLimitRejection("default", "rate")
	c.RecordRateLimitRejection("premium", "concurrency")

	body := scrape(t, c)
	if !strings.Contains(body, `serverless_proxy_ratelimit_rejections_total{reason="rate",tier="default"} 2`) {
		t.Errorf("expected rejection counter:\n%s", body)
	}
}

func TestInflightGauge(t *testing.T) {
	c := newTestCollector(t)

	c.IncInflight()
	c.IncInflight()
	c.DecInflight()

	body := scrape(t, c)
	if !strings.Contains(body, "serverless_proxy_inflight_requests 1") {
		t.Errorf("expected inflight gauge of 1:\n%s", body)
	}
}

func TestClusterOperations(t *testing.T) {
	c := newTestCollector(t)

	c.RecordClusterOperation("create", "success", 30*time.Second)
	c.RecordClusterOperation("delete", "error", time.Second)

	body := scrape(t, c)
	if !strings.Contains(body, `serverless_proxy_cluster_operations_total{operation="create",outcome="success"} 1`) {
		t.Errorf("expected cluster operation counter:\n%s", body)
	}
}

func TestDisabledCollectorRecordsNothing(t *testing.T) {
	cfg := &config.MetricsConfig{
		Enabled:   false,
		Namespace: "serverless",
		Subsystem: "proxy",
	}
	c := NewCollector(cfg, prometheus.NewRegistry())

	c.RecordRequest("GET", "/api/{version}/*", "v1", "programs", "200", "gateway-a", time.Millisecond, 0, 0)

	body := scrape(t, c)
	if strings.Contains(body, `serverless_proxy_requests_total{`) {
		t.Errorf("expected no samples when disabled:\n%s", body)
	}
}
