package recorder

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/richrines1/qiskit-serverless/pkg/audit"
	auditstorage "github.com/richrines1/qiskit-serverless/pkg/audit/storage"
	"github.com/richrines1/qiskit-serverless/pkg/config"
	"github.com/richrines1/qiskit-serverless/pkg/proxy/middleware"
	"github.com/richrines1/qiskit-serverless/pkg/telemetry/logging"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.New(&config.LoggingConfig{Level: "error", Format: "json"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("creating logger: %v", err)
	}
	return logger
}

func waitForCount(t *testing.T, storage audit.Storage, want int64) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		count, err := storage.Count(context.Background(), nil)
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if count == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d records", want)
}

func TestRecorderWritesAsync(t *testing.T) {
	storage := auditstorage.NewMemoryStorage()
	rec := New(&config.AuditConfig{Enabled: true}, storage, testLogger(t))
	defer rec.Close()

	if err := rec.Record(&audit.Record{RequestID: "req-1", RequestTime: time.Now(), Status: 200}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	waitForCount(t, storage, 1)

	records, err := storage.Query(context.Background(), nil)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if records[0].ID == "" {
		t.Error("recorder should assign an ID")
	}
	if records[0].RecordedTime.IsZero() {
		t.Error("recorder should stamp RecordedTime")
	}
}

func TestRecorderDisabled(t *testing.T) {
	storage := auditstorage.NewMemoryStorage()
	rec := New(&config.AuditConfig{Enabled: false}, storage, testLogger(t))

	if err := rec.Record(&audit.Record{RequestID: "req-1"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	rec.Close()

	count, err := storage.Count(context.Background(), nil)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("disabled recorder must not write, got %d records", count)
	}
}

func TestRecorderCloseDrains(t *testing.T) {
	storage := auditstorage.NewMemoryStorage()
	rec := New(&config.AuditConfig{Enabled: true, Recorder: config.AuditRecorderConfig{AsyncBuffer: 100}}, storage, testLogger(t))

	for i := 0; i < 50; i++ {
		if err := rec.Record(&audit.Record{RequestID: "req", RequestTime: time.Now()}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	count, err := storage.Count(context.Background(), nil)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 50 {
		t.Errorf("expected all 50 records drained on close, got %d", count)
	}
}

func TestMiddlewareRecordsRequest(t *testing.T) {
	storage := auditstorage.NewMemoryStorage()
	rec := New(&config.AuditConfig{Enabled: true}, storage, testLogger(t))
	defer rec.Close()

	handler := Middleware(rec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"job-1"}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/", bytes.NewReader([]byte(`{}`)))
	ctx := req.Context()
	ctx = middleware.WithUser(ctx, "alice")
	ctx = middleware.WithTier(ctx, "default")
	ctx = middleware.WithUpstream(ctx, "gateway")
	ctx = middleware.WithAPIVersion(ctx, "v1")
	ctx = middleware.WithResource(ctx, "jobs")
	rw := httptest.NewRecorder()
	handler.ServeHTTP(rw, req.WithContext(ctx))

	waitForCount(t, storage, 1)

	records, err := storage.Query(context.Background(), nil)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	got := records[0]
	if got.Method != http.MethodPost || got.Path != "/api/v1/jobs/" {
		t.Errorf("unexpected request identity: %s %s", got.Method, got.Path)
	}
	if got.User != "alice" || got.Tier != "default" || got.Upstream != "gateway" {
		t.Errorf("context fields not captured: %+v", got)
	}
	if got.APIVersion != "v1" || got.Resource != "jobs" {
		t.Errorf("expected api version v1 / resource jobs, got %q / %q", got.APIVersion, got.Resource)
	}
	if got.Status != http.StatusCreated {
		t.Errorf("expected status 201, got %d", got.Status)
	}
	if got.ResponseBytes == 0 {
		t.Error("expected response bytes captured")
	}
}
