package retention

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/richrines1/qiskit-serverless/pkg/audit"
	auditstorage "github.com/richrines1/qiskit-serverless/pkg/audit/storage"
	"github.com/richrines1/qiskit-serverless/pkg/config"
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

func seedRecords(t *testing.T, storage audit.Storage, ages ...time.Duration) {
	t.Helper()
	now := time.Now()
	for i, age := range ages {
		rec := &audit.Record{
			ID:           fmt.Sprintf("rec-%03d", i),
			RequestID:    fmt.Sprintf("req-%03d", i),
			RequestTime:  now.Add(-age),
			RecordedTime: now,
			Method:       "GET",
			Path:         "/api/v1/jobs/",
			Status:       200,
		}
		if err := storage.Store(context.Background(), rec); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
	}
}

func TestPrunerByAge(t *testing.T) {
	storage := auditstorage.NewMemoryStorage()
	seedRecords(t, storage, 40*24*time.Hour, 20*24*time.Hour, time.Hour)

	pruner := NewPruner(storage, &config.AuditRetentionConfig{Days: 30}, testLogger(t))
	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", deleted)
	}

	count, _ := storage.Count(context.Background(), nil)
	if count != 2 {
		t.Errorf("expected 2 remaining, got %d", count)
	}
}

func TestPrunerByCount(t *testing.T) {
	storage := auditstorage.NewMemoryStorage()
	seedRecords(t, storage, 5*time.Hour, 4*time.Hour, 3*time.Hour, 2*time.Hour, time.Hour)

	pruner := NewPruner(storage, &config.AuditRetentionConfig{MaxRecords: 2}, testLogger(t))
	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("expected 3 deleted, got %d", deleted)
	}

	records, _ := storage.Query(context.Background(), nil)
	if len(records) != 2 {
		t.Fatalf("expected 2 remaining, got %d", len(records))
	}
	// The newest survive.
	if records[0].ID != "rec-004" {
		t.Errorf("expected rec-004 to survive, got %s", records[0].ID)
	}
}

func TestPrunerBothPhases(t *testing.T) {
	storage := auditstorage.NewMemoryStorage()
	seedRecords(t, storage, 40*24*time.Hour, 3*time.Hour, 2*time.Hour, time.Hour)

	pruner := NewPruner(storage, &config.AuditRetentionConfig{Days: 30, MaxRecords: 2}, testLogger(t))
	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	// One by age, then one more by count.
	if deleted != 2 {
		t.Errorf("expected 2 deleted, got %d", deleted)
	}
}

func TestPrunerNoLimits(t *testing.T) {
	storage := auditstorage.NewMemoryStorage()
	seedRecords(t, storage, 100*24*time.Hour)

	pruner := NewPruner(storage, &config.AuditRetentionConfig{}, testLogger(t))
	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected nothing deleted with zero limits, got %d", deleted)
	}
}

func TestSchedulerEmptySchedule(t *testing.T) {
	storage := auditstorage.NewMemoryStorage()
	pruner := NewPruner(storage, &config.AuditRetentionConfig{}, testLogger(t))
	scheduler := NewScheduler(pruner, "", testLogger(t))

	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if scheduler.IsRunning() {
		t.Error("scheduler with empty schedule must not run")
	}
}

func TestSchedulerInvalidSchedule(t *testing.T) {
	storage := auditstorage.NewMemoryStorage()
	pruner := NewPruner(storage, &config.AuditRetentionConfig{}, testLogger(t))
	scheduler := NewScheduler(pruner, "not a cron line", testLogger(t))

	if err := scheduler.Start(context.Background()); err == nil {
		t.Error("expected error for invalid cron expression")
	}
}

func TestSchedulerStartStop(t *testing.T) {
	storage := auditstorage.NewMemoryStorage()
	pruner := NewPruner(storage, &config.AuditRetentionConfig{Days: 30}, testLogger(t))
	scheduler := NewScheduler(pruner, "0 3 * * *", testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	if err := scheduler.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !scheduler.IsRunning() {
		t.Error("scheduler should be running")
	}

	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for scheduler.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if scheduler.IsRunning() {
		t.Error("scheduler should stop on context cancellation")
	}
}
