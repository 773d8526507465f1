package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatalf("creating sqlite store: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStoreRecordAndUsage(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := store.Record(ctx, "alice", "premium", true); err != nil {
				t.Fatalf("Record failed: %v", err)
			}
			if err := store.Record(ctx, "alice", "premium", true); err != nil {
				t.Fatalf("Record failed: %v", err)
			}
			if err := store.Record(ctx, "alice", "premium", false); err != nil {
				t.Fatalf("Record failed: %v", err)
			}

			u, err := store.Usage(ctx, "alice")
			if err != nil {
				t.Fatalf("Usage failed: %v", err)
			}
			if u == nil {
				t.Fatal("expected usage row for alice")
			}
			if u.Requests != 2 || u.Rejected != 1 {
				t.Errorf("expected 2 requests / 1 rejected, got %d / %d", u.Requests, u.Rejected)
			}
			if u.Tier != "premium" {
				t.Errorf("expected tier premium, got %q", u.Tier)
			}
		})
	}
}

func TestStoreUnknownUser(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			u, err := store.Usage(context.Background(), "nobody")
			if err != nil {
				t.Fatalf("Usage failed: %v", err)
			}
			if u != nil {
				t.Errorf("expected nil usage for unknown user, got %+v", u)
			}
		})
	}
}

func TestStoreList(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, user := range []string{"carol", "alice", "bob"} {
				if err := store.Record(ctx, user, "default", true); err != nil {
					t.Fatalf("Record failed: %v", err)
				}
			}

			all, err := store.List(ctx)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(all) != 3 {
				t.Fatalf("expected 3 rows, got %d", len(all))
			}
			for i, want := range []string{"alice", "bob", "carol"} {
				if all[i].User != want {
					t.Errorf("row %d: expected %s, got %s", i, want, all[i].User)
				}
			}
		})
	}
}

func TestStoreCleanup(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.Record(ctx, "alice", "default", true); err != nil {
				t.Fatalf("Record failed: %v", err)
			}

			// Cutoff in the past removes nothing.
			deleted, err := store.Cleanup(ctx, time.Now().Add(-time.Hour))
			if err != nil {
				t.Fatalf("Cleanup failed: %v", err)
			}
			if deleted != 0 {
				t.Errorf("expected 0 deleted, got %d", deleted)
			}

			// Cutoff in the future removes the row.
			deleted, err = store.Cleanup(ctx, time.Now().Add(time.Hour))
			if err != nil {
				t.Fatalf("Cleanup failed: %v", err)
			}
			if deleted != 1 {
				t.Errorf("expected 1 deleted, got %d", deleted)
			}

			u, err := store.Usage(ctx, "alice")
			if err != nil {
				t.Fatalf("Usage failed: %v", err)
			}
			if u != nil {
				t.Error("expected usage removed after cleanup")
			}
		})
	}
}

func TestSQLiteStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	if err := store.Record(ctx, "alice", "default", true); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	defer reopened.Close()

	u, err := reopened.Usage(ctx, "alice")
	if err != nil {
		t.Fatalf("Usage failed: %v", err)
	}
	if u == nil || u.Requests != 1 {
		t.Errorf("expected persisted counters, got %+v", u)
	}
}

func TestSQLiteStoreEmptyPath(t *testing.T) {
	if _, err := NewSQLiteStore(""); err == nil {
		t.Error("expected error for empty path")
	}
}
