package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/richrines1/qiskit-serverless/pkg/audit"
)

var errNilRecord = errors.New("record cannot be nil")

// MemoryStorage implements audit.Storage in process memory. Records are
// lost on restart; intended for tests and development.
type MemoryStorage struct {
	mu      sync.RWMutex
	records []*audit.Record
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Store appends one record.
func (m *MemoryStorage) Store(_ context.Context, record *audit.Record) error {
	if record == nil {
		return audit.NewStorageError("memory", "store", errNilRecord)
	}

	copied := *record
	m.mu.Lock()
	m.records = append(m.records, &copied)
	m.mu.Unlock()
	return nil
}

// Query returns matching records, newest first.
func (m *MemoryStorage) Query(_ context.Context, q *audit.Query) ([]*audit.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*audit.Record
	for _, r := range m.records {
		if matches(r, q) {
			copied := *r
			matched = append(matched, &copied)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].RequestTime.After(matched[j].RequestTime)
	})

	if q != nil && q.Offset > 0 {
		if q.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[q.Offset:]
	}
	if q != nil && q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	return matched, nil
}

// Count returns the number of matching records.
func (m *MemoryStorage) Count(_ context.Context, q *audit.Query) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, r := range m.records {
		if matches(r, q) {
			count++
		}
	}
	return count, nil
}

// DeleteOlderThan removes records received before the cutoff.
func (m *MemoryStorage) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.records[:0]
	var deleted int64
	for _, r := range m.records {
		if r.RequestTime.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
	return deleted, nil
}

// TrimToCount deletes the oldest records until at most keep remain.
func (m *MemoryStorage) TrimToCount(_ context.Context, keep int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	excess := int64(len(m.records)) - keep
	if excess <= 0 {
		return 0, nil
	}

	sort.Slice(m.records, func(i, j int) bool {
		return m.records[i].RequestTime.Before(m.records[j].RequestTime)
	})
	m.records = m.records[excess:]
	return excess, nil
}

// Close is a no-op for the in-memory storage.
func (m *MemoryStorage) Close() error {
	return nil
}

func matches(r *audit.Record, q *audit.Query) bool {
	if q == nil {
		return true
	}
	if q.StartTime != nil && r.RequestTime.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && r.RequestTime.After(*q.EndTime) {
		return false
	}
	if q.User != "" && r.User != q.User {
		return false
	}
	if q.Upstream != "" && r.Upstream != q.Upstream {
		return false
	}
	if q.Status != 0 && r.Status != q.Status {
		return false
	}
	return true
}
