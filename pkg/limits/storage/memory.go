package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps usage counters in process memory. Counters reset on
// restart, which is acceptable for single-instance deployments that only use
// them for operational visibility.
type MemoryStore struct {
	mu    sync.RWMutex
	usage map[string]*Usage

	now func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		usage: make(map[string]*Usage),
		now:   time.Now,
	}
}

// Record adds one request to the user's counters.
func (m *MemoryStore) Record(_ context.Context, user, tier string, allowed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	u, ok := m.usage[user]
	if !ok {
		u = &Usage{User: user, FirstSeen: now}
		m.usage[user] = u
	}

	u.Tier = tier
	u.LastSeen = now
	if allowed {
		u.Requests++
	} else {
		u.Rejected++
	}
	return nil
}

// Usage returns a copy of the user's counters, or nil when unknown.
func (m *MemoryStore) Usage(_ context.Context, user string) (*Usage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.usage[user]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

// List returns all usage rows ordered by user.
func (m *MemoryStore) List(_ context.Context) ([]*Usage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*Usage, 0, len(m.usage))
	for _, u := range m.usage {
		copied := *u
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].User < all[j].User })
	return all, nil
}

// Cleanup drops rows last active before the cutoff.
func (m *MemoryStore) Cleanup(_ context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for user, u := range m.usage {
		if u.LastSeen.Before(olderThan) {
			delete(m.usage, user)
			deleted++
		}
	}
	return deleted, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
