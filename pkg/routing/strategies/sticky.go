package strategies

import (
	"container/list"
	"sync"
	"time"

	"github.com/richrines1/qiskit-serverless/pkg/routing"
	"github.com/richrines1/qiskit-serverless/pkg/upstream"
)

// Sticky pins each caller to one upstream so session-scoped state on a
// gateway replica (result caches, file staging) stays on the same replica.
// Assignments expire after a TTL and are evicted LRU beyond the cap. If the
// pinned upstream disappears from the candidate set, the caller is
// reassigned.
type Sticky struct {
	fallback routing.Strategy
	ttl      time.Duration
	maxSize  int

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List

	now func() time.Time
}

type stickyEntry struct {
	key      string
	upstream string
	expires  time.Time
}

// NewSticky creates a sticky strategy. New callers are assigned with the
// fallback strategy (typically round-robin).
func NewSticky(fallback routing.Strategy, ttl time.Duration, maxSize int) *Sticky {
	return &Sticky{
		fallback: fallback,
		ttl:      ttl,
		maxSize:  maxSize,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

// Name returns the strategy name.
func (s *Sticky) Name() string {
	return "sticky"
}

// Select returns the caller's pinned upstream when it is still a healthy
// candidate, otherwise assigns a new one.
func (s *Sticky) Select(candidates []*upstream.Upstream, key string) (*upstream.Upstream, error) {
	if key != "" {
		if name, ok := s.lookup(key); ok {
			for _, u := range candidates {
				if u.Name() == name {
					return u, nil
				}
			}
			// Pinned upstream is gone or unhealthy; drop the assignment.
			s.remove(key)
		}
	}

	selected, err := s.fallback.Select(candidates, key)
	if err != nil {
		return nil, err
	}

	if key != "" {
		s.assign(key, selected.Name())
	}
	return selected, nil
}

func (s *Sticky) lookup(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.entries[key]
	if !ok {
		return "", false
	}

	entry := elem.Value.(*stickyEntry)
	if s.now().After(entry.expires) {
		s.order.Remove(elem)
		delete(s.entries, key)
		return "", false
	}

	s.order.MoveToFront(elem)
	return entry.upstream, true
}

func (s *Sticky) assign(key, upstreamName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.entries[key]; ok {
		entry := elem.Value.(*stickyEntry)
		entry.upstream = upstreamName
		entry.expires = s.now().Add(s.ttl)
		s.order.MoveToFront(elem)
		return
	}

	for s.maxSize > 0 && s.order.Len() >= s.maxSize {
		oldest := s.order.Back()
		if oldest == nil {
			break
		}
		s.order.Remove(oldest)
		delete(s.entries, oldest.Value.(*stickyEntry).key)
	}

	entry := &stickyEntry{key: key, upstream: upstreamName, expires: s.now().Add(s.ttl)}
	s.entries[key] = s.order.PushFront(entry)
}

func (s *Sticky) remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.entries[key]; ok {
		s.order.Remove(elem)
		delete(s.entries, key)
	}
}

// Len returns the number of live assignments.
func (s *Sticky) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}
