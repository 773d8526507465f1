package routing

import "sync"

// Stats tracks routing decisions for the admin API and diagnostics.
type Stats struct {
	mu         sync.Mutex
	selections map[string]uint64
	fallbacks  uint64
	rejections uint64
}

// NewStats creates empty routing statistics.
func NewStats() *Stats {
	return &Stats{selections: make(map[string]uint64)}
}

// RecordSelection counts a successful selection of the named upstream.
func (s *Stats) RecordSelection(upstream string) {
	s.mu.Lock()
	s.selections[upstream]++
	s.mu.Unlock()
}

// RecordFallback counts a selection that used the fallback path.
func (s *Stats) RecordFallback() {
	s.mu.Lock()
	s.fallbacks++
	s.mu.Unlock()
}

// RecordRejection counts a request rejected because no upstream was available.
func (s *Stats) RecordRejection() {
	s.mu.Lock()
	s.rejections++
	s.mu.Unlock()
}

// Snapshot is a point-in-time copy of routing statistics.
type Snapshot struct {
	Selections map[string]uint64 `json:"selections"`
	Fallbacks  uint64            `json:"fallbacks"`
	Rejections uint64            `json:"rejections"`
}

// Snapshot returns a copy of the current statistics.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	selections := make(map[string]uint64, len(s.selections))
	for k, v := range s.selections {
		selections[k] = v
	}

	return Snapshot{
		Selections: selections,
		Fallbacks:  s.fallbacks,
		Rejections: s.rejections,
	}
}
