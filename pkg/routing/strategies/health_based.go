package strategies

import (
	"sync"

	"github.com/richrines1/qiskit-serverless/pkg/routing"
	"github.com/richrines1/qiskit-serverless/pkg/upstream"
)

// HealthBased routes to the upstream with the fewest requests currently in
// flight, breaking ties by configuration order. Slow or degraded replicas
// accumulate in-flight requests and naturally receive less new traffic.
type HealthBased struct {
	mu       sync.Mutex
	inflight map[string]int
}

// NewHealthBased creates a least-loaded strategy.
func NewHealthBased() *HealthBased {
	return &HealthBased{inflight: make(map[string]int)}
}

// Name returns the strategy name.
func (hb *HealthBased) Name() string {
	return "health-based"
}

// Select picks the candidate with the lowest in-flight count.
func (hb *HealthBased) Select(candidates []*upstream.Upstream, _ string) (*upstream.Upstream, error) {
	if len(candidates) == 0 {
		return nil, routing.ErrNoHealthyUpstreams
	}

	hb.mu.Lock()
	defer hb.mu.Unlock()

	best := candidates[0]
	bestLoad := hb.inflight[best.Name()]
	for _, u := range candidates[1:] {
		if load := hb.inflight[u.Name()]; load < bestLoad {
			best = u
			bestLoad = load
		}
	}

	return best, nil
}

// Acquire records the start of a request against an upstream. The returned
// release function must be called when the request completes.
func (hb *HealthBased) Acquire(name string) func() {
	hb.mu.Lock()
	hb.inflight[name]++
	hb.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			hb.mu.Lock()
			if hb.inflight[name] > 0 {
				hb.inflight[name]--
			}
			hb.mu.Unlock()
		})
	}
}
