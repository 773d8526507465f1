package strategies

import (
	"sync"

	"github.com/richrines1/qiskit-serverless/pkg/routing"
	"github.com/richrines1/qiskit-serverless/pkg/upstream"
)

// RoundRobin distributes requests across upstreams in proportion to their
// configured weights. An upstream with weight 2 receives twice the traffic
// of one with weight 1; zero or negative weights exclude the upstream.
type RoundRobin struct {
	mu      sync.Mutex
	counter uint64
}

// NewRoundRobin creates a round-robin strategy.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

// Name returns the strategy name.
func (rr *RoundRobin) Name() string {
	return "round-robin"
}

// Select picks the next upstream by weighted rotation.
func (rr *RoundRobin) Select(candidates []*upstream.Upstream, _ string) (*upstream.Upstream, error) {
	total := 0
	for _, u := range candidates {
		if u.Weight() > 0 {
			total += u.Weight()
		}
	}
	if total == 0 {
		return nil, routing.ErrNoHealthyUpstreams
	}

	rr.mu.Lock()
	slot := int(rr.counter % uint64(total))
	rr.counter++
	rr.mu.Unlock()

	for _, u := range candidates {
		w := u.Weight()
		if w <= 0 {
			continue
		}
		if slot < w {
			return u, nil
		}
		slot -= w
	}

	// Unreachable given the total above.
	return candidates[len(candidates)-1], nil
}
