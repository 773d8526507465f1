package strategies

import (
	"github.com/richrines1/qiskit-serverless/pkg/routing"
	"github.com/richrines1/qiskit-serverless/pkg/upstream"
)

// Manual always routes to one named upstream. Useful for single-gateway
// deployments and for draining traffic to a specific replica during
// maintenance.
type Manual struct {
	target string
}

// NewManual creates a manual strategy targeting the named upstream.
func NewManual(target string) *Manual {
	return &Manual{target: target}
}

// Name returns the strategy name.
func (m *Manual) Name() string {
	return "manual"
}

// Select returns the target upstream if it is among the candidates.
func (m *Manual) Select(candidates []*upstream.Upstream, _ string) (*upstream.Upstream, error) {
	for _, u := range candidates {
		if u.Name() == m.target {
			return u, nil
		}
	}
	return nil, routing.ErrNoHealthyUpstreams
}
