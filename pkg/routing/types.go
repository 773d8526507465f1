package routing

import (
	"errors"

	"github.com/richrines1/qiskit-serverless/pkg/upstream"
)

// ErrNoHealthyUpstreams is returned when no upstream can accept the request.
var ErrNoHealthyUpstreams = errors.New("no healthy upstreams available")

// Strategy selects an upstream for a request. Implementations receive only
// healthy upstreams; the router handles fallback when the preferred choice
// is unavailable.
type Strategy interface {
	// Name returns the strategy's configuration name.
	Name() string

	// Select picks an upstream from the candidates. key identifies the
	// caller (the authenticated user, or the client address for anonymous
	// endpoints) and drives sticky assignment.
	Select(candidates []*upstream.Upstream, key string) (*upstream.Upstream, error)
}
