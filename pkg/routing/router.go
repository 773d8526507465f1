package routing

import (
	"fmt"

	"github.com/richrines1/qiskit-serverless/pkg/config"
	"github.com/richrines1/qiskit-serverless/pkg/telemetry/logging"
	"github.com/richrines1/qiskit-serverless/pkg/upstream"
)

// releaser is returned from Route so strategies tracking in-flight load can
// observe request completion.
type releaser interface {
	Acquire(name string) func()
}

// Router selects an upstream per request using the configured strategy, with
// optional fallback to any healthy upstream when the strategy's choice is
// unavailable.
type Router struct {
	manager  *upstream.Manager
	strategy Strategy
	cfg      *config.RoutingConfig
	logger   *logging.Logger
	stats    *Stats
}

// NewRouter creates a router with an already-built strategy. Strategies are
// constructed by the strategies package from configuration.
func NewRouter(cfg *config.RoutingConfig, manager *upstream.Manager, logger *logging.Logger, strategy Strategy) (*Router, error) {
	if strategy == nil {
		return nil, fmt.Errorf("routing strategy is nil")
	}

	return &Router{
		manager:  manager,
		strategy: strategy,
		cfg:      cfg,
		logger:   logger.Component("router"),
		stats:    NewStats(),
	}, nil
}

// Strategy returns the active strategy.
func (r *Router) Strategy() Strategy {
	return r.strategy
}

// Stats returns the router's selection statistics.
func (r *Router) Stats() *Stats {
	return r.stats
}

// Route selects an upstream for the given caller key. The returned release
// function must be called when the request completes; it is never nil.
func (r *Router) Route(key string) (*upstream.Upstream, func(), error) {
	candidates := r.manager.Healthy()
	if len(candidates) == 0 {
		r.stats.RecordRejection()
		return nil, nil, ErrNoHealthyUpstreams
	}

	selected, err := r.strategy.Select(candidates, key)
	if err != nil {
		if !r.cfg.FallbackEnabled {
			r.stats.RecordRejection()
			return nil, nil, err
		}
		selected = r.fallback(candidates)
		if selected == nil {
			r.stats.RecordRejection()
			return nil, nil, ErrNoHealthyUpstreams
		}
		r.stats.RecordFallback()
		r.logger.Warn("strategy selection failed, using fallback",
			"strategy", r.strategy.Name(),
			"fallback_upstream", selected.Name(),
			"error", err,
		)
	}

	r.stats.RecordSelection(selected.Name())

	release := func() {}
	if rel, ok := r.strategy.(releaser); ok {
		release = rel.Acquire(selected.Name())
	}

	return selected, release, nil
}

// fallback prefers the configured default upstream, then the first healthy
// candidate.
func (r *Router) fallback(candidates []*upstream.Upstream) *upstream.Upstream {
	if r.cfg.DefaultUpstream != "" {
		for _, u := range candidates {
			if u.Name() == r.cfg.DefaultUpstream {
				return u
			}
		}
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return nil
}
