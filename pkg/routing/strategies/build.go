package strategies

import (
	"fmt"

	"github.com/richrines1/qiskit-serverless/pkg/config"
	"github.com/richrines1/qiskit-serverless/pkg/routing"
)

// ForConfig builds the strategy named in the routing configuration.
func ForConfig(cfg *config.RoutingConfig) (routing.Strategy, error) {
	switch cfg.Strategy {
	case "round-robin":
		return NewRoundRobin(), nil
	case "sticky":
		return NewSticky(NewRoundRobin(), cfg.Sticky.TTL, cfg.Sticky.MaxEntries), nil
	case "health-based":
		return NewHealthBased(), nil
	case "manual":
		return NewManual(cfg.DefaultUpstream), nil
	default:
		return nil, fmt.Errorf("unknown routing strategy %q", cfg.Strategy)
	}
}
