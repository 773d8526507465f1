package upstream

import (
	"context"
	"time"
)

// probeTimeout bounds a single health probe.
const probeTimeout = 5 * time.Second

// healthChecker periodically probes one upstream's health endpoint.
type healthChecker struct {
	upstream *Upstream
	interval time.Duration
}

func newHealthChecker(u *Upstream) *healthChecker {
	return &healthChecker{
		upstream: u,
		interval: u.cfg.HealthInterval,
	}
}

// run probes until the context is cancelled. The first probe fires
// immediately so a dead upstream is detected at startup, not one interval
// later.
func (hc *healthChecker) run(ctx context.Context) {
	hc.probe(ctx)

	ticker := time.NewTicker(hc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hc.probe(ctx)
		}
	}
}

func (hc *healthChecker) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	// Probe outcome updates the upstream's health state directly.
	_ = hc.upstream.Probe(probeCtx)
}
