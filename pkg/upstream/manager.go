package upstream

import (
	"context"
	"sort"
	"sync"

	"github.com/richrines1/qiskit-serverless/pkg/config"
	"github.com/richrines1/qiskit-serverless/pkg/telemetry/logging"
	"github.com/richrines1/qiskit-serverless/pkg/telemetry/metrics"
)

// Manager owns all configured upstreams and their background health checks.
type Manager struct {
	upstreams map[string]*Upstream
	names     []string
	logger    *logging.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewManager builds upstreams from configuration.
func NewManager(cfgs map[string]config.UpstreamConfig, logger *logging.Logger, collector *metrics.Collector) (*Manager, error) {
	m := &Manager{
		upstreams: make(map[string]*Upstream, len(cfgs)),
		logger:    logger.Component("upstream.manager"),
	}

	for name, cfg := range cfgs {
		u, err := New(name, cfg, logger, collector)
		if err != nil {
			return nil, err
		}
		m.upstreams[name] = u
		m.names = append(m.names, name)
	}
	// Deterministic ordering keeps round-robin stable across restarts.
	sort.Strings(m.names)

	return m, nil
}

// Get returns the named upstream, or nil if not configured.
func (m *Manager) Get(name string) *Upstream {
	return m.upstreams[name]
}

// Names returns all upstream names in sorted order.
func (m *Manager) Names() []string {
	return m.names
}

// All returns all upstreams in name order.
func (m *Manager) All() []*Upstream {
	all := make([]*Upstream, 0, len(m.names))
	for _, name := range m.names {
		all = append(all, m.upstreams[name])
	}
	return all
}

// Healthy returns the upstreams currently accepting traffic, in name order.
func (m *Manager) Healthy() []*Upstream {
	healthy := make([]*Upstream, 0, len(m.names))
	for _, name := range m.names {
		if u := m.upstreams[name]; u.Healthy() {
			healthy = append(healthy, u)
		}
	}
	return healthy
}

// HealthSnapshot returns the health state of every upstream by name.
func (m *Manager) HealthSnapshot() map[string]bool {
	snapshot := make(map[string]bool, len(m.names))
	for _, name := range m.names {
		snapshot[name] = m.upstreams[name].Healthy()
	}
	return snapshot
}

// StartHealthChecks launches a background prober per upstream. Probes run at
// each upstream's configured interval until Stop is called.
func (m *Manager) StartHealthChecks(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)

	for _, u := range m.upstreams {
		m.wg.Add(1)
		go m.probeLoop(ctx, u)
	}

	m.logger.Info("health checks started", "upstreams", len(m.upstreams))
}

func (m *Manager) probeLoop(ctx context.Context, u *Upstream) {
	defer m.wg.Done()

	checker := newHealthChecker(u)
	checker.run(ctx)
}

// Stop halts all health check loops and waits for them to exit.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}
