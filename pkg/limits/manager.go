package limits

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/richrines1/qiskit-serverless/pkg/config"
	"github.com/richrines1/qiskit-serverless/pkg/limits/ratelimit"
	"github.com/richrines1/qiskit-serverless/pkg/limits/storage"
	"github.com/richrines1/qiskit-serverless/pkg/telemetry/logging"
	"github.com/richrines1/qiskit-serverless/pkg/telemetry/metrics"
)

const (
	// maxLimiters bounds the per-user limiter cache before idle entries
	// are pruned.
	maxLimiters = 10000

	// limiterIdleTTL is how long an unused limiter survives pruning.
	limiterIdleTTL = time.Hour
)

// Manager enforces per-user rate limits by tier and tracks usage counters.
// Each user gets an independent limiter built from their tier's definition;
// unknown tiers fall back to the "default" tier.
type Manager struct {
	cfg       *config.LimitsConfig
	store     storage.Store
	logger    *logging.Logger
	collector *metrics.Collector

	mu       sync.Mutex
	limiters map[string]*userLimiter
}

type userLimiter struct {
	limiter  *ratelimit.Limiter
	tier     string
	lastUsed time.Time
}

// NewManager creates a limits manager with the storage backend named in the
// configuration.
func NewManager(cfg *config.LimitsConfig, logger *logging.Logger, collector *metrics.Collector) (*Manager, error) {
	var store storage.Store
	switch cfg.Storage {
	case "sqlite":
		s, err := storage.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("creating usage store: %w", err)
		}
		store = s
	case "memory", "":
		store = storage.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown limits storage %q", cfg.Storage)
	}

	return &Manager{
		cfg:       cfg,
		store:     store,
		logger:    logger.Component("limits"),
		collector: collector,
		limiters:  make(map[string]*userLimiter),
	}, nil
}

// Check decides whether a request from user may proceed. On success the
// returned release function must be called when the request completes; on
// rejection it is nil. Usage counters are updated either way.
func (m *Manager) Check(ctx context.Context, user, tier string) (*ratelimit.Decision, func()) {
	if !m.cfg.Enabled {
		return &ratelimit.Decision{Allowed: true}, func() {}
	}
	if tier == "" {
		tier = "default"
	}

	limiter := m.limiterFor(user, tier)
	if limiter == nil {
		// No definition for this tier or the default tier: unlimited.
		m.record(ctx, user, tier, true)
		return &ratelimit.Decision{Allowed: true}, func() {}
	}

	decision, release := limiter.Check()
	if !decision.Allowed {
		if m.collector != nil {
			m.collector.RecordRateLimitRejection(tier, decision.Reason)
		}
		m.logger.WarnContext(ctx, "request throttled",
			"user", user,
			"tier", tier,
			"reason", decision.Reason,
		)
	}

	m.record(ctx, user, tier, decision.Allowed)
	return decision, release
}

// Usage returns the recorded counters for a user.
func (m *Manager) Usage(ctx context.Context, user string) (*storage.Usage, error) {
	return m.store.Usage(ctx, user)
}

// ListUsage returns counters for all users.
func (m *Manager) ListUsage(ctx context.Context) ([]*storage.Usage, error) {
	return m.store.List(ctx)
}

// Cleanup removes usage rows last active before the cutoff.
func (m *Manager) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	return m.store.Cleanup(ctx, olderThan)
}

// Close releases the storage backend.
func (m *Manager) Close() error {
	return m.store.Close()
}

// limiterFor returns the user's limiter, building it on first use. A tier
// change for an existing user rebuilds the limiter.
func (m *Manager) limiterFor(user, tier string) *ratelimit.Limiter {
	tierCfg, ok := m.cfg.Tiers[tier]
	if !ok {
		tierCfg, ok = m.cfg.Tiers["default"]
		if !ok {
			return nil
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if ul, ok := m.limiters[user]; ok && ul.tier == tier {
		ul.lastUsed = now
		return ul.limiter
	}

	if len(m.limiters) >= maxLimiters {
		m.pruneLocked(now)
	}

	ul := &userLimiter{
		limiter:  ratelimit.NewLimiter(tierCfg),
		tier:     tier,
		lastUsed: now,
	}
	m.limiters[user] = ul
	return ul.limiter
}

func (m *Manager) pruneLocked(now time.Time) {
	for user, ul := range m.limiters {
		if now.Sub(ul.lastUsed) > limiterIdleTTL {
			delete(m.limiters, user)
		}
	}
}

func (m *Manager) record(ctx context.Context, user, tier string, allowed bool) {
	if user == "" {
		return
	}
	if err := m.store.Record(ctx, user, tier, allowed); err != nil {
		m.logger.ErrorContext(ctx, "failed to record usage", "user", user, "error", err)
	}
}
