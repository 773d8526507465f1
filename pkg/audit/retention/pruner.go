package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/richrines1/qiskit-serverless/pkg/audit"
	"github.com/richrines1/qiskit-serverless/pkg/config"
	"github.com/richrines1/qiskit-serverless/pkg/telemetry/logging"
)

// Pruner enforces the retention policy on audit records: records older than
// the configured age are deleted, then the oldest records beyond the count
// cap. Either phase is skipped when its limit is zero.
type Pruner struct {
	storage audit.Storage
	cfg     *config.AuditRetentionConfig
	logger  *logging.Logger
}

// NewPruner creates a pruner for the given storage backend.
func NewPruner(storage audit.Storage, cfg *config.AuditRetentionConfig, logger *logging.Logger) *Pruner {
	return &Pruner{
		storage: storage,
		cfg:     cfg,
		logger:  logger.Component("audit.retention"),
	}
}

// Prune runs both retention phases and returns the total records deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.cfg.Days > 0 {
		cutoff := time.Now().AddDate(0, 0, -p.cfg.Days)
		deleted, err := p.storage.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			return total, fmt.Errorf("pruning by age: %w", err)
		}
		total += deleted
		if deleted > 0 {
			p.logger.Info("pruned audit records by age",
				"deleted", deleted,
				"cutoff", cutoff,
			)
		}
	}

	if p.cfg.MaxRecords > 0 {
		deleted, err := p.storage.TrimToCount(ctx, p.cfg.MaxRecords)
		if err != nil {
			return total, fmt.Errorf("pruning by count: %w", err)
		}
		total += deleted
		if deleted > 0 {
			p.logger.Info("pruned audit records by count",
				"deleted", deleted,
				"max_records", p.cfg.MaxRecords,
			)
		}
	}

	return total, nil
}
