package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/richrines1/qiskit-serverless/pkg/audit"
	"github.com/richrines1/qiskit-serverless/pkg/config"
	"github.com/richrines1/qiskit-serverless/pkg/telemetry/logging"
)

// SQLiteStorage implements audit.Storage on a SQLite database.
type SQLiteStorage struct {
	db        *sql.DB
	cfg       *config.AuditSQLiteConfig
	logger    *logging.Logger
	closeOnce sync.Once

	insertStmt *sql.Stmt
}

// NewSQLiteStorage opens (creating if needed) the audit database described
// by the configuration.
func NewSQLiteStorage(cfg *config.AuditSQLiteConfig, logger *logging.Logger) (*SQLiteStorage, error) {
	if cfg.Path == "" {
		return nil, audit.NewStorageError("sqlite", "open", fmt.Errorf("path cannot be empty"))
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		cfg:    cfg,
		logger: logger.Component("audit.storage.sqlite"),
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("audit storage initialized",
		"path", cfg.Path,
		"wal_mode", cfg.WALMode,
		"max_open_conns", cfg.MaxOpenConns,
	)

	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if s.cfg.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return audit.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	if s.cfg.BusyTimeout > 0 {
		pragma := fmt.Sprintf("PRAGMA busy_timeout=%d;", s.cfg.BusyTimeout.Milliseconds())
		if _, err := s.db.Exec(pragma); err != nil {
			return audit.NewStorageError("sqlite", "set_busy_timeout", err)
		}
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return audit.NewStorageError("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec(insertSchemaVersion, SchemaVersion); err != nil {
		return audit.NewStorageError("sqlite", "record_schema_version", err)
	}

	stmt, err := s.db.Prepare(`
		INSERT INTO audit_records (
			id, request_id, request_time, recorded_time,
			method, path, api_version, resource, user, tier, upstream,
			status, latency_us, request_bytes, response_bytes,
			remote_addr, user_agent, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return audit.NewStorageError("sqlite", "prepare_insert", err)
	}
	s.insertStmt = stmt

	return nil
}

// Store writes one record.
func (s *SQLiteStorage) Store(ctx context.Context, record *audit.Record) error {
	if record == nil {
		return audit.NewStorageError("sqlite", "store", fmt.Errorf("record cannot be nil"))
	}

	_, err := s.insertStmt.ExecContext(ctx,
		record.ID,
		record.RequestID,
		record.RequestTime.UTC(),
		record.RecordedTime.UTC(),
		record.Method,
		record.Path,
		record.APIVersion,
		record.Resource,
		record.User,
		record.Tier,
		record.Upstream,
		record.Status,
		record.Latency.Microseconds(),
		record.RequestBytes,
		record.ResponseBytes,
		record.RemoteAddr,
		record.UserAgent,
		record.Error,
	)
	if err != nil {
		return audit.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Query returns records matching the filters, newest first.
func (s *SQLiteStorage) Query(ctx context.Context, q *audit.Query) ([]*audit.Record, error) {
	where, args := buildWhere(q)

	query := `
		SELECT id, request_id, request_time, recorded_time,
			method, path, api_version, resource, user, tier, upstream,
			status, latency_us, request_bytes, response_bytes,
			remote_addr, user_agent, error
		FROM audit_records` + where + ` ORDER BY request_time DESC`

	if q != nil && q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
		if q.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, q.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	var records []*audit.Record
	for rows.Next() {
		var (
			r         audit.Record
			latencyUS int64
		)
		err := rows.Scan(
			&r.ID, &r.RequestID, &r.RequestTime, &r.RecordedTime,
			&r.Method, &r.Path, &r.APIVersion, &r.Resource, &r.User, &r.Tier, &r.Upstream,
			&r.Status, &latencyUS, &r.RequestBytes, &r.ResponseBytes,
			&r.RemoteAddr, &r.UserAgent, &r.Error,
		)
		if err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
		r.Latency = time.Duration(latencyUS) * time.Microsecond
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}

	return records, nil
}

// Count returns the number of records matching the filters.
func (s *SQLiteStorage) Count(ctx context.Context, q *audit.Query) (int64, error) {
	where, args := buildWhere(q)

	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_records"+where, args...).Scan(&count)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// DeleteOlderThan removes records received before the cutoff.
func (s *SQLiteStorage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM audit_records WHERE request_time < ?", cutoff.UTC())
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete_older_than", err)
	}
	return result.RowsAffected()
}

// TrimToCount deletes the oldest records until at most keep remain.
func (s *SQLiteStorage) TrimToCount(ctx context.Context, keep int64) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM audit_records WHERE id NOT IN (
			SELECT id FROM audit_records ORDER BY request_time DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "trim_to_count", err)
	}
	return result.RowsAffected()
}

// Close checkpoints the WAL and closes the database. Safe to call more than
// once.
func (s *SQLiteStorage) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		if s.insertStmt != nil {
			s.insertStmt.Close()
		}
		if s.cfg.WALMode {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE);")
		}
		closeErr = s.db.Close()
	})
	return closeErr
}

func buildWhere(q *audit.Query) (string, []any) {
	if q == nil {
		return "", nil
	}

	var (
		conds []string
		args  []any
	)
	if q.StartTime != nil {
		conds = append(conds, "request_time >= ?")
		args = append(args, q.StartTime.UTC())
	}
	if q.EndTime != nil {
		conds = append(conds, "request_time <= ?")
		args = append(args, q.EndTime.UTC())
	}
	if q.User != "" {
		conds = append(conds, "user = ?")
		args = append(args, q.User)
	}
	if q.Upstream != "" {
		conds = append(conds, "upstream = ?")
		args = append(args, q.Upstream)
	}
	if q.Status != 0 {
		conds = append(conds, "status = ?")
		args = append(args, q.Status)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
