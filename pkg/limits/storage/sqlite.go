package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const usageSchema = `
CREATE TABLE IF NOT EXISTS token_usage (
	user TEXT NOT NULL PRIMARY KEY,
	tier TEXT NOT NULL,
	requests INTEGER NOT NULL DEFAULT 0,
	rejected INTEGER NOT NULL DEFAULT 0,
	first_seen INTEGER NOT NULL,
	last_seen INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_token_usage_last_seen ON token_usage(last_seen);
`

// SQLiteStore persists usage counters in a SQLite database so they survive
// restarts. SQLite supports a single writer, so the connection pool is capped
// at one connection and writes are serialized with a mutex.
type SQLiteStore struct {
	db        *sql.DB
	mu        sync.Mutex
	closeOnce sync.Once

	recordStmt  *sql.Stmt
	usageStmt   *sql.Stmt
	listStmt    *sql.Stmt
	cleanupStmt *sql.Stmt
}

// NewSQLiteStore opens (creating if needed) the usage database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening usage database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(usageSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing usage schema: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.recordStmt, err = s.db.Prepare(`
		INSERT INTO token_usage (user, tier, requests, rejected, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user) DO UPDATE SET
			tier = excluded.tier,
			requests = requests + excluded.requests,
			rejected = rejected + excluded.rejected,
			last_seen = excluded.last_seen
	`)
	if err != nil {
		return fmt.Errorf("preparing record statement: %w", err)
	}

	s.usageStmt, err = s.db.Prepare(`
		SELECT user, tier, requests, rejected, first_seen, last_seen
		FROM token_usage WHERE user = ?
	`)
	if err != nil {
		return fmt.Errorf("preparing usage statement: %w", err)
	}

	s.listStmt, err = s.db.Prepare(`
		SELECT user, tier, requests, rejected, first_seen, last_seen
		FROM token_usage ORDER BY user
	`)
	if err != nil {
		return fmt.Errorf("preparing list statement: %w", err)
	}

	s.cleanupStmt, err = s.db.Prepare(`DELETE FROM token_usage WHERE last_seen < ?`)
	if err != nil {
		return fmt.Errorf("preparing cleanup statement: %w", err)
	}

	return nil
}

// Record adds one request to the user's counters.
func (s *SQLiteStore) Record(ctx context.Context, user, tier string, allowed bool) error {
	if user == "" {
		return fmt.Errorf("user cannot be empty")
	}

	requests, rejected := 0, 0
	if allowed {
		requests = 1
	} else {
		rejected = 1
	}
	now := time.Now().Unix()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.recordStmt.ExecContext(ctx, user, tier, requests, rejected, now, now); err != nil {
		return fmt.Errorf("recording usage: %w", err)
	}
	return nil
}

// Usage returns the counters for a user, or nil when unknown.
func (s *SQLiteStore) Usage(ctx context.Context, user string) (*Usage, error) {
	row := s.usageStmt.QueryRowContext(ctx, user)

	u, err := scanUsage(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading usage: %w", err)
	}
	return u, nil
}

// List returns all usage rows ordered by user.
func (s *SQLiteStore) List(ctx context.Context) ([]*Usage, error) {
	rows, err := s.listStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing usage: %w", err)
	}
	defer rows.Close()

	var all []*Usage
	for rows.Next() {
		u, err := scanUsage(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning usage row: %w", err)
		}
		all = append(all, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating usage rows: %w", err)
	}
	return all, nil
}

// Cleanup removes rows last active before the cutoff.
func (s *SQLiteStore) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.cleanupStmt.ExecContext(ctx, olderThan.Unix())
	if err != nil {
		return 0, fmt.Errorf("cleaning up usage: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(deleted), nil
}

// Close checkpoints the WAL and closes the database. Safe to call more than
// once.
func (s *SQLiteStore) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.recordStmt, s.usageStmt, s.listStmt, s.cleanupStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		closeErr = s.db.Close()
	})
	return closeErr
}

func scanUsage(scan func(...any) error) (*Usage, error) {
	var (
		u         Usage
		firstSeen int64
		lastSeen  int64
	)
	if err := scan(&u.User, &u.Tier, &u.Requests, &u.Rejected, &firstSeen, &lastSeen); err != nil {
		return nil, err
	}
	u.FirstSeen = time.Unix(firstSeen, 0)
	u.LastSeen = time.Unix(lastSeen, 0)
	return &u, nil
}
