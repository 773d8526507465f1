package audit

import (
	"context"
	"time"
)

// Record is the audit trail entry for a single proxied request.
type Record struct {
	// ID is the record's UUID.
	ID string `json:"id"`

	// RequestID is the proxy request ID, matching the X-Request-ID header.
	RequestID string `json:"request_id"`

	// RequestTime is when the proxy received the request.
	RequestTime time.Time `json:"request_time"`

	// RecordedTime is when the record was written.
	RecordedTime time.Time `json:"recorded_time"`

	Method string `json:"method"`
	Path   string `json:"path"`

	// APIVersion and Resource classify forwarded gateway requests; both are
	// empty for local endpoints such as health and admin.
	APIVersion string `json:"api_version"`
	Resource   string `json:"resource"`

	// User is the authenticated identity, empty for unauthenticated
	// endpoints.
	User string `json:"user"`

	// Tier is the rate-limit tier the request was checked against.
	Tier string `json:"tier"`

	// Upstream is the gateway replica the request was forwarded to, empty
	// when the request was answered locally.
	Upstream string `json:"upstream"`

	Status        int           `json:"status"`
	Latency       time.Duration `json:"latency"`
	RequestBytes  int64         `json:"request_bytes"`
	ResponseBytes int64         `json:"response_bytes"`

	RemoteAddr string `json:"remote_addr"`
	UserAgent  string `json:"user_agent"`

	// Error holds the upstream error message when forwarding failed.
	Error string `json:"error,omitempty"`
}

// Query filters audit records.
type Query struct {
	// StartTime and EndTime bound RequestTime inclusively when set.
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	User     string `json:"user,omitempty"`
	Upstream string `json:"upstream,omitempty"`

	// Status filters on the exact response status. Zero matches all.
	Status int `json:"status,omitempty"`

	// Limit caps the result size; zero means no cap. Offset skips rows.
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Storage persists audit records. Implementations must be safe for
// concurrent use.
type Storage interface {
	// Store writes one record.
	Store(ctx context.Context, record *Record) error

	// Query returns records matching the filters, newest first.
	Query(ctx context.Context, q *Query) ([]*Record, error)

	// Count returns the number of records matching the filters.
	Count(ctx context.Context, q *Query) (int64, error)

	// DeleteOlderThan removes records with RequestTime before the cutoff
	// and returns how many were deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// TrimToCount deletes the oldest records until at most keep remain,
	// returning how many were deleted.
	TrimToCount(ctx context.Context, keep int64) (int64, error)

	// Close releases backend resources.
	Close() error
}
