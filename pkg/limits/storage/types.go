package storage

import (
	"context"
	"time"
)

// Usage is the accumulated request counters for one user.
type Usage struct {
	// User is the identity the counters belong to.
	User string `json:"user"`

	// Tier is the rate-limit tier the user was last seen with.
	Tier string `json:"tier"`

	// Requests counts requests that passed the limits.
	Requests int64 `json:"requests"`

	// Rejected counts requests turned away by the limits.
	Rejected int64 `json:"rejected"`

	// FirstSeen is when the user first appeared.
	FirstSeen time.Time `json:"first_seen"`

	// LastSeen is when the user was last active.
	LastSeen time.Time `json:"last_seen"`
}

// Store persists per-user usage counters. Implementations must be safe for
// concurrent use.
type Store interface {
	// Record adds one request to the user's counters, under Requests or
	// Rejected depending on allowed.
	Record(ctx context.Context, user, tier string, allowed bool) error

	// Usage returns the counters for a user, or nil when the user has no
	// recorded activity.
	Usage(ctx context.Context, user string) (*Usage, error)

	// List returns all usage rows ordered by user.
	List(ctx context.Context) ([]*Usage, error)

	// Cleanup removes rows last active before the cutoff and returns how
	// many were deleted.
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases backend resources.
	Close() error
}
