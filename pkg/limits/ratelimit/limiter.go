package ratelimit

import (
	"time"

	"github.com/richrines1/qiskit-serverless/pkg/config"
)

// Rejection reasons reported in decisions and metric labels.
const (
	ReasonRate       = "rate"
	ReasonConcurrent = "concurrent"
)

// Decision is the outcome of a limit check.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// Reason identifies the limit that rejected the request.
	Reason string

	// RetryAfter is how long the caller should wait before retrying.
	// Zero when unknown or not applicable.
	RetryAfter time.Duration

	// Remaining is the rate budget left after this decision.
	Remaining int
}

// Limiter enforces the limits of one tier for one token: a token bucket for
// sustained rate and an optional cap on concurrent requests. Zero-valued
// limits are not enforced.
type Limiter struct {
	rate       *TokenBucket
	concurrent *ConcurrentLimiter
}

// NewLimiter builds a limiter from a tier definition.
func NewLimiter(tier config.TierConfig) *Limiter {
	l := &Limiter{}

	if tier.RequestsPerSecond > 0 {
		burst := tier.Burst
		if burst <= 0 {
			burst = tier.RequestsPerSecond
		}
		l.rate = NewTokenBucket(burst, float64(tier.RequestsPerSecond))
	}

	if tier.MaxConcurrent > 0 {
		l.concurrent = NewConcurrentLimiter(tier.MaxConcurrent)
	}

	return l
}

// Check evaluates the rate limit and claims a concurrency slot. On success
// the returned release function must be called when the request completes;
// on rejection it is nil.
func (l *Limiter) Check() (*Decision, func()) {
	if l.rate != nil {
		if !l.rate.Take() {
			return &Decision{
				Allowed:    false,
				Reason:     ReasonRate,
				RetryAfter: l.rate.RetryAfter(),
			}, nil
		}
	}

	if l.concurrent != nil {
		if !l.concurrent.Acquire() {
			return &Decision{
				Allowed: false,
				Reason:  ReasonConcurrent,
			}, nil
		}

		decision := l.decisionAllowed()
		return decision, l.concurrent.Release
	}

	return l.decisionAllowed(), func() {}
}

func (l *Limiter) decisionAllowed() *Decision {
	d := &Decision{Allowed: true}
	if l.rate != nil {
		d.Remaining = l.rate.Remaining()
	}
	return d
}
