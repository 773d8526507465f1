package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrCircuitOpen is returned when an upstream's circuit breaker is open and
// requests are refused without being attempted.
var ErrCircuitOpen = errors.New("upstream circuit open")

// ErrNoUpstreams is returned when no upstream is available to serve a request.
var ErrNoUpstreams = errors.New("no upstreams available")

// ConnectionError indicates the upstream could not be reached.
type ConnectionError struct {
	Upstream string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("upstream %s unreachable: %v", e.Upstream, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// TimeoutError indicates the upstream did not respond within the deadline.
type TimeoutError struct {
	Upstream string
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("upstream %s timed out: %v", e.Upstream, e.Err)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// ServerError indicates the upstream answered with a 5xx status after all
// retries were exhausted.
type ServerError struct {
	Upstream   string
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("upstream %s returned status %d", e.Upstream, e.StatusCode)
}

// classify wraps a transport error in a typed upstream error.
func classify(name string, err error) error {
	if err == nil {
		return nil
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &TimeoutError{Upstream: name, Err: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &TimeoutError{Upstream: name, Err: err}
	default:
		return &ConnectionError{Upstream: name, Err: err}
	}
}

// ErrorType returns a short label for an upstream error, used as a metric
// label value.
func ErrorType(err error) string {
	var (
		timeoutErr *TimeoutError
		connErr    *ConnectionError
		serverErr  *ServerError
	)
	switch {
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.As(err, &timeoutErr):
		return "timeout"
	case errors.As(err, &connErr):
		return "connection"
	case errors.As(err, &serverErr):
		return "server_error"
	default:
		return "unknown"
	}
}
