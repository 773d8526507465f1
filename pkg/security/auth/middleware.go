package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/richrines1/qiskit-serverless/pkg/proxy/middleware"
	"github.com/richrines1/qiskit-serverless/pkg/proxy/types"
	"github.com/richrines1/qiskit-serverless/pkg/telemetry/logging"
	"github.com/richrines1/qiskit-serverless/pkg/telemetry/metrics"
)

// Middleware authenticates requests with bearer tokens before they are
// forwarded. Unauthenticated requests are rejected with 401 and never reach
// an upstream.
type Middleware struct {
	verifier  Verifier
	sources   []TokenSource
	logger    *logging.Logger
	collector *metrics.Collector
}

// NewMiddleware creates authentication middleware. The collector may be nil
// when metrics are disabled.
func NewMiddleware(verifier Verifier, sources []TokenSource, logger *logging.Logger, collector *metrics.Collector) *Middleware {
	return &Middleware{
		verifier:  verifier,
		sources:   sources,
		logger:    logger.Component("auth"),
		collector: collector,
	}
}

// Handle wraps an HTTP handler with token authentication. On success the
// request context carries the resolved user and rate-limit tier.
func (m *Middleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := m.extractToken(r)
		if err != nil {
			m.logger.Warn("missing bearer token",
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			m.recordFailure("missing_token")
			types.WriteError(w, types.NewAuthError("Authentication credentials were not provided."))
			return
		}

		info, err := m.verifier.Verify(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidToken):
				m.recordFailure("invalid_token")
			case errors.Is(err, ErrTokenDisabled):
				m.recordFailure("token_disabled")
			default:
				m.logger.Error("token verification failed",
					"error", err,
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
				)
				m.recordFailure("verification_error")
			}
			m.logger.Warn("invalid bearer token",
				"token", token,
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			types.WriteError(w, types.NewAuthError("Invalid token."))
			return
		}

		ctx := middleware.WithUser(r.Context(), info.User)
		ctx = middleware.WithTier(ctx, info.Tier)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken extracts the bearer token using the configured sources.
func (m *Middleware) extractToken(r *http.Request) (string, error) {
	for _, source := range m.sources {
		switch source.Type {
		case "header":
			value := r.Header.Get(source.Name)
			if value == "" {
				continue
			}
			if source.Scheme != "" {
				prefix := source.Scheme + " "
				if strings.HasPrefix(value, prefix) {
					return strings.TrimPrefix(value, prefix), nil
				}
				continue
			}
			return value, nil

		case "query":
			if value := r.URL.Query().Get(source.Name); value != "" {
				return value, nil
			}
		}
	}

	return "", ErrNoToken
}

func (m *Middleware) recordFailure(reason string) {
	if m.collector != nil {
		m.collector.RecordAuthFailure(reason)
	}
}
