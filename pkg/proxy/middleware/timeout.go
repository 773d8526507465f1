package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout applies a per-request deadline via the request context. Handlers
// and the upstream transport observe cancellation through ctx.Done(). A zero
// duration disables the deadline; file transfers rely on that for the
// streaming routes.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
