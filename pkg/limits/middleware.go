package limits

import (
	"fmt"
	"math"
	"net/http"

	"github.com/richrines1/qiskit-serverless/pkg/proxy/middleware"
	"github.com/richrines1/qiskit-serverless/pkg/proxy/types"
)

// Middleware enforces the manager's limits on each request. Rejected
// requests receive 429 with a Retry-After header and never reach an
// upstream. Requires the authentication middleware to have run first so the
// user and tier are in the request context.
func Middleware(manager *Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			user := middleware.GetUser(ctx)
			tier := middleware.GetTier(ctx)

			decision, release := manager.Check(ctx, user, tier)
			if !decision.Allowed {
				message := "Request was throttled."
				if decision.RetryAfter > 0 {
					secs := int(math.Ceil(decision.RetryAfter.Seconds()))
					w.Header().Set("Retry-After", fmt.Sprintf("%d", secs))
					message = fmt.Sprintf("Request was throttled. Expected available in %d seconds.", secs)
				}
				types.WriteError(w, types.NewRateLimitError(message))
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
