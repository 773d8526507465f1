package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/richrines1/qiskit-serverless/pkg/proxy/types"
	"github.com/richrines1/qiskit-serverless/pkg/telemetry/logging"
)

// Recovery recovers from panics in HTTP handlers and returns a 500 response
// in the gateway error format. The panic and stack trace are logged; no
// internal details reach the client.
func Recovery(logger *logging.Logger) func(http.Handler) http.Handler {
	logger = logger.Component("recovery")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic in handler",
						"error", err,
						"request_id", GetRequestID(r.Context()),
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)

					types.WriteError(w, types.NewServerError(
						"An internal error occurred. Please try again later.",
					))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
