package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/richrines1/qiskit-serverless/pkg/telemetry/metrics"
)

// Metrics records request count, duration, and sizes for every request.
// The route label uses the chi route pattern rather than the raw path so
// metric cardinality stays bounded.
func Metrics(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			collector.IncInflight()
			defer collector.DecInflight()

			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)

			var route string
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}
			if route == "" {
				route = "unmatched"
			}

			collector.RecordRequest(
				r.Method,
				route,
				GetAPIVersion(r.Context()),
				GetResource(r.Context()),
				strconv.Itoa(rw.statusCode),
				GetUpstream(r.Context()),
				time.Since(start),
				r.ContentLength,
				rw.bytes,
			)
		})
	}
}
