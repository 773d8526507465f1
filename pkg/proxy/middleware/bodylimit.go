package middleware

import (
	"net/http"

	"github.com/richrines1/qiskit-serverless/pkg/proxy/types"
)

// BodyLimit rejects requests whose declared Content-Length exceeds the
// configured maximum and caps chunked bodies with http.MaxBytesReader.
// A limit of zero disables the check.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				types.WriteError(w, types.NewRequestTooLargeError(
					"Request body exceeds the maximum allowed size.",
				))
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
