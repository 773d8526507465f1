package recorder

import (
	"net/http"
	"time"

	"github.com/richrines1/qiskit-serverless/pkg/audit"
	"github.com/richrines1/qiskit-serverless/pkg/proxy/middleware"
)

// Middleware records one audit entry per request after the handler chain
// completes. It must sit inside the request ID and auth middleware so the
// identity fields are populated.
func Middleware(rec *Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(cw, r)

			ctx := r.Context()
			record := &audit.Record{
				RequestID:     middleware.GetRequestID(ctx),
				RequestTime:   start,
				Method:        r.Method,
				Path:          r.URL.Path,
				APIVersion:    middleware.GetAPIVersion(ctx),
				Resource:      middleware.GetResource(ctx),
				User:          middleware.GetUser(ctx),
				Tier:          middleware.GetTier(ctx),
				Upstream:      middleware.GetUpstream(ctx),
				Status:        cw.status,
				Latency:       time.Since(start),
				RequestBytes:  max64(r.ContentLength, 0),
				ResponseBytes: cw.bytes,
				RemoteAddr:    r.RemoteAddr,
				UserAgent:     r.UserAgent(),
			}

			// Best effort: a full buffer is already logged by Record.
			_ = rec.Record(record)
		})
	}
}

type captureWriter struct {
	http.ResponseWriter
	status  int
	bytes   int64
	written bool
}

func (cw *captureWriter) WriteHeader(status int) {
	if !cw.written {
		cw.status = status
		cw.written = true
	}
	cw.ResponseWriter.WriteHeader(status)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	cw.written = true
	n, err := cw.ResponseWriter.Write(b)
	cw.bytes += int64(n)
	return n, err
}

func (cw *captureWriter) Flush() {
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func max64(v, floor int64) int64 {
	if v < floor {
		return floor
	}
	return v
}
