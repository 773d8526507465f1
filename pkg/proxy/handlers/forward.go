package handlers

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/richrines1/qiskit-serverless/pkg/proxy/middleware"
	"github.com/richrines1/qiskit-serverless/pkg/proxy/types"
	"github.com/richrines1/qiskit-serverless/pkg/routing"
	"github.com/richrines1/qiskit-serverless/pkg/telemetry/logging"
	"github.com/richrines1/qiskit-serverless/pkg/telemetry/tracing"
	"github.com/richrines1/qiskit-serverless/pkg/upstream"
)

// hopHeaders are stripped in both directions; they are connection-scoped,
// not end-to-end.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Forwarder proxies API requests to a routed upstream, streaming the
// response back unchanged.
type Forwarder struct {
	router *routing.Router
	logger *logging.Logger
}

// NewForwarder creates a forwarding handler.
func NewForwarder(router *routing.Router, logger *logging.Logger) *Forwarder {
	return &Forwarder{
		router: router,
		logger: logger.Component("forwarder"),
	}
}

// ServeHTTP forwards one request. The routing key is the authenticated user
// so sticky routing pins users, not connections.
func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	version, resource := classifyTarget(r.URL.Path)
	ctx = middleware.WithAPIVersion(ctx, version)
	ctx = middleware.WithResource(ctx, resource)

	target, release, err := f.router.Route(middleware.GetUser(ctx))
	if err != nil {
		f.logger.ErrorContext(ctx, "no upstream available", "error", err)
		types.WriteError(w, types.NewServiceUnavailableError("No upstream available."))
		return
	}
	defer release()

	ctx = middleware.WithUpstream(ctx, target.Name())

	outReq, err := f.buildRequest(r, target)
	if err != nil {
		f.logger.ErrorContext(ctx, "failed to build upstream request", "error", err)
		types.WriteError(w, types.NewServerError("Internal server error."))
		return
	}

	tracing.Inject(ctx, outReq.Header)

	resp, err := target.Do(ctx, outReq)
	if err != nil {
		f.writeUpstreamError(w, r, target.Name(), err)
		return
	}
	defer resp.Body.Close()

	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		// The response is already underway; all we can do is log.
		f.logger.WarnContext(ctx, "response copy interrupted",
			"upstream", target.Name(),
			"error", err,
		)
	}
}

// buildRequest clones the inbound request against the upstream's base URL.
func (f *Forwarder) buildRequest(r *http.Request, target *upstream.Upstream) (*http.Request, error) {
	base := target.BaseURL()

	u := &url.URL{
		Scheme:   base.Scheme,
		Host:     base.Host,
		Path:     singleJoin(base.Path, r.URL.Path),
		RawQuery: r.URL.RawQuery,
	}

	outReq, err := http.NewRequestWithContext(r.Context(), r.Method, u.String(), r.Body)
	if err != nil {
		return nil, err
	}
	outReq.ContentLength = r.ContentLength

	copyHeaders(outReq.Header, r.Header)
	outReq.Header.Set(middleware.RequestIDHeader, middleware.GetRequestID(r.Context()))

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		prior := r.Header.Get("X-Forwarded-For")
		if prior != "" {
			host = prior + ", " + host
		}
		outReq.Header.Set("X-Forwarded-For", host)
	}
	proto := "http"
	if r.TLS != nil {
		proto = "https"
	}
	outReq.Header.Set("X-Forwarded-Proto", proto)

	return outReq, nil
}

func (f *Forwarder) writeUpstreamError(w http.ResponseWriter, r *http.Request, name string, err error) {
	f.logger.ErrorContext(r.Context(), "upstream request failed",
		"upstream", name,
		"error", err,
	)

	var (
		timeoutErr  *upstream.TimeoutError
		maxBytesErr *http.MaxBytesError
	)
	switch {
	case errors.As(err, &maxBytesErr):
		// A chunked body tripped the limit while the upstream client was
		// reading it. The fault is the client's, not the gateway's.
		types.WriteError(w, types.NewRequestTooLargeError(
			"Request body exceeds the maximum allowed size.",
		))
	case errors.Is(err, upstream.ErrCircuitOpen):
		types.WriteError(w, types.NewServiceUnavailableError("Upstream temporarily unavailable."))
	case errors.As(err, &timeoutErr), errors.Is(err, context.DeadlineExceeded):
		types.WriteError(w, types.NewGatewayTimeoutError("Upstream timed out."))
	default:
		types.WriteError(w, types.NewBadGatewayError("Bad gateway."))
	}
}

// classifyTarget extracts the api version and resource kind from a forwarded
// path such as /api/v1/jobs/123/result. Job sub-resources (result, logs,
// stop) are folded into the resource label; unrecognized segments collapse
// to "other" so metric cardinality stays bounded. Payloads are never
// inspected or rewritten.
func classifyTarget(path string) (version, resource string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || parts[0] != "api" {
		return "", ""
	}
	version = parts[1]
	if len(parts) < 3 || parts[2] == "" {
		return version, ""
	}

	switch parts[2] {
	case "programs", "files":
		resource = parts[2]
	case "jobs":
		resource = "jobs"
		if len(parts) >= 5 {
			switch parts[4] {
			case "result", "logs", "stop":
				resource = "jobs." + parts[4]
			}
		}
	default:
		resource = "other"
	}
	return version, resource
}

func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		if isHopHeader(key) {
			continue
		}
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}

func isHopHeader(key string) bool {
	for _, h := range hopHeaders {
		if http.CanonicalHeaderKey(key) == h {
			return true
		}
	}
	return false
}

func singleJoin(a, b string) string {
	switch {
	case a == "":
		return b
	case strings.HasSuffix(a, "/") && strings.HasPrefix(b, "/"):
		return a + b[1:]
	case !strings.HasSuffix(a, "/") && !strings.HasPrefix(b, "/"):
		return a + "/" + b
	default:
		return a + b
	}
}
