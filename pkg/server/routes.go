package server

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/richrines1/qiskit-serverless/pkg/audit/recorder"
	"github.com/richrines1/qiskit-serverless/pkg/limits"
	"github.com/richrines1/qiskit-serverless/pkg/proxy/handlers"
	"github.com/richrines1/qiskit-serverless/pkg/proxy/middleware"
	"github.com/richrines1/qiskit-serverless/pkg/proxy/types"
)

// setupRoutes builds the full handler: probes and metrics are public, the
// gateway API requires a token and counts against rate limits, and the
// admin surface requires a token as well.
func (s *Server) setupRoutes() http.Handler {
	r := chi.NewRouter()

	// RequestID must be outermost so every later stage, including the
	// audit recorder, sees the request's identity fields.
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(s.logger))
	r.Use(middleware.Logging(s.logger))
	if s.cfg.Proxy.CORS.Enabled {
		r.Use(middleware.CORS(&s.cfg.Proxy.CORS))
	}
	r.Use(middleware.Tracing(s.tracer))
	if s.collector != nil {
		r.Use(middleware.Metrics(s.collector))
	}
	if s.recorder != nil {
		r.Use(recorder.Middleware(s.recorder))
	}

	health := handlers.NewHealth(s.upstreams, s.version)
	r.Get("/health", health.Live)
	r.Get("/ready", health.Ready)
	r.Get("/health/upstreams", health.Upstreams)

	if s.collector != nil {
		path := s.cfg.Telemetry.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, s.collector.Handler())
	}

	forwarder := handlers.NewForwarder(s.router, s.logger)
	r.Route("/api/{version}", func(r chi.Router) {
		r.Use(s.versionGate)
		if s.cfg.API.MaxBodyBytes > 0 {
			r.Use(middleware.BodyLimit(s.cfg.API.MaxBodyBytes))
		}
		if s.cfg.API.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.cfg.API.RequestTimeout))
		}
		r.Use(s.authMW.Handle)
		r.Use(limits.Middleware(s.limits))
		r.Handle("/*", forwarder)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.authMW.Handle)
		admin := handlers.NewAdmin(s.router, s.limits, s.auditStorage, s.logger)
		r.Mount("/", admin.Routes())
		if s.clusters != nil {
			clusters := handlers.NewClusters(s.clusters, s.logger)
			r.Mount("/clusters", clusters.Routes())
		}
	})

	return r
}

// versionGate rejects API versions the proxy is not configured to forward.
func (s *Server) versionGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		version := chi.URLParam(r, "version")
		if !s.versionAllowed(version) {
			types.WriteError(w, types.NewNotFoundError("Unknown API version."))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) versionAllowed(version string) bool {
	allowed := s.cfg.API.AllowedVersions
	if len(allowed) == 0 {
		return version == s.cfg.API.DefaultVersion || version == "v1"
	}
	return slices.Contains(allowed, version)
}
