package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/richrines1/qiskit-serverless/pkg/audit"
	"github.com/richrines1/qiskit-serverless/pkg/audit/recorder"
	"github.com/richrines1/qiskit-serverless/pkg/audit/retention"
	auditstorage "github.com/richrines1/qiskit-serverless/pkg/audit/storage"
	"github.com/richrines1/qiskit-serverless/pkg/cluster"
	"github.com/richrines1/qiskit-serverless/pkg/config"
	"github.com/richrines1/qiskit-serverless/pkg/limits"
	"github.com/richrines1/qiskit-serverless/pkg/routing"
	"github.com/richrines1/qiskit-serverless/pkg/routing/strategies"
	"github.com/richrines1/qiskit-serverless/pkg/security/auth"
	securitytls "github.com/richrines1/qiskit-serverless/pkg/security/tls"
	"github.com/richrines1/qiskit-serverless/pkg/telemetry/logging"
	"github.com/richrines1/qiskit-serverless/pkg/telemetry/metrics"
	"github.com/richrines1/qiskit-serverless/pkg/telemetry/tracing"
	"github.com/richrines1/qiskit-serverless/pkg/upstream"

	"github.com/prometheus/client_golang/prometheus"
)

// Server is the HTTPS proxy in front of the gateway API. It owns every
// component's lifecycle: upstream health checking, token stores, the audit
// pipeline, and the retention scheduler all start with the server and stop
// with it.
type Server struct {
	cfg     *config.Config
	version string
	logger  *logging.Logger

	collector *metrics.Collector
	tracer    *tracing.Tracer

	upstreams  *upstream.Manager
	router     *routing.Router
	limits     *limits.Manager
	authMW     *auth.Middleware
	tokenStore *auth.FileStore

	auditStorage audit.Storage
	recorder     *recorder.Recorder
	retention    *retention.Scheduler

	clusters *cluster.Manager

	tlsReloader *securitytls.CertificateReloader
	httpServer  *http.Server

	shutdownOnce sync.Once
	shutdownErr  error
}

// New assembles a server from its configuration. Nothing starts listening
// until Start is called.
func New(cfg *config.Config, version string, logger *logging.Logger) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		version: version,
		logger:  logger.Component("server"),
	}

	if cfg.Telemetry.Metrics.Enabled {
		s.collector = metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
	}

	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}
	s.tracer = tracer

	s.upstreams, err = upstream.NewManager(cfg.Upstreams, logger, s.collector)
	if err != nil {
		return nil, fmt.Errorf("initializing upstreams: %w", err)
	}

	strategy, err := strategies.ForConfig(&cfg.Routing)
	if err != nil {
		return nil, fmt.Errorf("initializing routing: %w", err)
	}
	s.router, err = routing.NewRouter(&cfg.Routing, s.upstreams, logger, strategy)
	if err != nil {
		return nil, fmt.Errorf("initializing router: %w", err)
	}

	if err := s.setupAuth(); err != nil {
		return nil, err
	}

	s.limits, err = limits.NewManager(&cfg.Limits, logger, s.collector)
	if err != nil {
		return nil, fmt.Errorf("initializing rate limits: %w", err)
	}

	if err := s.setupAudit(); err != nil {
		return nil, err
	}

	if cfg.Clusters.Enabled {
		s.clusters, err = cluster.NewManager(&cfg.Clusters, logger, s.collector)
		if err != nil {
			return nil, fmt.Errorf("initializing cluster manager: %w", err)
		}
	}

	return s, nil
}

// setupAuth builds the token verifier for the configured mode and wraps it
// in the auth middleware.
func (s *Server) setupAuth() error {
	sources, err := auth.ParseSources(s.cfg.Auth.Sources)
	if err != nil {
		return fmt.Errorf("parsing auth sources: %w", err)
	}

	var verifier auth.Verifier
	switch s.cfg.Auth.Mode {
	case "", "static":
		inline := make([]auth.TokenInfo, 0, len(s.cfg.Auth.Tokens))
		for _, t := range s.cfg.Auth.Tokens {
			inline = append(inline, auth.TokenInfo{
				Token:   t.Token,
				User:    t.User,
				Enabled: t.Enabled,
				Tier:    t.Tier,
			})
		}
		static := auth.NewStaticVerifier(inline)
		if s.cfg.Auth.TokenFile != "" {
			store, err := auth.NewFileStore(s.cfg.Auth.TokenFile, inline, static, s.logger)
			if err != nil {
				return fmt.Errorf("loading token file: %w", err)
			}
			s.tokenStore = store
		}
		verifier = static
	case "upstream":
		base, err := s.verifyBaseURL()
		if err != nil {
			return err
		}
		verifier = auth.NewUpstreamVerifier(base, s.cfg.Auth.VerifyTTL, nil)
	default:
		return fmt.Errorf("unknown auth mode %q", s.cfg.Auth.Mode)
	}

	s.authMW = auth.NewMiddleware(verifier, sources, s.logger, s.collector)
	return nil
}

// verifyBaseURL picks the upstream that token verification calls go to: the
// default upstream when one is configured, otherwise the first by name.
func (s *Server) verifyBaseURL() (string, error) {
	if name := s.cfg.Routing.DefaultUpstream; name != "" {
		if u, ok := s.cfg.Upstreams[name]; ok {
			return u.BaseURL, nil
		}
		return "", fmt.Errorf("default upstream %q is not configured", name)
	}

	names := make([]string, 0, len(s.cfg.Upstreams))
	for name := range s.cfg.Upstreams {
		names = append(names, name)
	}
	if len(names) == 0 {
		return "", fmt.Errorf("upstream auth mode requires at least one upstream")
	}
	sort.Strings(names)
	return s.cfg.Upstreams[names[0]].BaseURL, nil
}

// setupAudit builds the audit storage backend, the async recorder, and the
// retention scheduler. A disabled audit section leaves all three nil.
func (s *Server) setupAudit() error {
	if !s.cfg.Audit.Enabled {
		return nil
	}

	var err error
	switch s.cfg.Audit.Backend {
	case "", "sqlite":
		s.auditStorage, err = auditstorage.NewSQLiteStorage(&s.cfg.Audit.SQLite, s.logger)
		if err != nil {
			return fmt.Errorf("initializing audit storage: %w", err)
		}
	case "memory":
		s.auditStorage = auditstorage.NewMemoryStorage()
	default:
		return fmt.Errorf("unknown audit backend %q", s.cfg.Audit.Backend)
	}

	s.recorder = recorder.New(&s.cfg.Audit, s.auditStorage, s.logger)

	pruner := retention.NewPruner(s.auditStorage, &s.cfg.Audit.Retention, s.logger)
	s.retention = retention.NewScheduler(pruner, s.cfg.Audit.Retention.PruneSchedule, s.logger)

	return nil
}

// Start runs the server until the context is cancelled, a termination
// signal arrives, or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	handler := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           s.cfg.Proxy.ListenAddress,
		Handler:        handler,
		ReadTimeout:    s.cfg.Proxy.ReadTimeout,
		WriteTimeout:   s.cfg.Proxy.WriteTimeout,
		IdleTimeout:    s.cfg.Proxy.IdleTimeout,
		MaxHeaderBytes: s.cfg.Proxy.MaxHeaderBytes,
	}

	tlsEnabled := s.cfg.Security.TLS.Enabled
	if tlsEnabled {
		tlsConfig, reloader, err := securitytls.Build(&s.cfg.Security.TLS, s.logger)
		if err != nil {
			return fmt.Errorf("configuring TLS: %w", err)
		}
		s.httpServer.TLSConfig = tlsConfig
		s.tlsReloader = reloader
		if reloader != nil {
			if err := reloader.Start(ctx); err != nil {
				return fmt.Errorf("starting certificate reloader: %w", err)
			}
		}
	}

	s.upstreams.StartHealthChecks(ctx)

	if s.tokenStore != nil {
		if err := s.tokenStore.Watch(); err != nil {
			return fmt.Errorf("watching token file: %w", err)
		}
	}

	if s.retention != nil {
		if err := s.retention.Start(ctx); err != nil {
			return fmt.Errorf("starting retention scheduler: %w", err)
		}
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting proxy server",
			"address", s.cfg.Proxy.ListenAddress,
			"tls_enabled", tlsEnabled,
			"version", s.version,
		)

		var err error
		if tlsEnabled {
			// Certificates come from the reloader via GetCertificate.
			err = s.httpServer.ListenAndServeTLS("", "")
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.close()
		return err
	}
}

// Handler returns the fully configured HTTP handler. Useful for tests and
// for embedding the proxy behind another listener.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// Shutdown drains in-flight requests, then stops every component. Safe to
// call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		timeout := s.cfg.Proxy.ShutdownTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		s.logger.Info("initiating graceful shutdown", "timeout", timeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				s.shutdownErr = fmt.Errorf("server shutdown: %w", err)
			}
		}

		s.close()
		s.logger.Info("proxy server stopped")
	})

	return s.shutdownErr
}

// close stops background components in dependency order: the recorder
// drains into storage before storage closes.
func (s *Server) close() {
	if s.retention != nil {
		s.retention.Stop()
	}
	if s.recorder != nil {
		if err := s.recorder.Close(); err != nil {
			s.logger.Error("closing audit recorder", "error", err)
		}
	}
	if s.auditStorage != nil {
		if err := s.auditStorage.Close(); err != nil {
			s.logger.Error("closing audit storage", "error", err)
		}
	}
	if s.tokenStore != nil {
		if err := s.tokenStore.Close(); err != nil {
			s.logger.Error("closing token store", "error", err)
		}
	}
	if s.limits != nil {
		if err := s.limits.Close(); err != nil {
			s.logger.Error("closing limits manager", "error", err)
		}
	}
	s.upstreams.Stop()
	if s.tracer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.tracer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("shutting down tracer", "error", err)
		}
	}
}
