package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/richrines1/qiskit-serverless/pkg/config"
	"github.com/richrines1/qiskit-serverless/pkg/telemetry/logging"
	"github.com/richrines1/qiskit-serverless/pkg/telemetry/metrics"
)

// failureThreshold is the number of consecutive failures after which an
// upstream's circuit opens. The health checker closes it again once a probe
// succeeds.
const failureThreshold = 3

// retryBaseBackoff is the initial retry backoff, doubled per attempt.
const retryBaseBackoff = 100 * time.Millisecond

// Upstream is one gateway replica behind the proxy. It owns a pooled HTTP
// client, retry behavior, and a consecutive-failure circuit breaker.
type Upstream struct {
	name      string
	baseURL   *url.URL
	cfg       config.UpstreamConfig
	client    *http.Client
	logger    *logging.Logger
	collector *metrics.Collector

	mu                  sync.Mutex
	consecutiveFailures int
	healthy             atomic.Bool
}

// New creates an upstream from its configuration. The collector may be nil
// when metrics are disabled.
func New(name string, cfg config.UpstreamConfig, logger *logging.Logger, collector *metrics.Collector) (*Upstream, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL for upstream %s: %w", name, err)
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
	}

	u := &Upstream{
		name:    name,
		baseURL: base,
		cfg:     cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
			// The proxy forwards redirects to the client untouched.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger:    logger.Component("upstream").With("upstream", name),
		collector: collector,
	}
	u.healthy.Store(true)

	return u, nil
}

// Name returns the upstream's configured name.
func (u *Upstream) Name() string {
	return u.name
}

// BaseURL returns the upstream's base URL.
func (u *Upstream) BaseURL() *url.URL {
	return u.baseURL
}

// Weight returns the round-robin weight.
func (u *Upstream) Weight() int {
	return u.cfg.Weight
}

// Healthy reports whether the upstream is accepting traffic.
func (u *Upstream) Healthy() bool {
	return u.healthy.Load()
}

// Do sends the request to the upstream, retrying transient failures when the
// request is replayable. It refuses immediately if the circuit is open.
// The caller owns the response body.
func (u *Upstream) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if !u.healthy.Load() {
		return nil, ErrCircuitOpen
	}

	maxAttempts := 1
	if u.replayable(req) {
		maxAttempts = u.cfg.MaxRetries + 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if u.collector != nil {
				u.collector.RecordUpstreamRetry(u.name)
			}
			backoff := retryBaseBackoff * (1 << (attempt - 1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, classify(u.name, ctx.Err())
			}

			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("replaying request body: %w", err)
				}
				req.Body = body
			}
		}

		start := time.Now()
		resp, err := u.client.Do(req.WithContext(ctx))
		if u.collector != nil {
			u.collector.RecordUpstreamLatency(u.name, time.Since(start).Seconds())
		}

		if err != nil {
			lastErr = classify(u.name, err)
			u.recordFailure(lastErr)
			continue
		}

		if isRetryableStatus(resp.StatusCode) && attempt < maxAttempts-1 {
			resp.Body.Close()
			lastErr = &ServerError{Upstream: u.name, StatusCode: resp.StatusCode}
			u.recordFailure(lastErr)
			continue
		}

		// Gateway 5xx responses past the retry budget still pass through;
		// the client sees exactly what the gateway said.
		if resp.StatusCode >= 500 {
			u.recordFailure(&ServerError{Upstream: u.name, StatusCode: resp.StatusCode})
		} else {
			u.recordSuccess()
		}
		return resp, nil
	}

	return nil, lastErr
}

// replayable reports whether a request can safely be retried.
func (u *Upstream) replayable(req *http.Request) bool {
	if req.Body == nil || req.Body == http.NoBody {
		return true
	}
	return req.GetBody != nil
}

// isRetryableStatus reports whether a status code indicates a transient
// upstream condition.
func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Probe checks the upstream's health endpoint. A success closes the circuit.
func (u *Upstream) Probe(ctx context.Context) error {
	probeURL := *u.baseURL
	probeURL.Path = u.cfg.HealthPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL.String(), nil)
	if err != nil {
		return err
	}

	resp, err := u.client.Do(req)
	if err != nil {
		u.markUnhealthy(classify(u.name, err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := &ServerError{Upstream: u.name, StatusCode: resp.StatusCode}
		u.markUnhealthy(err)
		return err
	}

	u.recordSuccess()
	return nil
}

// recordSuccess resets the failure counter and closes the circuit.
func (u *Upstream) recordSuccess() {
	u.mu.Lock()
	u.consecutiveFailures = 0
	wasUnhealthy := !u.healthy.Load()
	u.healthy.Store(true)
	u.mu.Unlock()

	if wasUnhealthy {
		u.logger.Info("upstream recovered")
	}
	if u.collector != nil {
		u.collector.UpdateUpstreamHealth(u.name, true)
	}
}

// recordFailure increments the failure counter and opens the circuit at the
// threshold.
func (u *Upstream) recordFailure(err error) {
	if u.collector != nil {
		u.collector.RecordUpstreamError(u.name, ErrorType(err))
	}

	u.mu.Lock()
	u.consecutiveFailures++
	failures := u.consecutiveFailures
	opened := false
	if failures >= failureThreshold && u.healthy.Load() {
		u.healthy.Store(false)
		opened = true
	}
	u.mu.Unlock()

	if opened {
		u.logger.Warn("upstream circuit opened",
			"consecutive_failures", failures,
			"error", err,
		)
		if u.collector != nil {
			u.collector.UpdateUpstreamHealth(u.name, false)
		}
	}
}

// markUnhealthy opens the circuit immediately, bypassing the threshold.
// Used by health probes, which are authoritative.
func (u *Upstream) markUnhealthy(err error) {
	u.mu.Lock()
	u.consecutiveFailures = failureThreshold
	wasHealthy := u.healthy.Load()
	u.healthy.Store(false)
	u.mu.Unlock()

	if wasHealthy {
		u.logger.Warn("upstream marked unhealthy by probe", "error", err)
		if u.collector != nil {
			u.collector.UpdateUpstreamHealth(u.name, false)
		}
	}
}
