package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/richrines1/qiskit-serverless/pkg/upstream"
)

// Health serves the liveness, readiness, and upstream health endpoints.
type Health struct {
	manager *upstream.Manager
	version string
}

// NewHealth creates a health handler backed by the upstream manager.
func NewHealth(manager *upstream.Manager, version string) *Health {
	return &Health{manager: manager, version: version}
}

// Live reports process liveness. It always succeeds while the server is
// accepting connections.
func (h *Health) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   h.version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready reports readiness. The proxy is ready when at least one upstream is
// healthy; otherwise it returns 503 so load balancers stop sending traffic.
func (h *Health) Ready(w http.ResponseWriter, r *http.Request) {
	healthy := len(h.manager.Healthy())
	status := http.StatusOK
	state := "ready"
	if healthy == 0 {
		status = http.StatusServiceUnavailable
		state = "not_ready"
	}
	writeJSON(w, status, map[string]any{
		"status":            state,
		"healthy_upstreams": healthy,
		"total_upstreams":   len(h.manager.All()),
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
	})
}

// Upstreams reports per-upstream health state.
func (h *Health) Upstreams(w http.ResponseWriter, r *http.Request) {
	snapshot := h.manager.HealthSnapshot()
	upstreams := make(map[string]string, len(snapshot))
	for name, healthy := range snapshot {
		if healthy {
			upstreams[name] = "healthy"
		} else {
			upstreams[name] = "unhealthy"
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"upstreams": upstreams,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
