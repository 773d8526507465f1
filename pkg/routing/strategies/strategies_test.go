package strategies

import (
	"bytes"
	"testing"
	"time"

	"github.com/richrines1/qiskit-serverless/pkg/config"
	"github.com/richrines1/qiskit-serverless/pkg/routing"
	"github.com/richrines1/qiskit-serverless/pkg/telemetry/logging"
	"github.com/richrines1/qiskit-serverless/pkg/upstream"
)

func makeUpstreams(t *testing.T, weights map[string]int) []*upstream.Upstream {
	t.Helper()
	logger, err := logging.New(&config.LoggingConfig{Level: "error", Format: "json"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("creating logger: %v", err)
	}

	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	// Stable order for deterministic tests.
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if names[j] < names[i] {
				names[i], names[j] = names[j], names[i]
			}
		}
	}

	ups := make([]*upstream.Upstream, 0, len(names))
	for _, name := range names {
		u, err := upstream.New(name, config.UpstreamConfig{
			BaseURL: "http://" + name + ":8000",
			Weight:  weights[name],
		}, logger, nil)
		if err != nil {
			t.Fatalf("creating upstream: %v", err)
		}
		ups = append(ups, u)
	}
	return ups
}

func TestRoundRobinRotates(t *testing.T) {
	ups := makeUpstreams(t, map[string]int{"gateway-a": 1, "gateway-b": 1})
	rr := NewRoundRobin()

	counts := make(map[string]int)
	for i := 0; i < 10; i++ {
		u, err := rr.Select(ups, "")
		if err != nil {
			t.Fatalf("Select failed: %v", err)
		}
		counts[u.Name()]++
	}

	if counts["gateway-a"] != 5 || counts["gateway-b"] != 5 {
		t.Errorf("expected even distribution, got %v", counts)
	}
}

func TestRoundRobinRespectsWeights(t *testing.T) {
	ups := makeUpstreams(t, map[string]int{"gateway-a": 3, "gateway-b": 1})
	rr := NewRoundRobin()

	counts := make(map[string]int)
	for i := 0; i < 40; i++ {
		u, err := rr.Select(ups, "")
		if err != nil {
			t.Fatalf("Select failed: %v", err)
		}
		counts[u.Name()]++
	}

	if counts["gateway-a"] != 30 || counts["gateway-b"] != 10 {
		t.Errorf("expected 3:1 weighting, got %v", counts)
	}
}

func TestRoundRobinNoCandidates(t *testing.T) {
	rr := NewRoundRobin()
	if _, err := rr.Select(nil, ""); err != routing.ErrNoHealthyUpstreams {
		t.Errorf("expected ErrNoHealthyUpstreams, got %v", err)
	}
}

func TestStickyPinsCaller(t *testing.T) {
	ups := makeUpstreams(t, map[string]int{"gateway-a": 1, "gateway-b": 1})
	s := NewSticky(NewRoundRobin(), time.Hour, 100)

	first, err := s.Select(ups, "alice")
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		u, err := s.Select(ups, "alice")
		if err != nil {
			t.Fatalf("Select failed: %v", err)
		}
		if u.Name() != first.Name() {
			t.Fatalf("expected sticky assignment to %s, got %s", first.Name(), u.Name())
		}
	}
}

func TestStickyReassignsWhenPinnedGone(t *testing.T) {
	ups := makeUpstreams(t, map[string]int{"gateway-a": 1, "gateway-b": 1})
	s := NewSticky(NewRoundRobin(), time.Hour, 100)

	first, err := s.Select(ups, "alice")
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	// Remove the pinned upstream from the candidate set.
	var remaining []*upstream.Upstream
	for _, u := range ups {
		if u.Name() != first.Name() {
			remaining = append(remaining, u)
		}
	}

	u, err := s.Select(remaining, "alice")
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if u.Name() == first.Name() {
		t.Error("expected reassignment away from removed upstream")
	}

	// The new assignment sticks.
	again, err := s.Select(remaining, "alice")
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if again.Name() != u.Name() {
		t.Error("expected new assignment to stick")
	}
}

func TestStickyEvictsLRU(t *testing.T) {
	ups := makeUpstreams(t, map[string]int{"gateway-a": 1})
	s := NewSticky(NewRoundRobin(), time.Hour, 2)

	for _, key := range []string{"u1", "u2", "u3"} {
		if _, err := s.Select(ups, key); err != nil {
			t.Fatalf("Select failed: %v", err)
		}
	}

	if s.Len() != 2 {
		t.Errorf("expected 2 entries after LRU eviction, got %d", s.Len())
	}
}

func TestStickyExpiry(t *testing.T) {
	ups := makeUpstreams(t, map[string]int{"gateway-a": 1, "gateway-b": 1})
	s := NewSticky(NewRoundRobin(), time.Minute, 100)

	base := time.Now()
	s.now = func() time.Time { return base }

	if _, err := s.Select(ups, "alice"); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 assignment, got %d", s.Len())
	}

	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, ok := s.lookup("alice"); ok {
		t.Error("expected expired assignment to be dropped")
	}
}

func TestHealthBasedPrefersLeastLoaded(t *testing.T) {
	ups := makeUpstreams(t, map[string]int{"gateway-a": 1, "gateway-b": 1})
	hb := NewHealthBased()

	// Load gateway-a with two in-flight requests.
	hb.Acquire("gateway-a")
	hb.Acquire("gateway-a")
	release := hb.Acquire("gateway-b")

	u, err := hb.Select(ups, "")
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if u.Name() != "gateway-b" {
		t.Errorf("expected least-loaded gateway-b, got %s", u.Name())
	}

	// Releasing twice must not go negative.
	release()
	release()

	u, err = hb.Select(ups, "")
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if u.Name() != "gateway-b" {
		t.Errorf("expected gateway-b with zero load, got %s", u.Name())
	}
}

func TestManual(t *testing.T) {
	ups := makeUpstreams(t, map[string]int{"gateway-a": 1, "gateway-b": 1})
	m := NewManual("gateway-b")

	u, err := m.Select(ups, "")
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if u.Name() != "gateway-b" {
		t.Errorf("expected gateway-b, got %s", u.Name())
	}

	missing := NewManual("gateway-c")
	if _, err := missing.Select(ups, ""); err != routing.ErrNoHealthyUpstreams {
		t.Errorf("expected ErrNoHealthyUpstreams, got %v", err)
	}
}

func TestForConfig(t *testing.T) {
	tests := []struct {
		strategy string
		want     string
	}{
		{"round-robin", "round-robin"},
		{"sticky", "sticky"},
		{"health-based", "health-based"},
		{"manual", "manual"},
	}

	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			s, err := ForConfig(&config.RoutingConfig{
				Strategy:        tt.strategy,
				DefaultUpstream: "gateway-a",
				Sticky:          config.StickyConfig{TTL: time.Minute, MaxEntries: 10},
			})
			if err != nil {
				t.Fatalf("ForConfig failed: %v", err)
			}
			if s.Name() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, s.Name())
			}
		})
	}

	if _, err := ForConfig(&config.RoutingConfig{Strategy: "random"}); err == nil {
		t.Error("expected error for unknown strategy")
	}
}
