package ratelimit

import (
	"testing"
	"time"

	"github.com/richrines1/qiskit-serverless/pkg/config"
)

func TestTokenBucketBurstThenEmpty(t *testing.T) {
	tb := NewTokenBucket(3, 1)

	for i := 0; i < 3; i++ {
		if !tb.Take() {
			t.Fatalf("take %d should succeed within burst", i)
		}
	}
	if tb.Take() {
		t.Error("take should fail on empty bucket")
	}
}

func TestTokenBucketRefills(t *testing.T) {
	tb := NewTokenBucket(2, 10)

	base := time.Now()
	tb.now = func() time.Time { return base }
	tb.lastRefill = base

	tb.Take()
	tb.Take()
	if tb.Take() {
		t.Fatal("bucket should be empty")
	}

	// 200ms at 10 tokens/sec refills 2 tokens.
	tb.now = func() time.Time { return base.Add(200 * time.Millisecond) }
	if !tb.Take() {
		t.Error("expected refilled token")
	}
	if !tb.Take() {
		t.Error("expected second refilled token")
	}
	if tb.Take() {
		t.Error("refill must not exceed capacity")
	}
}

func TestTokenBucketRetryAfter(t *testing.T) {
	tb := NewTokenBucket(1, 2)

	base := time.Now()
	tb.now = func() time.Time { return base }
	tb.lastRefill = base

	tb.Take()

	// One token at 2/sec arrives in 500ms.
	if got := tb.RetryAfter(); got != 500*time.Millisecond {
		t.Errorf("expected 500ms retry, got %v", got)
	}

	tb.now = func() time.Time { return base.Add(time.Second) }
	if got := tb.RetryAfter(); got != 0 {
		t.Errorf("expected 0 retry with tokens available, got %v", got)
	}
}

func TestConcurrentLimiter(t *testing.T) {
	cl := NewConcurrentLimiter(2)

	if !cl.Acquire() || !cl.Acquire() {
		t.Fatal("acquires within limit should succeed")
	}
	if cl.Acquire() {
		t.Error("acquire over limit should fail")
	}
	if cl.Current() != 2 {
		t.Errorf("expected 2 in flight, got %d", cl.Current())
	}

	cl.Release()
	if !cl.Acquire() {
		t.Error("acquire after release should succeed")
	}
}

func TestLimiterRateRejection(t *testing.T) {
	l := NewLimiter(config.TierConfig{RequestsPerSecond: 1, Burst: 1})

	d, release := l.Check()
	if !d.Allowed {
		t.Fatal("first request should be allowed")
	}
	release()

	d, release = l.Check()
	if d.Allowed {
		t.Fatal("second request should be rejected")
	}
	if release != nil {
		t.Error("rejection must not return a release func")
	}
	if d.Reason != ReasonRate {
		t.Errorf("expected reason %q, got %q", ReasonRate, d.Reason)
	}
	if d.RetryAfter <= 0 {
		t.Errorf("expected positive retry-after, got %v", d.RetryAfter)
	}
}

func TestLimiterConcurrentRejection(t *testing.T) {
	l := NewLimiter(config.TierConfig{MaxConcurrent: 1})

	d, release := l.Check()
	if !d.Allowed {
		t.Fatal("first request should be allowed")
	}

	d2, _ := l.Check()
	if d2.Allowed {
		t.Fatal("second in-flight request should be rejected")
	}
	if d2.Reason != ReasonConcurrent {
		t.Errorf("expected reason %q, got %q", ReasonConcurrent, d2.Reason)
	}

	release()
	d3, release3 := l.Check()
	if !d3.Allowed {
		t.Error("request after release should be allowed")
	}
	if release3 != nil {
		release3()
	}
}

func TestLimiterUnlimited(t *testing.T) {
	l := NewLimiter(config.TierConfig{})

	for i := 0; i < 100; i++ {
		d, release := l.Check()
		if !d.Allowed {
			t.Fatalf("request %d rejected with no limits configured", i)
		}
		release()
	}
}
