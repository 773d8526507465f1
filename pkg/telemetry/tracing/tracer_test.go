package tracing

import (
	"context"
	"net/http"
	"testing"

	"github.com/richrines1/qiskit-serverless/pkg/config"
)

func TestDisabledTracerIsNoop(t *testing.T) {
	tracer, err := New(&config.TracingConfig{Enabled: false})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if tracer.Enabled() {
		t.Error("expected tracer disabled")
	}

	ctx, span := tracer.Start(context.Background(), "test")
	defer span.End()

	if span.SpanContext().IsValid() {
		t.Error("expected invalid span context from noop tracer")
	}
	if ctx == nil {
		t.Error("expected non-nil context")
	}

	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestNilConfig(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestInjectExtractRoundTrip(t *testing.T) {
	// With no remote context the extraction yields an invalid span context
	// and must not panic.
	header := make(http.Header)
	Inject(context.Background(), header)

	ctx := Extract(context.Background(), header)
	if ctx == nil {
		t.Fatal("expected non-nil context")
	}
}
