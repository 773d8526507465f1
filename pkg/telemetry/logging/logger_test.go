package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/richrines1/qiskit-serverless/pkg/config"
)

func newTestLogger(t *testing.T, level, format string) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, err := New(&config.LoggingConfig{Level: level, Format: format}, &buf)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return logger, &buf
}

func TestLoggerJSON(t *testing.T) {
	logger, buf := newTestLogger(t, "info", "json")

	logger.Info("request forwarded", "upstream", "gateway-a", "status", 200)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "request forwarded" {
		t.Errorf("unexpected message %v", entry["msg"])
	}
	if entry["upstream"] != "gateway-a" {
		t.Errorf("unexpected upstream %v", entry["upstream"])
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	logger, buf := newTestLogger(t, "warn", "json")

	logger.Info("should be filtered")
	if buf.Len() != 0 {
		t.Errorf("expected info suppressed at warn level, got %q", buf.String())
	}

	logger.Warn("should appear")
	if buf.Len() == 0 {
		t.Error("expected warn message at warn level")
	}
}

func TestLoggerTokenRedaction(t *testing.T) {
	logger, buf := newTestLogger(t, "info", "json")

	logger.Info("auth rejected", "token", "super-secret-token-value")

	out := buf.String()
	if strings.Contains(out, "super-secret-token-value") {
		t.Errorf("token leaked into log output: %q", out)
	}
	if !strings.Contains(out, "supe****") {
		t.Errorf("expected redacted token prefix in output: %q", out)
	}
}

func TestLoggerContextFields(t *testing.T) {
	logger, buf := newTestLogger(t, "info", "json")

	ctx := WithRequestID(context.Background(), "req-123")
	ctx = WithUser(ctx, "alice")
	ctx = WithUpstream(ctx, "gateway-b")

	logger.InfoContext(ctx, "forwarding")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["request_id"] != "req-123" {
		t.Errorf("expected request_id in output, got %v", entry["request_id"])
	}
	if entry["user"] != "alice" {
		t.Errorf("expected user in output, got %v", entry["user"])
	}
	if entry["upstream"] != "gateway-b" {
		t.Errorf("expected upstream in output, got %v", entry["upstream"])
	}
}

func TestLoggerComponent(t *testing.T) {
	logger, buf := newTestLogger(t, "info", "json")

	logger.Component("router").Info("upstream selected")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["component"] != "router" {
		t.Errorf("expected component router, got %v", entry["component"])
	}
}

func TestLoggerInvalidLevel(t *testing.T) {
	_, err := New(&config.LoggingConfig{Level: "verbose", Format: "json"}, nil)
	if err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestRedact(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "****"},
		{"short", "****"},
		{"averylongtokenvalue", "aver****"},
	}
	for _, tt := range tests {
		if got := Redact(tt.in); got != tt.want {
			t.Errorf("Redact(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
