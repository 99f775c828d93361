package log

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{
		Level:     slog.LevelDebug,
		Component: component,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestLoggerPrefixesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, "ledger")

	logger.Info("record stored", FieldRecordID, "rec-1")

	out := buf.String()
	if !strings.Contains(out, "component=ledger") {
		t.Errorf("output missing component: %s", out)
	}
	if !strings.Contains(out, "record_id=rec-1") {
		t.Errorf("output missing field: %s", out)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, "app").WithComponent("worker")

	if logger.Component() != "worker" {
		t.Fatalf("Component() = %q, want worker", logger.Component())
	}

	logger.Warn("slow scan")
	if out := buf.String(); !strings.Contains(out, "component=worker") {
		t.Errorf("output = %s, want worker component", out)
	}
}

func TestFromContextFallback(t *testing.T) {
	logger := FromContext(context.Background())
	if logger == nil {
		t.Fatal("FromContext returned nil")
	}
	if logger.Component() != "unknown" {
		t.Errorf("fallback component = %q, want unknown", logger.Component())
	}
}

func TestMiddlewareInjectsLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, "http")

	var got *Logger
	handler := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string {
		return "req_test"
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
		got.InfoContext(r.Context(), "handled")
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil {
		t.Fatal("no logger in request context")
	}
	out := buf.String()
	if !strings.Contains(out, "request_id=req_test") {
		t.Errorf("output missing request id: %s", out)
	}
	if !strings.Contains(out, "component=http") {
		t.Errorf("output missing component: %s", out)
	}
}

func TestLogFieldsBuilder(t *testing.T) {
	fields := NewFields().
		WithComponent(ComponentHTTP).
		WithOperation(OpCreate).
		WithError(nil).
		WithRecord("rec-1", "earning", "Online", 4500)

	if _, ok := fields[FieldError]; ok {
		t.Error("nil error should not set the error field")
	}
	if fields[FieldAmountCents] != int64(4500) {
		t.Errorf("amount = %v, want 4500", fields[FieldAmountCents])
	}

	slice := fields.ToSlice()
	if len(slice) != len(fields)*2 {
		t.Errorf("slice length = %d, want %d", len(slice), len(fields)*2)
	}
}
