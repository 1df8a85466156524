package observability

import (
	"context"
	"log/slog"
	"testing"
)

func TestLoggerFromContext_Fallback(t *testing.T) {
	if LoggerFromContext(context.Background()) == nil {
		t.Fatalf("expected default logger")
	}
}

func TestContextWithLogger_RoundTrip(t *testing.T) {
	lg := slog.Default().With(slog.String("k", "v"))
	ctx := ContextWithLogger(context.Background(), lg)
	if got := LoggerFromContext(ctx); got != lg {
		t.Fatalf("logger not round-tripped")
	}
}

func TestRequestID_RoundTrip(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-123")
	if got := RequestIDFromContext(ctx); got != "req-123" {
		t.Fatalf("got %q", got)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	if ctx2 := ContextWithRequestID(context.Background(), ""); RequestIDFromContext(ctx2) != "" {
		t.Fatalf("empty id must not be stored")
	}
}
