package appcontext_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"babylon/recordstore/appcontext"
)

func TestLoggerFromContext_Default(t *testing.T) {
	if got := appcontext.LoggerFromContext(context.Background()); got != slog.Default() {
		t.Errorf("expected slog.Default() when no logger is set, got %v", got)
	}
}

func TestLoggerFromContext_RoundTrip(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := appcontext.WithLogger(context.Background(), logger)

	if got := appcontext.LoggerFromContext(ctx); got != logger {
		t.Errorf("LoggerFromContext returned %v, want %v", got, logger)
	}
}

func TestLoggerWithTrace_NoSpan(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := appcontext.WithLogger(context.Background(), logger)

	if got := appcontext.LoggerWithTrace(ctx); got != logger {
		t.Errorf("expected the plain logger without an active span")
	}
}
