package main

import (
	"context"
	"log/slog"
	"testing"

	"babylon/recordstore/config"
)

func TestNewLogger_UsesConfiguredLevel(t *testing.T) {
	tests := []struct {
		level     string
		format    string
		wantDebug bool
	}{
		{level: "debug", format: "json", wantDebug: true},
		{level: "warn", format: "console", wantDebug: false},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, sync := newLogger(&config.Config{LogLevel: tt.level, LogFormat: tt.format})
			if sync == nil {
				t.Fatal("expected a sync func")
			}
			if got := logger.Enabled(context.Background(), slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
		})
	}
}
