package config

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func clearStoreEnv(t *testing.T) {
	for _, key := range []string{envStoreURI, envMongoURI, envMongoHost, envMongoUser, envMongoPassword} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearStoreEnv(t)
	t.Setenv(envStoreMaxAttempts, "")
	t.Setenv(envStoreBaseDelayMS, "")
	t.Setenv(envInboxDirectory, "")
	t.Setenv(envUnprocessedDir, "")
	t.Setenv(envProcessedDirectory, "")
	t.Setenv(envMoveProcessedFiles, "")

	cfg := LoadConfig(context.Background(), discardLogger())

	if cfg.StoreURI != "" {
		t.Errorf("expected local-only mode, got store URI %q", cfg.StoreURI)
	}
	if cfg.StoreMaxAttempts != defaultStoreMaxAttempts {
		t.Errorf("StoreMaxAttempts got %d, want %d", cfg.StoreMaxAttempts, defaultStoreMaxAttempts)
	}
	if cfg.StoreBaseDelay != 500*time.Millisecond {
		t.Errorf("StoreBaseDelay got %s, want 500ms", cfg.StoreBaseDelay)
	}
	if cfg.UnprocessedDir != "./data/unprocessed" {
		t.Errorf("UnprocessedDir got %q", cfg.UnprocessedDir)
	}
	if cfg.ProcessedDir != "./data/processed" {
		t.Errorf("ProcessedDir got %q", cfg.ProcessedDir)
	}
	if cfg.MoveProcessedFiles {
		t.Errorf("MoveProcessedFiles should default to false")
	}
	if cfg.Timeout != defaultTimeoutSeconds*time.Second {
		t.Errorf("Timeout got %s", cfg.Timeout)
	}
}

func TestLoadConfig_InvalidValuesFallBack(t *testing.T) {
	clearStoreEnv(t)
	t.Setenv(envStoreMaxAttempts, "zero")
	t.Setenv(envStoreBaseDelayMS, "-5")
	t.Setenv(envMoveProcessedFiles, "maybe")

	cfg := LoadConfig(context.Background(), discardLogger())

	if cfg.StoreMaxAttempts != defaultStoreMaxAttempts {
		t.Errorf("StoreMaxAttempts got %d, want default", cfg.StoreMaxAttempts)
	}
	if cfg.StoreBaseDelay != defaultStoreBaseDelayMS*time.Millisecond {
		t.Errorf("StoreBaseDelay got %s, want default", cfg.StoreBaseDelay)
	}
	if cfg.MoveProcessedFiles != defaultMoveProcessedFiles {
		t.Errorf("MoveProcessedFiles got %v, want default", cfg.MoveProcessedFiles)
	}
}

func TestFormatStoreURI(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"store uri wins", map[string]string{envStoreURI: "memory://", envMongoURI: "mongodb://x/"}, "memory://"},
		{"mongo uri", map[string]string{envMongoURI: "mongodb://db:27017/"}, "mongodb://db:27017/"},
		{"host and credentials", map[string]string{envMongoHost: "db", envMongoUser: "u", envMongoPassword: "p"}, "mongodb://u:p@db:27017/?authSource=admin"},
		{"host only", map[string]string{envMongoHost: "db"}, "mongodb://db:27017/"},
		{"nothing", map[string]string{}, ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			clearStoreEnv(t)
			for key, value := range test.env {
				t.Setenv(key, value)
			}
			if got := formatStoreURI(context.Background(), discardLogger()); got != test.want {
				t.Errorf("formatStoreURI() got %q, want %q", got, test.want)
			}
		})
	}
}

func TestRedactURI(t *testing.T) {
	got := redactURI("mongodb://user:secret@db:27017/")
	if got != "mongodb://user:***@db:27017/" {
		t.Errorf("redactURI got %q", got)
	}
	if got := redactURI("memory://"); got != "memory://" {
		t.Errorf("redactURI changed a URI without credentials: %q", got)
	}
}
