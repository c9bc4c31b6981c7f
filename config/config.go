package config

import (
	"time"
)

// Config holds the application configuration.
type Config struct {
	// StoreURI selects the remote blob store (mongodb://, memory://, or
	// empty for local-only mode).
	StoreURI       string
	MongoDatabase  string
	BlobCollection string

	FallbackDir      string
	StoreMaxAttempts int
	StoreBaseDelay   time.Duration

	UnprocessedDir     string
	ProcessedDir       string
	MoveProcessedFiles bool

	SyntheticDataDir  string
	SyntheticDataRows int

	LogLevel    string
	LogFormat   string
	MetricsAddr string
	Timeout     time.Duration
}
