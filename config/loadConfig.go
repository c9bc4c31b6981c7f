package config

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default values.
const (
	defaultTimeoutSeconds     = 30
	defaultMongoHost          = "localhost"
	defaultMongoPort          = "27017"
	defaultMongoDatabase      = "recordstore"
	defaultBlobCollection     = "blobs"
	defaultFallbackDir        = "./data/fallback"
	defaultStoreMaxAttempts   = 3
	defaultStoreBaseDelayMS   = 500
	defaultInboxDir           = "./data"
	defaultProcessedDir       = "processed"
	defaultUnprocessedDir     = "unprocessed"
	defaultMoveProcessedFiles = false
	defaultSyntheticDataDir   = "tmp/synthetic"
	defaultSyntheticDataRows  = 100
	defaultLogLevel           = "info"
	defaultLogFormat          = "json"

	envStoreURI           = "STORE_URI"
	envMongoURI           = "MONGO_URI"
	envMongoHost          = "MONGO_HOST"
	envMongoUser          = "MONGO_USER"
	envMongoPassword      = "MONGO_PASSWORD"
	envMongoDatabase      = "MONGO_DATABASE"
	envBlobCollection     = "BLOB_COLLECTION"
	envFallbackDir        = "FALLBACK_DIR"
	envStoreMaxAttempts   = "STORE_MAX_ATTEMPTS"
	envStoreBaseDelayMS   = "STORE_BASE_DELAY_MS"
	envTimeoutSeconds     = "TIMEOUT_SECONDS"
	envInboxDirectory     = "INBOX_DIR"
	envProcessedDirectory = "PROCESSED_DIR"
	envUnprocessedDir     = "UNPROCESSED_DIR"
	envMoveProcessedFiles = "MOVE_PROCESSED_FILES"
	envSyntheticDataDir   = "SYNTHETIC_DATA_DIR"
	envSyntheticDataRows  = "SYNTHETIC_DATA_ROWS"
	envLogLevel           = "LOG_LEVEL"
	envLogFormat          = "LOG_FORMAT"
	envMetricsAddr        = "METRICS_ADDR"
)

// envFiles are tried in order; the first one found is loaded. Variables
// already present in the environment are never overridden.
var envFiles = []string{".env", "../.env"}

// LoadDotEnv loads the first .env file found. Missing files are not an error.
func LoadDotEnv() string {
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			return envFile
		}
	}
	return ""
}

// LoadConfig loads the application configuration from environment variables or uses default values.
func LoadConfig(ctx context.Context, logger *slog.Logger) *Config {
	storeURI := formatStoreURI(ctx, logger)

	inboxDirectory := getEnv(ctx, logger, envInboxDirectory, defaultInboxDir)
	unprocessedDir := fmt.Sprintf("%s/%s", inboxDirectory, getEnv(ctx, logger, envUnprocessedDir, defaultUnprocessedDir))
	processedDir := fmt.Sprintf("%s/%s", inboxDirectory, getEnv(ctx, logger, envProcessedDirectory, defaultProcessedDir))
	logger.DebugContext(ctx, "Constructed directory paths", "unprocessed", unprocessedDir, "processed", processedDir)

	return &Config{
		StoreURI:           storeURI,
		MongoDatabase:      getEnv(ctx, logger, envMongoDatabase, defaultMongoDatabase),
		BlobCollection:     getEnv(ctx, logger, envBlobCollection, defaultBlobCollection),
		FallbackDir:        getEnv(ctx, logger, envFallbackDir, defaultFallbackDir),
		StoreMaxAttempts:   getEnvInt(ctx, logger, envStoreMaxAttempts, defaultStoreMaxAttempts),
		StoreBaseDelay:     time.Duration(getEnvInt(ctx, logger, envStoreBaseDelayMS, defaultStoreBaseDelayMS)) * time.Millisecond,
		UnprocessedDir:     unprocessedDir,
		ProcessedDir:       processedDir,
		MoveProcessedFiles: getEnvBool(ctx, logger, envMoveProcessedFiles, defaultMoveProcessedFiles),
		SyntheticDataDir:   getEnv(ctx, logger, envSyntheticDataDir, defaultSyntheticDataDir),
		SyntheticDataRows:  getEnvInt(ctx, logger, envSyntheticDataRows, defaultSyntheticDataRows),
		LogLevel:           getEnv(ctx, logger, envLogLevel, defaultLogLevel),
		LogFormat:          getEnv(ctx, logger, envLogFormat, defaultLogFormat),
		MetricsAddr:        getEnv(ctx, logger, envMetricsAddr, ""),
		Timeout:            time.Duration(getEnvInt(ctx, logger, envTimeoutSeconds, defaultTimeoutSeconds)) * time.Second,
	}
}

// Fetch KEY from the environment or fall back to DEFAULTVALUE.
func getEnv(ctx context.Context, logger *slog.Logger, key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		logger.DebugContext(ctx, "Using default value", "key", key, "value", defaultValue)
		return defaultValue
	}
	logger.DebugContext(ctx, "Using value from environment variable", "key", key)
	return value
}

func getEnvInt(ctx context.Context, logger *slog.Logger, key string, defaultValue int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		logger.WarnContext(
			ctx,
			"Invalid integer in environment, using default",
			"key", key,
			"value", raw,
			"default", defaultValue,
			"error", err,
		)
		return defaultValue
	}
	return parsed
}

func getEnvBool(ctx context.Context, logger *slog.Logger, key string, defaultValue bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		logger.DebugContext(ctx, "Using default value", "key", key, "value", defaultValue)
		return defaultValue
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		logger.WarnContext(
			ctx,
			"Invalid boolean in environment, using default",
			"key", key,
			"value", raw,
			"default", defaultValue,
			"error", err,
		)
		return defaultValue
	}
	return parsed
}

// formatStoreURI picks the remote store location. STORE_URI wins, then
// MONGO_URI, then a Mongo URI assembled from host and credentials. With
// none of them set the store runs in local-only mode.
func formatStoreURI(ctx context.Context, logger *slog.Logger) string {
	if storeURI := strings.TrimSpace(os.Getenv(envStoreURI)); storeURI != "" {
		logger.DebugContext(ctx, "Using store URI from environment variable", "uri", redactURI(storeURI))
		return storeURI
	}

	if mongoURI := strings.TrimSpace(os.Getenv(envMongoURI)); mongoURI != "" {
		logger.DebugContext(ctx, "Using MongoDB URI from environment variable", "uri", redactURI(mongoURI))
		return mongoURI
	}

	mongoHost := strings.TrimSpace(os.Getenv(envMongoHost))
	mongoUser := os.Getenv(envMongoUser)
	mongoPassword := os.Getenv(envMongoPassword)
	if mongoHost == "" && mongoUser == "" {
		logger.DebugContext(ctx, "No remote store configured, running in local-only mode")
		return ""
	}
	if mongoHost == "" {
		mongoHost = defaultMongoHost
	}

	hostPort := net.JoinHostPort(mongoHost, defaultMongoPort)
	if mongoUser != "" && mongoPassword != "" {
		mongoURI := fmt.Sprintf("mongodb://%s:%s@%s/?authSource=admin", mongoUser, mongoPassword, hostPort)
		logger.DebugContext(ctx, "Created MongoDB URI from user, password, and host", "uri", redactURI(mongoURI))
		return mongoURI
	}

	mongoURI := fmt.Sprintf("mongodb://%s/", hostPort)
	logger.DebugContext(ctx, "Created MongoDB URI from host", "uri", mongoURI)
	return mongoURI
}

// redactURI hides the password portion of a connection string.
func redactURI(uri string) string {
	schemeEnd := strings.Index(uri, "://")
	at := strings.LastIndex(uri, "@")
	if schemeEnd < 0 || at < schemeEnd {
		return uri
	}
	userInfo := uri[schemeEnd+3 : at]
	if colon := strings.Index(userInfo, ":"); colon >= 0 {
		return uri[:schemeEnd+3] + userInfo[:colon] + ":***" + uri[at:]
	}
	return uri
}
