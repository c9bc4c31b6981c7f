// Package logging builds the process logger: the slog API used across the
// record store, backed by a zap core.
package logging

import (
	"log/slog"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

const (
	// FormatJSON emits production JSON lines.
	FormatJSON = "json"
	// FormatConsole emits human readable lines.
	FormatConsole = "console"
)

// New returns a slog logger backed by zap, writing to stderr so that
// command output on stdout stays machine readable. The returned func
// flushes buffered entries and should be deferred by the caller.
func New(level, format string) (*slog.Logger, func() error, error) {
	zapLogger, err := newConfig(level, format).Build()
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(zapslog.NewHandler(zapLogger.Core(), zapslog.WithCaller(true)))
	return logger, zapLogger.Sync, nil
}

func newConfig(level, format string) zap.Config {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	if strings.EqualFold(strings.TrimSpace(format), FormatConsole) {
		config = zap.NewDevelopmentConfig()
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.MessageKey = "message"
	config.EncoderConfig.LevelKey = "level"
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	return config
}

// Fallback is used when New fails; it never returns an error.
func Fallback() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
