// main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"babylon/recordstore/appcontext"
	"babylon/recordstore/config"
	"babylon/recordstore/logging"
	"babylon/recordstore/records"
	"babylon/recordstore/repository"
	"babylon/recordstore/storage"
)

var Version = "dev"

// app holds everything a subcommand needs. It is built once in the root
// command's PersistentPreRunE.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	adapter *storage.Adapter
	service *records.Service

	cancel  context.CancelFunc
	sync    func() error
	metrics *http.Server
}

func main() {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:               "recordstore",
		Short:             "Persist, merge and report on customer and financial records",
		Version:           Version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	rootCmd.AddCommand(writeCustomerCmd(a))
	rootCmd.AddCommand(writeFinancialCmd(a))
	rootCmd.AddCommand(recordUploadCmd(a))
	rootCmd.AddCommand(dumpCmd(a))
	rootCmd.AddCommand(clearCmd(a))
	rootCmd.AddCommand(setCategoryCmd(a))
	rootCmd.AddCommand(statsCmd(a))
	rootCmd.AddCommand(findCmd(a))
	rootCmd.AddCommand(syncFallbackCmd(a))
	rootCmd.AddCommand(ingestCmd(a))
	rootCmd.AddCommand(generateCmd(a))

	err := rootCmd.Execute()
	if closeErr := a.teardown(); err == nil {
		err = closeErr
	}
	if err != nil {
		if a.logger != nil {
			a.logger.Error("Application terminated with an error", "error", fmt.Sprintf("%+v", err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	envFile := config.LoadDotEnv()

	// Config choices are logged at debug, below the bootstrap logger's level.
	bootstrap := logging.Fallback()
	a.cfg = config.LoadConfig(appcontext.WithLogger(context.Background(), bootstrap), bootstrap)

	a.logger, a.sync = newLogger(a.cfg)
	if envFile != "" {
		a.logger.Debug("Loaded environment file", "file", envFile)
	}

	base := appcontext.WithLogger(context.Background(), a.logger)
	ctx, cancel := context.WithTimeout(base, a.cfg.Timeout)
	a.cancel = cancel
	cmd.SetContext(ctx)

	if a.cfg.MetricsAddr != "" {
		a.serveMetrics(ctx)
	}

	remote, err := storage.OpenRemote(ctx, a.cfg.StoreURI, storage.RemoteOptions{
		Database:       a.cfg.MongoDatabase,
		BlobCollection: a.cfg.BlobCollection,
	})
	if err != nil {
		return fmt.Errorf("failed to open remote store: %w", err)
	}

	a.adapter = storage.NewAdapter(remote, storage.Options{
		MaxAttempts: a.cfg.StoreMaxAttempts,
		BaseDelay:   a.cfg.StoreBaseDelay,
		FallbackDir: a.cfg.FallbackDir,
	})
	a.service = records.New(repository.New(a.adapter))
	return nil
}

// newLogger builds the process logger from CFG, falling back to the text
// logger when zap cannot be built.
func newLogger(cfg *config.Config) (*slog.Logger, func() error) {
	logger, sync, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logger = logging.Fallback()
		logger.Warn("Falling back to the text logger", "error", err)
		return logger, func() error { return nil }
	}
	return logger, sync
}

func (a *app) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	a.metrics = &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WarnContext(ctx, "Metrics server stopped", "addr", a.cfg.MetricsAddr, "error", err)
		}
	}()
	a.logger.InfoContext(ctx, "Serving metrics", "addr", a.cfg.MetricsAddr)
}

// teardown runs after the command whether or not it failed; cobra skips
// PersistentPostRun on error.
func (a *app) teardown() error {
	var errs []error
	if a.adapter != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.adapter.Close(closeCtx); err != nil {
			a.logger.ErrorContext(closeCtx, "Error closing the remote store", "error", err)
			errs = append(errs, err)
		}
		cancel()
	}
	if a.metrics != nil {
		_ = a.metrics.Close()
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.sync != nil {
		// Sync on a terminal stdout can fail with EINVAL.
		_ = a.sync()
	}
	return errors.Join(errs...)
}
