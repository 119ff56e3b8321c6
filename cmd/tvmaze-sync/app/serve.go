package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	syncapp "github.com/stacklok/tvmaze-sync/internal/app"
	"github.com/stacklok/tvmaze-sync/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync service",
	Long: `Run the sync service: background sync cycles plus the HTTP control surface.

Configuration comes from the file given with --config, environment overrides
and defaults. Sonarr url and api_key are required. See examples/ for a sample
configuration.`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second // HTTP shutdown; running cycles get sync.stop_timeout
	telemetryFlushTimeout  = 5 * time.Second
)

func init() {
	serveCmd.Flags().String("address", "", "Address to listen on (overrides server.port)")

	if err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address")); err != nil {
		slog.Error("Failed to bind address flag", "error", err)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	slog.Info("Starting tvmaze-sync",
		"config", viper.GetString("config"),
		"data_dir", cfg.Storage.Path,
		"dry_run", cfg.DryRun,
		"selections", len(cfg.Selections))
	if cfg.DryRun {
		slog.Warn("Dry run is enabled; nothing will be added to Sonarr")
	}

	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown telemetry", "error", err)
		}
	}()

	opts := []syncapp.SyncAppOptions{
		syncapp.WithConfig(cfg),
		syncapp.WithMeterProvider(tel.MeterProvider()),
		syncapp.WithTracerProvider(tel.TracerProvider()),
		syncapp.WithMetricsHandler(tel.MetricsHandler()),
	}
	if address := viper.GetString("address"); address != "" {
		opts = append(opts, syncapp.WithAddress(address))
	}

	app, err := syncapp.NewSyncApp(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	case err := <-errCh:
		if err != nil {
			slog.Error("Service stopped unexpectedly", "error", err)
			if stopErr := app.Stop(defaultGracefulTimeout); stopErr != nil {
				slog.Error("Shutdown failed", "error", stopErr)
			}
			return err
		}
	}

	if err := app.Stop(defaultGracefulTimeout); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
