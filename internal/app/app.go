// Package app wires the sync engine, the show cache and the HTTP control
// surface into one process and manages its lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofrs/flock"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/stacklok/tvmaze-sync/internal/config"
	pkgsync "github.com/stacklok/tvmaze-sync/internal/sync"
)

const serverDrainTimeout = 10 * time.Second

// SyncApp encapsulates all components needed to run the sync service.
// It provides lifecycle management and graceful shutdown capabilities.
type SyncApp struct {
	config     *config.Config
	components *AppComponents
	httpServer *http.Server

	lock         *flock.Flock
	registration metric.Registration
}

// Start runs the startup checks and then the coordinator and, when enabled,
// the HTTP server. It blocks until both have stopped: after Stop, or after
// the coordinator fails.
func (app *SyncApp) Start(ctx context.Context) error {
	manager := app.components.SyncManager

	if result, err := manager.CheckFilterChange(ctx); err != nil {
		slog.Error("Filter change check failed", "error", err)
	} else if result != nil {
		slog.Info("Filtered shows re-evaluated after filter change",
			"scanned", result.Scanned,
			"admitted", result.Admitted,
			"updated", result.Updated)
	}

	if app.config.Sync.ReconcileOnStart {
		if _, err := manager.ReconcileSelections(ctx); err != nil && !errors.Is(err, pkgsync.ErrAlreadyRunning) {
			slog.Error("Selections reconcile failed", "error", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := app.components.SyncCoordinator.Start(gctx); err != nil {
			return fmt.Errorf("sync coordinator failed: %w", err)
		}
		return nil
	})

	if app.httpServer != nil {
		served := make(chan struct{})
		g.Go(func() error {
			defer close(served)
			slog.Info("Server listening", "address", app.httpServer.Addr)
			if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server failed: %w", err)
			}
			return nil
		})
		// When the coordinator fails the server is shut down here; on a
		// cancelled ctx that is left to Stop.
		g.Go(func() error {
			select {
			case <-served:
			case <-gctx.Done():
				if ctx.Err() != nil {
					return nil
				}
				shutdownCtx, cancel := context.WithTimeout(context.Background(), serverDrainTimeout)
				defer cancel()
				_ = app.httpServer.Shutdown(shutdownCtx)
			}
			return nil
		})
	}

	return g.Wait()
}

// Stop gracefully stops the application. The HTTP server gets timeout to
// drain; the coordinator gets the configured stop timeout to finish a
// running cycle.
func (app *SyncApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down")

	var errs []error
	if app.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server forced to shutdown: %w", err))
		}
	}

	if err := app.components.SyncCoordinator.Stop(app.config.Sync.StopTimeout.Std()); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop sync coordinator: %w", err))
	}

	if err := app.release(); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	slog.Info("Shutdown complete")
	return nil
}

// release unregisters cache metrics, closes the show cache and drops the
// data directory lock. Each step runs at most once.
func (app *SyncApp) release() error {
	var errs []error

	if app.registration != nil {
		if err := app.registration.Unregister(); err != nil {
			errs = append(errs, fmt.Errorf("failed to unregister cache metrics: %w", err))
		}
		app.registration = nil
	}

	if app.components != nil && app.components.Database != nil {
		if err := app.components.Database.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close show cache: %w", err))
		}
		app.components.Database = nil
	}

	if app.lock != nil {
		if err := app.lock.Unlock(); err != nil {
			errs = append(errs, fmt.Errorf("failed to unlock data directory: %w", err))
		}
		app.lock = nil
	}

	return errors.Join(errs...)
}

// GetConfig returns the application configuration
func (app *SyncApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server, nil when the control surface is disabled
func (app *SyncApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// Components returns the wired components
func (app *SyncApp) Components() *AppComponents {
	return app.components
}
