package coordinator

import (
	"context"
	"errors"
	"log/slog"

	pkgsync "github.com/stacklok/tvmaze-sync/internal/sync"
)

// runCycle runs one cycle and records its metrics. The manager logs and
// persists the outcome itself.
func (c *defaultCoordinator) runCycle(ctx context.Context, trigger pkgsync.Trigger) {
	start := c.clock.Now()
	result, err := c.manager.RunCycle(ctx, trigger)
	if errors.Is(err, pkgsync.ErrAlreadyRunning) {
		slog.Info("Skipping sync cycle, another operation holds the sync token", "trigger", trigger)
		return
	}

	mode := ""
	duration := c.clock.Since(start)
	if result != nil {
		mode = string(result.Mode)
		duration = result.Duration
	}
	c.metrics.RecordCycle(ctx, mode, duration, err == nil)

	if err != nil {
		slog.Debug("Sync cycle returned an error", "trigger", trigger, "error", err)
	}
}
