package sync

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/stacklok/tvmaze-sync/internal/otel"
	"github.com/stacklok/tvmaze-sync/internal/sources/tvmaze"
	"github.com/stacklok/tvmaze-sync/internal/status"
)

// incrementalScan re-fetches every show the updates endpoint reports as
// newer than the cached copy, then probes for ids above the highest known one
func (c *cycle) incrementalScan(ctx context.Context) error {
	m := c.manager

	updates, err := withRateLimit(ctx, m, func() (map[int64]int64, error) {
		return m.upstream.FetchUpdates(ctx, m.updateWindow)
	})
	if err != nil {
		return newError(ReasonFetchFailed, "failed to fetch updates", err)
	}

	ids := slices.Sorted(maps.Keys(updates))
	c.logger.Info("Starting incremental scan", "window", m.updateWindow, "updated", len(ids))

	var highest int64
	refreshed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return newError(ReasonCancelled, "incremental scan interrupted", err)
		}

		rec, ok, err := m.store.Get(ctx, id)
		if err != nil {
			if err := c.handle(err, "Failed to read cached show", "tvmaze_id", id); err != nil {
				return err
			}
			continue
		}
		if ok && rec.UpdatedAt >= updates[id] {
			continue
		}

		show, err := c.refresh(ctx, id)
		if errors.Is(err, tvmaze.ErrNotFound) {
			c.logger.Warn("Updated show no longer exists on TVMaze", "tvmaze_id", id)
			continue
		}
		if err != nil {
			if err := c.handle(err, "Failed to refresh show", "tvmaze_id", id); err != nil {
				return err
			}
			continue
		}

		refreshed++
		highest = max(highest, id)
		if err := c.process(ctx, show); err != nil {
			return err
		}
	}

	now := m.clock.Now().UTC()
	_, err = m.progress.Update(ctx, func(p *status.SyncProgress) bool {
		p.LastUpdatesCheck = &now
		p.HighestTVMazeID = max(p.HighestTVMazeID, highest)
		return true
	})
	if err != nil {
		return newError(ReasonStateSaveFailed, "failed to save progress", err)
	}
	c.logger.Info("Refreshed updated shows", "refreshed", refreshed)

	if err := c.probeNewShows(ctx); err != nil {
		return err
	}

	now = m.clock.Now().UTC()
	_, err = m.progress.Update(ctx, func(p *status.SyncProgress) bool {
		p.LastIncrementalSync = &now
		return true
	})
	if err != nil {
		return newError(ReasonStateSaveFailed, "failed to save progress", err)
	}
	return nil
}

// probeNewShows fetches ids above the highest known one until probeMisses
// consecutive ids fail. The updates endpoint only reports shows TVMaze has
// revised, which brand new shows may not be yet.
func (c *cycle) probeNewShows(ctx context.Context) error {
	m := c.manager
	if m.probeMisses <= 0 {
		return nil
	}

	start := m.progress.Get().HighestTVMazeID
	ctx, span := otel.StartSpan(ctx, m.tracer, "sync.probe")
	defer span.End()

	highest := start
	found := 0
	misses := 0
	for id := start + 1; misses < m.probeMisses; id++ {
		if err := ctx.Err(); err != nil {
			return newError(ReasonCancelled, "new show probe interrupted", err)
		}

		show, err := c.refresh(ctx, id)
		switch {
		case err == nil:
			misses = 0
			found++
			highest = id
			if err := c.process(ctx, show); err != nil {
				return err
			}
		case errors.Is(err, tvmaze.ErrNotFound):
			misses++
		case fatal(err):
			return newError(ReasonStorageFailed, fmt.Sprintf("failed to probe show %d", id), err)
		default:
			c.logger.Warn("Failed to probe show", "tvmaze_id", id, "error", err)
			misses++
		}
	}
	span.SetAttributes(otel.AttrResultCount.Int(found))

	if highest > start {
		_, err := m.progress.Update(ctx, func(p *status.SyncProgress) bool {
			p.HighestTVMazeID = max(p.HighestTVMazeID, highest)
			return true
		})
		if err != nil {
			return newError(ReasonStateSaveFailed, "failed to save progress", err)
		}
	}

	c.logger.Info("New show probe complete", "found", found, "highest_tvmaze_id", highest)
	return nil
}
