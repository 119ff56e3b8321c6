package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/stacklok/tvmaze-sync/internal/otel"
	"github.com/stacklok/tvmaze-sync/internal/sources/tvmaze"
)

const removedFromTVMaze = "removed from TVMaze"

// processRetries abandons shows that waited too long for a TVDB id and then
// re-fetches and re-evaluates every pending_tvdb show whose retry time has come
func (c *cycle) processRetries(ctx context.Context) error {
	m := c.manager
	ctx, span := otel.StartSpan(ctx, m.tracer, "sync.retries")
	defer span.End()

	now := m.clock.Now().UTC()
	abandonAfter := m.abandonAfter.Std()

	abandoned, err := m.store.ShowsToAbandon(ctx, now, abandonAfter)
	if err != nil {
		return newError(ReasonStorageFailed, "failed to list shows to abandon", err)
	}
	message := fmt.Sprintf("cross-ref abandoned: no TVDB id after %s", m.abandonAfter)
	for _, rec := range abandoned {
		c.logger.Warn("Abandoning show without TVDB id",
			"tvmaze_id", rec.ID, "title", rec.Title, "pending_since", rec.PendingSince)
		err := m.store.MarkFailed(ctx, rec.ID, message)
		if err == nil {
			c.result.Abandoned++
			m.recordOutcome(ctx, c.result.Outcomes, OutcomeFailed)
		}
		if err := c.handle(err, "Failed to abandon show", "tvmaze_id", rec.ID); err != nil {
			return err
		}
	}

	due, err := m.store.ShowsForRetry(ctx, now, abandonAfter)
	if err != nil {
		return newError(ReasonStorageFailed, "failed to list shows to retry", err)
	}
	if len(due) == 0 {
		return nil
	}
	c.logger.Info("Retrying shows pending TVDB id", "count", len(due))

	for _, rec := range due {
		if err := ctx.Err(); err != nil {
			return newError(ReasonCancelled, "retry processing interrupted", err)
		}

		if _, err := m.store.IncrementRetry(ctx, rec.ID); err != nil {
			if err := c.handle(err, "Failed to count retry", "tvmaze_id", rec.ID); err != nil {
				return err
			}
			continue
		}
		c.result.Retried++

		show, err := c.refresh(ctx, rec.ID)
		if errors.Is(err, tvmaze.ErrNotFound) {
			c.logger.Warn("Show no longer exists on TVMaze", "tvmaze_id", rec.ID, "title", rec.Title)
			err = m.store.MarkFailed(ctx, rec.ID, removedFromTVMaze)
			if err == nil {
				m.recordOutcome(ctx, c.result.Outcomes, OutcomeFailed)
			}
			if err := c.handle(err, "Failed to mark removed show", "tvmaze_id", rec.ID); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			if err := c.handle(err, "Failed to refresh show", "tvmaze_id", rec.ID); err != nil {
				return err
			}
			continue
		}

		if show.HasTVDB() {
			c.logger.Info("Show now has a TVDB id", "tvmaze_id", show.ID, "title", show.Title, "tvdb_id", *show.TVDBID)
		}
		if err := c.act(ctx, show, rec.State); err != nil {
			return err
		}
	}
	return nil
}
