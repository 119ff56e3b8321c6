package sync

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/tvmaze-sync/internal/catalog"
	"github.com/stacklok/tvmaze-sync/internal/otel"
	"github.com/stacklok/tvmaze-sync/internal/status"
)

// initialScan pages through the TVMaze index starting at page. After every
// page the cursor is persisted as the next page to fetch, so a restart
// resumes without re-fetching a committed page. An empty page ends the scan.
func (c *cycle) initialScan(ctx context.Context, page int) error {
	m := c.manager
	c.logger.Info("Starting initial full scan", "page", page)

	for {
		if err := ctx.Err(); err != nil {
			return newError(ReasonCancelled, fmt.Sprintf("initial scan interrupted at page %d", page), err)
		}

		done, err := c.scanPage(ctx, page)
		if err != nil {
			return err
		}
		if done {
			break
		}
		page++
	}

	now := m.clock.Now().UTC()
	_, err := m.progress.Update(ctx, func(p *status.SyncProgress) bool {
		p.LastFullSync = &now
		return true
	})
	if err != nil {
		return newError(ReasonStateSaveFailed, "failed to save progress", err)
	}
	m.metrics.RecordInitialSyncComplete(ctx, true)

	c.logger.Info("Initial full scan complete", "pages", page, "processed", c.result.Processed())
	return nil
}

// scanPage fetches, stores and processes one index page. It returns true
// once the index is exhausted.
func (c *cycle) scanPage(ctx context.Context, page int) (bool, error) {
	m := c.manager
	ctx, span := otel.StartSpan(ctx, m.tracer, "sync.page",
		trace.WithAttributes(otel.AttrPage.Int(page)))
	defer span.End()

	raws, err := withRateLimit(ctx, m, func() ([]catalog.RawShow, error) {
		return m.upstream.FetchPage(ctx, page)
	})
	if err != nil {
		otel.RecordError(span, err)
		return false, newError(ReasonFetchFailed, fmt.Sprintf("failed to fetch page %d", page), err)
	}
	if len(raws) == 0 {
		c.logger.Info("Reached end of TVMaze index", "page", page)
		return true, nil
	}

	shows := make([]*catalog.Show, 0, len(raws))
	for i, raw := range raws {
		show, err := catalog.ParseShow(raw)
		if err != nil {
			c.logger.Warn("Skipping malformed show", "page", page, "index", i, "error", err)
			continue
		}
		shows = append(shows, show)
	}
	span.SetAttributes(otel.AttrResultCount.Int(len(shows)))

	if _, err := m.store.BulkUpsert(ctx, shows); err != nil {
		otel.RecordError(span, err)
		return false, newError(ReasonStorageFailed, fmt.Sprintf("failed to store page %d", page), err)
	}

	var highest int64
	for _, show := range shows {
		if err := c.process(ctx, show); err != nil {
			return false, err
		}
		highest = max(highest, show.ID)
	}

	next := page + 1
	_, err = m.progress.Update(ctx, func(p *status.SyncProgress) bool {
		p.PageCursor = next
		p.HighestTVMazeID = max(p.HighestTVMazeID, highest)
		return true
	})
	if err != nil {
		return false, newError(ReasonStateSaveFailed, fmt.Sprintf("failed to checkpoint page %d", page), err)
	}

	c.logger.Info("Processed page", "page", page, "shows", len(shows), "highest_tvmaze_id", highest)
	return false, nil
}
