package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stacklok/tvmaze-sync/internal/catalog"
	"github.com/stacklok/tvmaze-sync/internal/sources/tvmaze"
)

// cycle carries the per-run state of a single sync cycle
type cycle struct {
	manager *defaultManager
	logger  *slog.Logger
	result  *Result
}

// run executes the cycle steps in order. Any returned error is cycle-fatal.
func (c *cycle) run(ctx context.Context) error {
	m := c.manager

	refilter, err := m.checkFilterChange(ctx)
	if err != nil {
		return newError(ReasonFilterCheckFailed, "filter change check failed", err)
	}
	c.result.Refilter = refilter

	switch c.result.Mode {
	case ModeInitial:
		err = c.initialScan(ctx, m.progress.Get().PageCursor)
	case ModeIncremental:
		err = c.incrementalScan(ctx)
	default:
		err = fmt.Errorf("unknown sync mode %q", c.result.Mode)
	}
	if err != nil {
		return err
	}

	// Dry run leaves every show pending, so neither the backlog nor the
	// retry queue has anything it may act on
	if m.dryRun {
		return nil
	}

	if err := c.processBacklog(ctx); err != nil {
		return err
	}
	return c.processRetries(ctx)
}

// handle turns a show-level error into nil after logging it, unless the
// error must abort the cycle
func (c *cycle) handle(err error, msg string, args ...any) error {
	if err == nil {
		return nil
	}
	if fatal(err) {
		return newError(ReasonStorageFailed, msg, err)
	}
	c.logger.Error(msg, append(args, "error", err)...)
	return nil
}

// process looks up the cached state of an upserted show and acts on it
func (c *cycle) process(ctx context.Context, show *catalog.Show) error {
	current := catalog.StatePending
	rec, ok, err := c.manager.store.Get(ctx, show.ID)
	if err != nil {
		return c.handle(err, "Failed to read show state", "tvmaze_id", show.ID)
	}
	if ok {
		current = rec.State
	}
	return c.act(ctx, show, current)
}

// act evaluates the show and records the outcome
func (c *cycle) act(ctx context.Context, show *catalog.Show, current catalog.State) error {
	outcome, err := c.manager.act(ctx, c.logger, show, current)
	c.manager.recordOutcome(ctx, c.result.Outcomes, outcome)
	return c.handle(err, "Failed to process show", "tvmaze_id", show.ID, "title", show.Title)
}

// processBacklog acts on every show still pending, such as shows a filter
// change re-admitted or shows whose last attempt hit a transient error
func (c *cycle) processBacklog(ctx context.Context) error {
	count := 0
	err := c.manager.store.StreamByState(ctx, catalog.StatePending, func(rec *catalog.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		count++
		return c.act(ctx, &rec.Show, rec.State)
	})
	if err != nil {
		return newError(ReasonStorageFailed, "failed to process pending shows", err)
	}
	if count > 0 {
		c.logger.Info("Processed pending shows", "count", count)
	}
	return nil
}

// refresh fetches a show from TVMaze, parses it and upserts it
func (c *cycle) refresh(ctx context.Context, id int64) (*catalog.Show, error) {
	m := c.manager
	raw, err := withRateLimit(ctx, m, func() (catalog.RawShow, error) {
		return m.upstream.FetchShow(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	show, err := catalog.ParseShow(raw)
	if err != nil {
		return nil, err
	}
	if show.ID != id {
		return nil, fmt.Errorf("%w: requested show %d, got %d", catalog.ErrInvalidShow, id, show.ID)
	}

	if err := m.store.Upsert(ctx, show); err != nil {
		return nil, err
	}
	return show, nil
}

// withRateLimit repeats fetch for as long as TVMaze answers 429, sleeping
// for the advertised Retry-After or the configured delay in between
func withRateLimit[T any](ctx context.Context, m *defaultManager, fetch func() (T, error)) (T, error) {
	for {
		value, err := fetch()
		limited, ok := tvmaze.IsRateLimited(err)
		if !ok {
			return value, err
		}

		wait := limited.RetryAfter
		if wait <= 0 {
			wait = m.rateLimitedDelay
		}
		slog.Warn("Rate limited by TVMaze, backing off", "endpoint", limited.Endpoint, "wait", wait)

		timer := m.clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			var zero T
			return zero, ctx.Err()
		case <-timer.C():
		}
	}
}
