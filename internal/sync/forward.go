package sync

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/tvmaze-sync/internal/catalog"
	"github.com/stacklok/tvmaze-sync/internal/filtering"
	"github.com/stacklok/tvmaze-sync/internal/otel"
	"github.com/stacklok/tvmaze-sync/internal/sources/sonarr"
)

// act evaluates show and applies the decision. Shows in a terminal state are
// never evaluated again. In dry run the decision and the Sonarr lookup still
// run, but nothing is added and no state is written.
func (m *defaultManager) act(
	ctx context.Context, logger *slog.Logger, show *catalog.Show, current catalog.State,
) (Outcome, error) {
	if current.Terminal() {
		return OutcomeSkipped, nil
	}

	decision := m.evaluator.Evaluate(show)
	ctx, span := otel.StartSpan(ctx, m.tracer, "sync.evaluate",
		trace.WithAttributes(otel.AttrShowID.Int64(show.ID), otel.AttrDecision.String(decision.Kind())))
	defer span.End()

	switch d := decision.(type) {
	case filtering.Reject:
		if m.dryRun {
			logDryRun(logger, show, OutcomeFiltered, d.Reason())
			return OutcomeFiltered, nil
		}
		logger.Debug("Filtered show", "tvmaze_id", show.ID, "title", show.Title, "reason", d.Reason())
		return OutcomeFiltered, m.store.MarkFiltered(ctx, show.ID, d.Message, d.Category)
	case filtering.Defer:
		return m.deferShow(ctx, logger, show, d.Reason())
	case filtering.Admit:
		return m.forward(ctx, logger, show, d)
	default:
		return OutcomeError, fmt.Errorf("unknown filter decision %T", d)
	}
}

// forward looks the admitted show up in Sonarr and adds it
func (m *defaultManager) forward(
	ctx context.Context, logger *slog.Logger, show *catalog.Show, admit filtering.Admit,
) (Outcome, error) {
	tvdbID := admit.Params.TVDBID

	candidate, found, err := m.downstream.Lookup(ctx, tvdbID)
	if err != nil {
		return OutcomeError, fmt.Errorf("sonarr lookup of tvdb:%d failed: %w", tvdbID, err)
	}
	if !found {
		logger.Warn("Show not found in Sonarr lookup", "tvmaze_id", show.ID, "tvdb_id", tvdbID, "title", show.Title)
		return m.deferShow(ctx, logger, show, "Not found in Sonarr lookup")
	}

	if candidate.LibraryID > 0 {
		if m.dryRun {
			logDryRun(logger, show, OutcomeExists, "Already in Sonarr")
			return OutcomeExists, nil
		}
		seriesID := candidate.LibraryID
		logger.Info("Show already in Sonarr", "tvmaze_id", show.ID, "title", show.Title, "sonarr_id", seriesID)
		return OutcomeExists, m.store.MarkExists(ctx, show.ID, &seriesID)
	}

	if m.dryRun {
		logDryRun(logger, show, OutcomeDryRun, admit.Reason())
		return OutcomeDryRun, nil
	}

	result, err := m.downstream.Add(ctx, candidate, admit.Params)
	if err != nil {
		return OutcomeError, fmt.Errorf("sonarr add of tvdb:%d failed: %w", tvdbID, err)
	}

	switch r := result.(type) {
	case sonarr.Created:
		logger.Info("Added show to Sonarr",
			"tvmaze_id", show.ID, "title", show.Title, "sonarr_id", r.ID, "selection", admit.Selection)
		return OutcomeAdded, m.store.MarkAdded(ctx, show.ID, r.ID)
	case sonarr.AlreadyExists:
		logger.Info("Show already in Sonarr", "tvmaze_id", show.ID, "title", show.Title)
		return OutcomeExists, m.store.MarkExists(ctx, show.ID, r.ID)
	case sonarr.Rejected:
		logger.Warn("Sonarr rejected show", "tvmaze_id", show.ID, "title", show.Title, "reason", r.Message)
		return OutcomeFailed, m.store.MarkFailed(ctx, show.ID, r.Message)
	default:
		return OutcomeError, fmt.Errorf("unknown add result %T", result)
	}
}

// deferShow parks the show until retry_delay from now
func (m *defaultManager) deferShow(
	ctx context.Context, logger *slog.Logger, show *catalog.Show, reason string,
) (Outcome, error) {
	if m.dryRun {
		logDryRun(logger, show, OutcomePendingTVDB, reason)
		return OutcomePendingTVDB, nil
	}
	now := m.clock.Now().UTC()
	logger.Debug("Deferred show", "tvmaze_id", show.ID, "title", show.Title, "reason", reason)
	return OutcomePendingTVDB, m.store.MarkPendingTVDB(ctx, show.ID, now.Add(m.retryDelay), now)
}

func logDryRun(logger *slog.Logger, show *catalog.Show, outcome Outcome, reason string) {
	logger.Info("Dry run decision",
		"tvmaze_id", show.ID,
		"title", show.Title,
		"outcome", outcome,
		"reason", reason,
		"dry_run", true)
}
