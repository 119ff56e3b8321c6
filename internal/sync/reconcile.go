package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stacklok/tvmaze-sync/internal/catalog"
	"github.com/stacklok/tvmaze-sync/internal/filtering"
)

type reconcileCandidate struct {
	show  catalog.Show
	admit filtering.Admit
}

// ReconcileSelections implements Manager. It reads the TVDB ids already in
// Sonarr with one call, marks cached shows Sonarr already has as exists and
// forwards every other cached show the current filters admit.
func (m *defaultManager) ReconcileSelections(ctx context.Context) (map[Outcome]int, error) {
	release, err := m.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	logger := slog.With("operation", "reconcile")

	existing, err := m.downstream.ExistingTVDBIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list Sonarr series: %w", err)
	}
	logger.Info("Read Sonarr library", "series", len(existing))

	counts := make(map[Outcome]int)
	var candidates []reconcileCandidate
	checked := 0

	err = m.store.StreamWithTVDB(ctx, func(rec *catalog.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		checked++
		if rec.State.Terminal() {
			return nil
		}

		if seriesID, ok := existing[*rec.TVDBID]; ok {
			if m.dryRun {
				return nil
			}
			m.recordOutcome(ctx, counts, OutcomeExists)
			return m.store.MarkExists(ctx, rec.ID, &seriesID)
		}

		if admit, ok := m.evaluator.Evaluate(&rec.Show).(filtering.Admit); ok {
			candidates = append(candidates, reconcileCandidate{show: rec.Show, admit: admit})
		}
		return nil
	})
	if err != nil {
		return counts, fmt.Errorf("failed to scan cached shows: %w", err)
	}

	logger.Info("Checked cached shows against Sonarr", "checked", checked, "candidates", len(candidates))

	for i := range candidates {
		cand := &candidates[i]
		outcome, err := m.forward(ctx, logger, &cand.show, cand.admit)
		m.recordOutcome(ctx, counts, outcome)
		if err != nil {
			if fatal(err) {
				return counts, err
			}
			logger.Error("Failed to forward show", "tvmaze_id", cand.show.ID, "title", cand.show.Title, "error", err)
		}
	}

	logger.Info("Selections reconcile complete",
		"added", counts[OutcomeAdded],
		"exists", counts[OutcomeExists],
		"failed", counts[OutcomeFailed],
		"dry_run", counts[OutcomeDryRun])
	return counts, nil
}
