package filtering

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stacklok/tvmaze-sync/internal/catalog"
)

// ReEvaluationResult summarises one re-evaluation pass
type ReEvaluationResult struct {
	// Scanned is the number of filtered shows looked at
	Scanned int `json:"scanned"`
	// Admitted is the number of shows moved back to pending
	Admitted int `json:"admitted"`
	// Updated is the number of shows that stayed filtered with a new reason
	Updated int `json:"updated"`
}

// Changed reports whether the pass wrote anything
func (r ReEvaluationResult) Changed() int {
	return r.Admitted + r.Updated
}

// ReEvaluate re-applies the evaluator to every filtered show in the cache.
// Admitted shows go back to pending so the next cycle forwards them. A show
// that is still rejected is only rewritten when its stored reason changes.
func ReEvaluate(ctx context.Context, store catalog.Store, evaluator Evaluator) (ReEvaluationResult, error) {
	var result ReEvaluationResult

	err := store.StreamByState(ctx, catalog.StateFiltered, func(rec *catalog.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		result.Scanned++

		switch d := evaluator.Evaluate(&rec.Show).(type) {
		case Admit:
			if err := store.MarkPending(ctx, rec.ID); err != nil {
				return fmt.Errorf("failed to re-queue show %d: %w", rec.ID, err)
			}
			result.Admitted++
			slog.Info("Show now passes filters", "tvmaze_id", rec.ID, "title", rec.Title, "selection", d.Selection)
		case Reject:
			if catalog.FormatReason(d.Category, d.Message) == rec.FilterReason {
				return nil
			}
			if err := store.MarkFiltered(ctx, rec.ID, d.Message, d.Category); err != nil {
				return fmt.Errorf("failed to update filter reason of show %d: %w", rec.ID, err)
			}
			result.Updated++
			slog.Debug("Updated filter reason", "tvmaze_id", rec.ID, "title", rec.Title, "reason", d.Message)
		case Defer:
			// Filtered shows keep their state until the next fetch brings a TVDB id back
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("re-evaluation stopped after %d shows: %w", result.Scanned, err)
	}

	slog.Info("Re-evaluated filtered shows",
		"scanned", result.Scanned,
		"admitted", result.Admitted,
		"updated", result.Updated,
		"fingerprint", evaluator.Fingerprint())
	return result, nil
}
