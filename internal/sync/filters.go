package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stacklok/tvmaze-sync/internal/filtering"
	"github.com/stacklok/tvmaze-sync/internal/status"
)

// CheckFilterChange implements Manager
func (m *defaultManager) CheckFilterChange(ctx context.Context) (*filtering.ReEvaluationResult, error) {
	release, err := m.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	return m.checkFilterChange(ctx)
}

// ForceReEvaluate implements Manager
func (m *defaultManager) ForceReEvaluate(ctx context.Context) (filtering.ReEvaluationResult, error) {
	release, err := m.acquire()
	if err != nil {
		return filtering.ReEvaluationResult{}, err
	}
	defer release()

	slog.Info("Re-evaluating filtered shows on request")
	result, err := filtering.ReEvaluate(ctx, m.store, m.evaluator)
	if err != nil {
		return result, err
	}
	return result, m.saveFingerprint(ctx)
}

// checkFilterChange re-evaluates the filtered shows when the stored
// fingerprint is set and differs from the evaluator's. The first run only
// records the fingerprint.
func (m *defaultManager) checkFilterChange(ctx context.Context) (*filtering.ReEvaluationResult, error) {
	current := m.evaluator.Fingerprint()
	stored := m.progress.Get().LastFilterHash
	if stored == current {
		return nil, nil
	}

	var result *filtering.ReEvaluationResult
	if stored == "" {
		slog.Info("Recording filter fingerprint", "fingerprint", current)
	} else {
		slog.Info("Filter configuration changed, re-evaluating filtered shows",
			"previous", stored, "current", current)
		r, err := filtering.ReEvaluate(ctx, m.store, m.evaluator)
		if err != nil {
			return nil, err
		}
		result = &r
	}

	return result, m.saveFingerprint(ctx)
}

func (m *defaultManager) saveFingerprint(ctx context.Context) error {
	fingerprint := m.evaluator.Fingerprint()
	_, err := m.progress.Update(ctx, func(p *status.SyncProgress) bool {
		if p.LastFilterHash == fingerprint {
			return false
		}
		p.LastFilterHash = fingerprint
		return true
	})
	if err != nil {
		return fmt.Errorf("failed to save filter fingerprint: %w", err)
	}
	return nil
}
