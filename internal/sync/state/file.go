package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stacklok/tvmaze-sync/internal/status"
)

type fileProgressService struct {
	store status.ProgressStore

	mu       sync.RWMutex
	progress *status.SyncProgress
}

// NewProgressService creates a progress service backed by store
func NewProgressService(store status.ProgressStore) ProgressService {
	return &fileProgressService{
		store:    store,
		progress: &status.SyncProgress{},
	}
}

func (f *fileProgressService) Initialize(ctx context.Context) (status.LoadSource, error) {
	progress, source, err := f.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load sync progress: %w", err)
	}

	dirty := source != status.LoadedPrimary
	if progress.Phase == status.SyncPhaseSyncing {
		// The previous process stopped mid-cycle. Everything it checkpointed
		// is kept; only the phase is corrected.
		slog.Warn("Previous sync cycle was interrupted, resetting to Failed", "cycle_id", progress.CycleID)
		progress.Phase = status.SyncPhaseFailed
		progress.Message = "Previous sync was interrupted"
		dirty = true
	}

	if dirty {
		if err := f.store.Save(ctx, progress); err != nil {
			return "", fmt.Errorf("failed to persist recovered sync progress: %w", err)
		}
	}

	if progress.LastFullSync != nil {
		slog.Info("Loaded sync progress",
			"source", source,
			"phase", progress.Phase,
			"last_full_sync", progress.LastFullSync.Format(time.RFC3339),
			"highest_tvmaze_id", progress.HighestTVMazeID)
	} else {
		slog.Info("Loaded sync progress, initial scan not complete",
			"source", source,
			"page_cursor", progress.PageCursor,
			"highest_tvmaze_id", progress.HighestTVMazeID)
	}

	f.mu.Lock()
	f.progress = progress
	f.mu.Unlock()
	return source, nil
}

func (f *fileProgressService) Get() *status.SyncProgress {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.progress.Clone()
}

func (f *fileProgressService) Update(
	ctx context.Context,
	updateFn func(progress *status.SyncProgress) bool,
) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := f.progress.Clone()
	if !updateFn(next) {
		return false, nil
	}
	if err := f.store.Save(ctx, next); err != nil {
		return false, err
	}
	f.progress = next
	return true, nil
}

func (f *fileProgressService) Backup(ctx context.Context) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.store.Backup(ctx)
}

func (f *fileProgressService) Flush(ctx context.Context) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.store.Save(ctx, f.progress)
}
