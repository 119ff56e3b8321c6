// Package state manages the sync progress record the orchestrator persists.
package state

import (
	"context"

	"github.com/stacklok/tvmaze-sync/internal/status"
)

// ProgressService holds the in-memory copy of the sync progress record and
// keeps it in step with its persisted form.
//
//go:generate mockgen -destination=mocks/mock_progress_service.go -package=mocks github.com/stacklok/tvmaze-sync/internal/sync/state ProgressService
type ProgressService interface {
	// Initialize loads the persisted record. It is intended to be called once
	// at startup, before any cycle runs. A record left in the Syncing phase
	// by an interrupted process is reset to Failed.
	Initialize(ctx context.Context) (status.LoadSource, error)
	// Get returns a copy of the current record
	Get() *status.SyncProgress
	// Update applies updateFn to a copy of the current record. When updateFn
	// returns true the copy is saved and becomes the current record, all as a
	// single atomic action. A failed save leaves the current record unchanged.
	Update(ctx context.Context, updateFn func(progress *status.SyncProgress) bool) (bool, error)
	// Backup refreshes the backup copy from the last saved record
	Backup(ctx context.Context) error
	// Flush saves the current record
	Flush(ctx context.Context) error
}
