package app

import (
	"context"

	"github.com/stacklok/tvmaze-sync/internal/catalog"
	"github.com/stacklok/tvmaze-sync/internal/config"
	"github.com/stacklok/tvmaze-sync/internal/db"
	"github.com/stacklok/tvmaze-sync/internal/filtering"
	pkgsync "github.com/stacklok/tvmaze-sync/internal/sync"
	"github.com/stacklok/tvmaze-sync/internal/sync/coordinator"
	"github.com/stacklok/tvmaze-sync/internal/sync/state"
)

// DownstreamClient is the Sonarr side of the app: the calls the
// orchestrator makes plus the startup parameter check
//
//go:generate mockgen -destination=mocks/mock_downstream.go -package=mocks -source=components.go DownstreamClient
type DownstreamClient interface {
	pkgsync.DownstreamClient
	ResolveParams(ctx context.Context, cfg *config.SonarrConfig) (filtering.ForwardParams, error)
}

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// SyncCoordinator schedules sync cycles in the background
	SyncCoordinator coordinator.Coordinator

	// SyncManager runs cycles and the cache-wide operations
	SyncManager pkgsync.Manager

	// Store is the show cache
	Store catalog.Store

	// Progress holds the sync progress record
	Progress state.ProgressService

	// Database is the SQLite connection behind Store
	Database *db.Connection
}
