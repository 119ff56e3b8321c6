package sync

import (
	"context"

	"github.com/stacklok/tvmaze-sync/internal/catalog"
	"github.com/stacklok/tvmaze-sync/internal/filtering"
	"github.com/stacklok/tvmaze-sync/internal/sources/sonarr"
	"github.com/stacklok/tvmaze-sync/internal/sources/tvmaze"
)

// UpstreamClient reads the TVMaze catalog. Every call is paced by the rate governor.
//
//go:generate mockgen -destination=mocks/mock_clients.go -package=mocks -source=clients.go UpstreamClient,DownstreamClient
type UpstreamClient interface {
	// FetchPage returns one index page. An empty slice means past the last page.
	FetchPage(ctx context.Context, page int) ([]catalog.RawShow, error)

	// FetchShow returns a single show or tvmaze.ErrNotFound
	FetchShow(ctx context.Context, id int64) (catalog.RawShow, error)

	// FetchUpdates returns the revision marker of every show updated in window
	FetchUpdates(ctx context.Context, window string) (map[int64]int64, error)
}

// DownstreamClient is the narrow Sonarr contract the orchestrator needs
type DownstreamClient interface {
	// Lookup finds a series by TVDB id. The boolean is false when Sonarr does not know it.
	Lookup(ctx context.Context, tvdbID int64) (*sonarr.Candidate, bool, error)

	// Add creates the series. Rejections are results, not errors.
	Add(ctx context.Context, candidate *sonarr.Candidate, params filtering.ForwardParams) (sonarr.AddResult, error)

	// ExistingTVDBIDs maps the TVDB id of every series in Sonarr to its series id
	ExistingTVDBIDs(ctx context.Context) (map[int64]int64, error)

	// Healthy reports whether Sonarr answers
	Healthy(ctx context.Context) bool
}

var (
	_ UpstreamClient   = (*tvmaze.Client)(nil)
	_ DownstreamClient = (*sonarr.Client)(nil)
)
