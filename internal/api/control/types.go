package control

import (
	"time"

	"github.com/stacklok/tvmaze-sync/internal/catalog"
	pkgsync "github.com/stacklok/tvmaze-sync/internal/sync"
)

// TriggerResponse is the body of POST /trigger
type TriggerResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// StateResponse summarises the sync engine for GET /state
type StateResponse struct {
	LastFullSync        *time.Time            `json:"last_full_sync"`
	LastIncrementalSync *time.Time            `json:"last_incremental_sync"`
	LastUpdatesCheck    *time.Time            `json:"last_updates_check"`
	LastSuccess         *time.Time            `json:"last_success"`
	HighestTVMazeID     int64                 `json:"highest_tvmaze_id"`
	PageCursor          int                   `json:"last_tvmaze_page"`
	NextScheduledRun    *time.Time            `json:"next_scheduled_run"`
	SyncRunning         bool                  `json:"sync_running"`
	Healthy             bool                  `json:"healthy"`
	DryRun              bool                  `json:"dry_run"`
	Phase               string                `json:"phase,omitempty"`
	Message             string                `json:"message,omitempty"`
	ConsecutiveFailures int                   `json:"consecutive_failures"`
	StatusCounts        map[catalog.State]int `json:"status_counts"`
	TotalShows          int                   `json:"total_shows"`
	LastResult          *pkgsync.Result       `json:"last_result,omitempty"`
}

// ShowsResponse is one page of GET /shows
type ShowsResponse struct {
	Shows  []*catalog.Record `json:"shows"`
	Count  int               `json:"count"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

// RefilterResponse is the body of POST /refilter
type RefilterResponse struct {
	Status          string `json:"status"`
	ShowsEvaluated  int    `json:"shows_re_evaluated"`
	ShowsReadmitted int    `json:"shows_readmitted"`
	ReasonsUpdated  int    `json:"reasons_updated"`
	Error           string `json:"error,omitempty"`
}
