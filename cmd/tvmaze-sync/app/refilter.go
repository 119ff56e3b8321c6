package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/stacklok/tvmaze-sync/database"
	"github.com/stacklok/tvmaze-sync/internal/catalog"
	"github.com/stacklok/tvmaze-sync/internal/config"
	"github.com/stacklok/tvmaze-sync/internal/db"
	"github.com/stacklok/tvmaze-sync/internal/filtering"
	"github.com/stacklok/tvmaze-sync/internal/status"
	"github.com/stacklok/tvmaze-sync/internal/sync/state"
)

var refilterCmd = &cobra.Command{
	Use:   "refilter",
	Short: "Re-evaluate filtered shows against the current configuration",
	Long: `Re-apply the configured filters to every filtered show in the cache while the
service is stopped. Shows the filters now admit go back to pending and are
forwarded by the next sync cycle. Sonarr is not contacted.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, lock, err := openDataDir()
		if err != nil {
			return err
		}
		defer unlock(lock)

		result, err := refilter(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		return renderRefilter(cmd.OutOrStdout(), result)
	},
}

// refilter re-evaluates the cache with the configured filters and records
// their fingerprint so the next serve does not repeat the pass
func refilter(ctx context.Context, cfg *config.Config) (filtering.ReEvaluationResult, error) {
	var result filtering.ReEvaluationResult

	if err := database.MigrateUp(cachePath(cfg)); err != nil {
		return result, fmt.Errorf("failed to migrate show cache: %w", err)
	}
	conn, err := db.Open(cachePath(cfg))
	if err != nil {
		return result, fmt.Errorf("failed to open show cache: %w", err)
	}
	defer func() { _ = conn.Close() }()

	progress := state.NewProgressService(status.NewFileProgressStore(cfg.Storage.GetStatePath()))
	if _, err := progress.Initialize(ctx); err != nil {
		return result, fmt.Errorf("failed to load sync progress: %w", err)
	}

	// Forward parameters are not used when only re-evaluating
	evaluator := filtering.NewEvaluator(cfg.Filters(), filtering.ForwardParams{})
	result, err = filtering.ReEvaluate(ctx, catalog.NewSQLiteStore(conn), evaluator)
	if err != nil {
		return result, fmt.Errorf("failed to re-evaluate filtered shows: %w", err)
	}

	fingerprint := evaluator.Fingerprint()
	if _, err := progress.Update(ctx, func(p *status.SyncProgress) bool {
		if p.LastFilterHash == fingerprint {
			return false
		}
		p.LastFilterHash = fingerprint
		return true
	}); err != nil {
		return result, fmt.Errorf("failed to save filter fingerprint: %w", err)
	}

	slog.Info("Refilter complete",
		"scanned", result.Scanned,
		"admitted", result.Admitted,
		"updated", result.Updated,
		"fingerprint", fingerprint)
	return result, nil
}

func renderRefilter(out io.Writer, result filtering.ReEvaluationResult) error {
	table := tablewriter.NewWriter(out)
	table.Header("Re-evaluation", "Shows")
	rows := [][]string{
		{"scanned", strconv.Itoa(result.Scanned)},
		{"admitted", strconv.Itoa(result.Admitted)},
		{"reason updated", strconv.Itoa(result.Updated)},
	}
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}
