package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/stacklok/tvmaze-sync/internal/catalog"
	"github.com/stacklok/tvmaze-sync/internal/config"
	"github.com/stacklok/tvmaze-sync/internal/db"
	"github.com/stacklok/tvmaze-sync/internal/status"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print sync progress and show cache counts",
	Long: `Print the progress record and the number of cached shows per status.
The cache is only read, so status can run next to serve.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return printStatus(cmd.Context(), cfg, cmd.OutOrStdout())
	},
}

// statusReport is everything the status command prints
type statusReport struct {
	progress *status.SyncProgress
	source   status.LoadSource
	states   map[catalog.State]int
	reasons  map[string]int
	total    int
}

func printStatus(ctx context.Context, cfg *config.Config, out io.Writer) error {
	report := statusReport{}

	progress, source, err := status.NewFileProgressStore(cfg.Storage.GetStatePath()).Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load sync progress: %w", err)
	}
	report.progress, report.source = progress, source

	if _, err := os.Stat(cachePath(cfg)); errors.Is(err, os.ErrNotExist) {
		return renderStatus(out, &report)
	}

	conn, err := db.Open(cachePath(cfg))
	if err != nil {
		return fmt.Errorf("failed to open show cache: %w", err)
	}
	defer func() { _ = conn.Close() }()
	store := catalog.NewSQLiteStore(conn)

	if report.states, err = store.StateCounts(ctx); err != nil {
		return fmt.Errorf("failed to count shows: %w", err)
	}
	if report.reasons, err = store.FilterReasonCounts(ctx); err != nil {
		return fmt.Errorf("failed to count filter reasons: %w", err)
	}
	if report.total, err = store.TotalCount(ctx); err != nil {
		return fmt.Errorf("failed to count shows: %w", err)
	}

	return renderStatus(out, &report)
}

func renderStatus(out io.Writer, report *statusReport) error {
	p := report.progress

	progress := tablewriter.NewWriter(out)
	progress.Header("Progress", "Value")
	rows := [][]string{
		{"record", string(report.source)},
		{"phase", orDash(string(p.Phase))},
		{"last cycle", orDash(p.CycleID)},
		{"message", orDash(p.Message)},
		{"last attempt", formatTime(p.LastAttempt)},
		{"last success", formatTime(p.LastSuccess)},
		{"consecutive failures", strconv.Itoa(p.ConsecutiveFailures)},
		{"initial scan complete", strconv.FormatBool(p.InitialScanComplete())},
		{"last full sync", formatTime(p.LastFullSync)},
		{"last incremental sync", formatTime(p.LastIncrementalSync)},
		{"last updates check", formatTime(p.LastUpdatesCheck)},
		{"next index page", strconv.Itoa(p.PageCursor)},
		{"highest TVMaze id", strconv.FormatInt(p.HighestTVMazeID, 10)},
		{"filter fingerprint", orDash(p.LastFilterHash)},
	}
	for _, row := range rows {
		if err := progress.Append(row); err != nil {
			return err
		}
	}
	if err := progress.Render(); err != nil {
		return err
	}

	if report.states == nil {
		_, err := fmt.Fprintln(out, "No show cache yet.")
		return err
	}

	counts := tablewriter.NewWriter(out)
	counts.Header("Status", "Shows")
	for _, s := range catalog.AllStates() {
		if err := counts.Append([]string{string(s), strconv.Itoa(report.states[s])}); err != nil {
			return err
		}
	}
	if err := counts.Append([]string{"total", strconv.Itoa(report.total)}); err != nil {
		return err
	}
	if err := counts.Render(); err != nil {
		return err
	}

	if len(report.reasons) == 0 {
		return nil
	}

	categories := make([]string, 0, len(report.reasons))
	for category := range report.reasons {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	reasons := tablewriter.NewWriter(out)
	reasons.Header("Filter reason", "Shows")
	for _, category := range categories {
		if err := reasons.Append([]string{category, strconv.Itoa(report.reasons[category])}); err != nil {
			return err
		}
	}
	return reasons.Render()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
