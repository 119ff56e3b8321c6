package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/stacklok/tvmaze-sync/database"
)

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert migrations",
	Long: `Revert show cache migrations.
WARNING: Reverting the first migration drops the cache. Shows are fetched again
from TVMaze on the next run.

Examples:
  # Revert one migration
  tvmaze-sync migrate down --config config.yaml --num-steps 1 --yes

  # Revert every migration
  tvmaze-sync migrate down --config config.yaml --yes`,
	RunE: runMigrateDown,
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	numSteps, err := cmd.Flags().GetUint("num-steps")
	if err != nil {
		return fmt.Errorf("failed to get num-steps flag: %w", err)
	}
	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return fmt.Errorf("failed to get yes flag: %w", err)
	}

	cfg, lock, err := openDataDir()
	if err != nil {
		return err
	}
	defer unlock(lock)

	if !yes {
		prompt := "WARNING: This will revert ALL migrations and drop the show cache. Continue?"
		if numSteps > 0 {
			prompt = fmt.Sprintf("WARNING: This will revert %d migration(s) and may drop cached data. Continue?", numSteps)
		}
		if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), prompt) {
			slog.Info("Migration cancelled")
			return fmt.Errorf("migration cancelled by user")
		}
	}

	if numSteps == 0 {
		slog.Warn("Reverting all migrations")
	} else {
		slog.Info("Reverting migrations", "steps", numSteps)
	}
	if err := database.MigrateDown(cachePath(cfg), numSteps); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	logSchemaVersion(cachePath(cfg))
	return nil
}
