package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/stacklok/tvmaze-sync/database"
)

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Long: `Apply all pending migrations to bring the show cache schema up to date.
serve applies them on startup; this command is for upgrading a cache offline.`,
	RunE: runMigrateUp,
}

func runMigrateUp(_ *cobra.Command, _ []string) error {
	cfg, lock, err := openDataDir()
	if err != nil {
		return err
	}
	defer unlock(lock)

	slog.Info("Applying migrations", "path", cachePath(cfg))
	if err := database.MigrateUp(cachePath(cfg)); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logSchemaVersion(cachePath(cfg))
	return nil
}
