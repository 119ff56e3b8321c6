package app

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/stacklok/tvmaze-sync/database"
	syncapp "github.com/stacklok/tvmaze-sync/internal/app"
	"github.com/stacklok/tvmaze-sync/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Show cache migration tool",
	Long:  `Migration tool for managing the show cache schema. Use with 'up' or 'down' subcommands.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Usage()
	},
}

func init() {
	migrateCmd.PersistentFlags().BoolP("yes", "y", false, "Answer yes to all questions")
	migrateCmd.PersistentFlags().UintP("num-steps", "n", 0, "Number of steps to migrate down (0 = all)")

	// Add subcommands
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}

// openDataDir loads the configuration and locks its data directory.
// The caller releases the lock.
func openDataDir() (*config.Config, *flock.Flock, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	lock, err := syncapp.LockDataDir(cfg.Storage.Path)
	if err != nil {
		return nil, nil, err
	}
	return cfg, lock, nil
}

func unlock(lock *flock.Flock) {
	if err := lock.Unlock(); err != nil {
		slog.Error("Failed to unlock data directory", "error", err)
	}
}

// confirm asks a yes/no question on in and reports whether the answer was yes
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	_, _ = fmt.Fprintf(out, "%s (yes/no): ", prompt)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "yes" || answer == "y"
}

func logSchemaVersion(path string) {
	version, dirty, err := database.GetVersion(path)
	switch {
	case err != nil:
		slog.Warn("Unable to get migration version", "error", err)
	case dirty:
		slog.Warn("Show cache schema is dirty, manual intervention may be required", "version", version)
	default:
		slog.Info("Current migration version", "version", version)
	}
}

func cachePath(cfg *config.Config) string {
	return cfg.Storage.GetDatabasePath()
}
