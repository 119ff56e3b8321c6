// Package app provides the command line of the tvmaze-sync service.
package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/tvmaze-sync/internal/config"
	"github.com/stacklok/tvmaze-sync/internal/versions"
)

var rootCmd = &cobra.Command{
	Use:               "tvmaze-sync",
	DisableAutoGenTag: true,
	Short:             "Sync TVMaze shows into Sonarr",
	Long: `tvmaze-sync mirrors the TVMaze show index into a local cache, filters it
against configured selections and adds the matching series to Sonarr.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			slog.Error("Error displaying help", "error", err)
		}
	},
}

// NewRootCmd creates a new root command for the sync service.
func NewRootCmd() *cobra.Command {
	// Add persistent flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("config", "", "Path to configuration file (YAML format)")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory holding the show cache and progress record (overrides storage.path)")

	for _, name := range []string{"debug", "config", "data-dir"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			slog.Error("Error binding flag", "flag", name, "error", err)
		}
	}

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(refilterCmd)

	return rootCmd
}

// loadConfig loads the configuration named by --config, or defaults plus
// environment overrides without one, applies --data-dir and reinstalls the
// default logger with the configured level and format
func loadConfig() (*config.Config, error) {
	var opts []config.Option
	if path := viper.GetString("config"); path != "" {
		opts = append(opts, config.WithConfigPath(path))
	}

	cfg, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if dir := viper.GetString("data-dir"); dir != "" {
		cfg.Storage.Path = dir
	}

	slog.SetDefault(slog.New(NewLogHandler(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)))
	return cfg, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := versions.GetVersionInfo()
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return fmt.Errorf("failed to get format flag: %w", err)
		}

		if format == "json" {
			output, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to format version info as JSON: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(output))
			return err
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), info.String())
		return err
	},
}

func init() {
	versionCmd.Flags().String("format", "", "Output format (json)")
}
