// Package main is the entry point for the tvmaze-sync service.
package main

import (
	"log/slog"
	"os"

	"github.com/stacklok/tvmaze-sync/cmd/tvmaze-sync/app"
)

func main() {
	// Use stderr to keep stdout clean for commands that output data (e.g., version --format json).
	// Commands that load a config file reinstall the handler with its logging settings.
	slog.SetDefault(slog.New(app.NewLogHandler(os.Stderr, "", "json")))

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
