// Package cli is the marks client command line: it imports a homepage
// configuration into local storage, bootstraps a session against a marks
// server and prints what was loaded.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/marks/internal/config"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/version"
)

// Loader returns the client configuration. It is called once a subcommand
// runs so that --help works without any environment.
type Loader func() *config.Client

// NewRootCommand builds the command tree.
func NewRootCommand(load Loader) *cobra.Command {
	root := &cobra.Command{
		Use:           "marks-client",
		Short:         "Sync and inspect marks bookmarks",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		newImportCommand(load),
		newSyncCommand(load),
		newCheckCommand(load),
		newSearchCommand(load),
	)
	return root
}

func newLogger(cfg *config.Client) logger.Logger {
	return logger.New(cfg.LogLevel, cfg.PrettyLog).Named("marks-client")
}
