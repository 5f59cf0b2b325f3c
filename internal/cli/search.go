package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/engine"
)

func newSearchCommand(load Loader) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank live bookmarks by title and hostname",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := load()
			log := newLogger(cfg)
			defer func() { _ = log.Sync() }()

			query := strings.Join(args, " ")
			return withSession(cmd.Context(), cfg, log, "", func(e *engine.Engine) error {
				matches := domain.RankBookmarks(query, e.Bookmarks.Items())
				if len(matches) == 0 {
					return fmt.Errorf("%w: no bookmark matches %q", domain.ErrNotFound, query)
				}
				if limit > 0 && len(matches) > limit {
					matches = matches[:limit]
				}

				out := cmd.OutOrStdout()
				for _, m := range matches {
					fmt.Fprintf(out, "%6.1f  %s  %s\n", m.Score, m.Bookmark.Title, m.Bookmark.URL)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of results, 0 for all")
	return cmd
}
