package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/legacy"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/sources/homepage"
	"github.com/MrSnakeDoc/marks/internal/utils"
)

func newImportCommand(load Loader) *cobra.Command {
	var services string

	cmd := &cobra.Command{
		Use:   "import-homepage <bookmarks.yaml>",
		Short: "Store a homepage bookmarks file as local data awaiting migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := load()
			log := newLogger(cfg)
			defer func() { _ = log.Sync() }()

			mapper := homepage.NewMapper(cfg.UserID)

			bookmarks, err := homepage.NewLoader(args[0]).LoadBookmarks()
			if err != nil {
				return err
			}
			ds, err := mapper.MapBookmarks(bookmarks)
			if err != nil {
				return fmt.Errorf("map bookmarks: %w", err)
			}

			if services != "" {
				svc, err := homepage.NewLoader(services).LoadServices()
				if err != nil {
					return err
				}
				mapped, err := mapper.MapServices(svc)
				if err != nil {
					return fmt.Errorf("map services: %w", err)
				}
				ds = homepage.Merge(ds, mapped)
			}

			store, err := openLocal(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer utils.CloseLogged(store, log, "local store")

			if err := legacy.New(store).Save(cmd.Context(), cfg.UserID, ds); err != nil {
				return fmt.Errorf("save local data: %w", err)
			}
			log.Info("homepage imported",
				logger.String("user", cfg.UserID),
				logger.String("store", cfg.LocalStore))

			printCounts(cmd.OutOrStdout(), "imported", ds)
			return nil
		},
	}
	cmd.Flags().StringVarP(&services, "services", "s", "", "homepage services.yaml to import as well")
	return cmd
}

func printCounts(w io.Writer, verb string, ds domain.Dataset) {
	fmt.Fprintf(w, "%s %d spaces, %d groups, %d bookmarks\n",
		verb, len(ds.Spaces), len(ds.Groups), len(ds.Bookmarks))
}
