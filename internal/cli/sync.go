package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/engine"
)

func newSyncCommand(load Loader) *cobra.Command {
	var choice string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Load the server data, migrating local data if needed, and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := load()
			log := newLogger(cfg)
			defer func() { _ = log.Sync() }()

			return withSession(cmd.Context(), cfg, log, choice, func(e *engine.Engine) error {
				out := cmd.OutOrStdout()
				printTree(out, e)
				printCounts(out, "loaded", e.Snapshot())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&choice, "migrate", "", "answer a migration prompt: import or discard")
	return cmd
}

func newCheckCommand(load Loader) *cobra.Command {
	var choice string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load the server data and report integrity problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := load()
			log := newLogger(cfg)
			defer func() { _ = log.Sync() }()

			return withSession(cmd.Context(), cfg, log, choice, func(e *engine.Engine) error {
				problems := Inspect(e)
				out := cmd.OutOrStdout()
				for _, p := range problems {
					fmt.Fprintln(out, p)
				}
				if len(problems) > 0 {
					return fmt.Errorf("%d integrity problems found", len(problems))
				}
				fmt.Fprintln(out, "ok")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&choice, "migrate", "", "answer a migration prompt: import or discard")
	return cmd
}

// Inspect lists orphaned entities and live siblings sharing an order.
func Inspect(e *engine.Engine) []string {
	var out []string
	for _, o := range e.Cascade.Orphans() {
		out = append(out, fmt.Sprintf("orphan %s %s: %s", o.Kind, o.ID, o.Reason))
	}

	out = append(out, duplicates("space", liveBy(e.Spaces.Items(), func(s domain.Space) (string, string, int, bool) {
		return s.ID, "", s.Order, s.IsArchived
	}))...)
	out = append(out, duplicates("group", liveBy(e.Groups.Items(), func(g domain.Group) (string, string, int, bool) {
		return g.ID, g.SpaceID, g.Order, g.IsArchived
	}))...)
	out = append(out, duplicates("bookmark", liveBy(e.Bookmarks.Items(), func(b domain.Bookmark) (string, string, int, bool) {
		return b.ID, b.GroupID, b.Order, b.IsArchived
	}))...)
	return out
}

type placed struct {
	id, scope string
	order     int
}

func liveBy[T any](items []T, fn func(T) (id, scope string, order int, archived bool)) []placed {
	out := make([]placed, 0, len(items))
	for _, it := range items {
		id, scope, order, archived := fn(it)
		if !archived {
			out = append(out, placed{id: id, scope: scope, order: order})
		}
	}
	return out
}

func duplicates(kind string, items []placed) []string {
	type slot struct {
		scope string
		order int
	}
	seen := make(map[slot]string, len(items))

	var out []string
	for _, it := range items {
		k := slot{it.scope, it.order}
		if first, ok := seen[k]; ok {
			out = append(out, fmt.Sprintf("duplicate order %d for %s %s and %s", it.order, kind, first, it.id))
			continue
		}
		seen[k] = it.id
	}
	return out
}

func printTree(w io.Writer, e *engine.Engine) {
	active := e.ActiveSpace().Get()
	for _, s := range e.Spaces.Live("") {
		marker := " "
		if s.ID == active {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s %s\n", marker, s.Icon, s.Name)

		for _, g := range e.Groups.Live(s.ID) {
			fmt.Fprintf(w, "  %s\n", g.Name)
			for _, b := range e.Bookmarks.Live(g.ID) {
				title := b.Title
				if b.IsPinned {
					title += " (pinned)"
				}
				fmt.Fprintf(w, "    %s %s\n", strings.TrimSpace(title), b.URL)
			}
		}
	}
}
