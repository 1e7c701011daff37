// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/mkellerman/bmad-mcp-server-sub003/internal/issue"
	"github.com/mkellerman/bmad-mcp-server-sub003/internal/remote"
)

func newCacheCommand(app *App, flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached remote installations",
		Long: `Inspect and clean the directory holding git checkouts of remote
installations. Each entry is keyed by host, repository and ref.`,
	}
	cmd.AddCommand(newCacheListCommand(app, flags), newCacheCleanCommand(app, flags), newCachePruneCommand(app, flags))
	return cmd
}

func newCacheListCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := app.newSession(cmd.Context(), flags)
			if err != nil {
				return err
			}
			cache := s.engine.Cache()
			entries, err := cache.Entries()
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, TitleStyle.Render("Cache")+" "+SubtitleStyle.Render(cache.Dir()))
			if len(entries) == 0 {
				fmt.Fprintln(app.stdout, "  "+SubtitleStyle.Render("empty"))
				return nil
			}
			t := newTable("KEY", "SOURCE", "REF", "COMMIT", "LAST PULL")
			for _, e := range entries {
				if e.Err != nil {
					t.Row(e.Key, WarningStyle.Render("stale: "+e.Err.Error()), "", "", "")
					continue
				}
				ref := e.Meta.Ref
				if ref == "" {
					ref = "-"
				}
				commit := e.Meta.Commit
				if len(commit) > 12 {
					commit = commit[:12]
				}
				t.Row(e.Key, e.Meta.SourceURL, ref, commit, e.Meta.LastPull.Local().Format("2006-01-02 15:04"))
			}
			fmt.Fprintln(app.stdout, t.Render())
			return nil
		},
	}
}

func newCacheCleanCommand(app *App, flags *rootFlags) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "clean [key...]",
		Short: "Remove cache entries",
		Long:  `Remove the named cache entries, or every entry with --all. Removed entries are cloned again on next use.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return errors.New("give one or more cache keys or --all")
			}
			s, err := app.newSession(cmd.Context(), flags)
			if err != nil {
				return err
			}
			cache := s.engine.Cache()
			entries, err := cache.Entries()
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(entries))
			for _, e := range entries {
				keys = append(keys, e.Key)
			}

			targets := keys
			if !all {
				for _, k := range args {
					if !slices.Contains(keys, k) {
						return cacheEntryNotFound(k, keys)
					}
				}
				targets = args
			}
			for _, k := range targets {
				if err := cache.Clean(k); err != nil {
					return err
				}
				fmt.Fprintln(app.stdout, SuccessStyle.Render("removed")+" "+k)
			}
			if len(targets) == 0 {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("Cache is already empty."))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "remove every entry")
	return cmd
}

func newCachePruneCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove broken cache entries",
		Long:  `Remove checkouts without readable metadata and metadata files whose checkout is gone.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := app.newSession(cmd.Context(), flags)
			if err != nil {
				return err
			}
			removed, err := s.engine.Cache().Prune()
			if err != nil {
				return err
			}
			for _, k := range removed {
				fmt.Fprintln(app.stdout, SuccessStyle.Render("pruned")+" "+k)
			}
			if len(removed) == 0 {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("Nothing to prune."))
			}
			return nil
		},
	}
}

func cacheEntryNotFound(key string, keys []string) error {
	ctx := issue.NewErrorContext().
		WithOperation("clean cache entry").
		WithResource(key).
		WithSuggestion("Run 'bmad cache list' to see the cached keys").
		WithIssue(issue.CacheEntryNotFoundId)
	if len(keys) == 0 {
		ctx.WithSuggestion("The cache is empty")
	}
	return ctx.Wrap(fmt.Errorf("%w: no entry %q", remote.ErrInvalidKey, key)).BuildError()
}
