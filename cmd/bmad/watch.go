// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkellerman/bmad-mcp-server-sub003/internal/discovery"
	"github.com/mkellerman/bmad-mcp-server-sub003/internal/engine"
	"github.com/mkellerman/bmad-mcp-server-sub003/internal/remote"
	"github.com/mkellerman/bmad-mcp-server-sub003/internal/watch"
)

type watchFlags struct {
	debounce time.Duration
	clear    bool
	patterns []string
	ignore   []string
}

func newWatchCommand(app *App, flags *rootFlags) *cobra.Command {
	wf := &watchFlags{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rediscover whenever an installation changes",
		Long: `Watch every local installation root and the project directory, and run
discovery again whenever a manifest, module config or resource file changes.
A summary is printed after each run. Press Ctrl+C to stop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := app.newSession(cmd.Context(), flags)
			if err != nil {
				return err
			}
			snap, err := app.discover(cmd.Context(), s)
			if err != nil && !errors.Is(err, discovery.ErrNoOrigins) {
				return err
			}
			printSummary(app, snap, nil)

			w, err := watch.New(watch.Config{
				Roots:       watchRoots(s, snap),
				Patterns:    wf.patterns,
				Ignore:      wf.ignore,
				Debounce:    wf.debounce,
				ClearScreen: wf.clear,
				Stdout:      app.stdout,
				Logger:      s.logger,
				OnChange: func(ctx context.Context, changed []string) error {
					next, derr := app.discover(ctx, s)
					if derr != nil && !errors.Is(derr, discovery.ErrNoOrigins) {
						return derr
					}
					printSummary(app, next, changed)
					return nil
				},
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stderr, SubtitleStyle.Render(fmt.Sprintf("Watching %d location(s); press Ctrl+C to stop", len(w.Roots()))))
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().DurationVar(&wf.debounce, "debounce", 0, "quiet period before rediscovering (default 500ms)")
	cmd.Flags().BoolVar(&wf.clear, "clear", false, "clear the screen before each run")
	cmd.Flags().StringSliceVar(&wf.patterns, "pattern", nil, "glob selecting files that trigger a run (repeatable)")
	cmd.Flags().StringSliceVar(&wf.ignore, "ignore", nil, "glob of files to ignore (repeatable)")
	return cmd
}

// watchRoots returns the project directory plus the root of every origin
// that is not a remote checkout.
func watchRoots(s *session, snap *engine.Snapshot) []string {
	var roots []string
	if p := s.engine.Sources().Project; p != "" {
		roots = append(roots, p)
	}
	for _, o := range snap.Origins {
		if remote.IsGitURL(o.Location) {
			continue
		}
		roots = append(roots, o.Root)
	}
	return roots
}

func printSummary(app *App, snap *engine.Snapshot, changed []string) {
	stamp := time.Now().Format(time.TimeOnly)
	if len(changed) > 0 {
		fmt.Fprintf(app.stdout, "%s %d file(s) changed\n", VerboseStyle.Render(stamp), len(changed))
	}
	if len(snap.Origins) == 0 {
		fmt.Fprintln(app.stdout, WarningStyle.Render(stamp+" no installation found"))
		return
	}
	var agents, workflows, tasks int
	if snap.Pools != nil {
		agents, workflows, tasks = len(snap.Pools.Agents), len(snap.Pools.Workflows), len(snap.Pools.Tasks)
	}
	fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render(stamp),
		fmt.Sprintf("%d installation(s): %d agents, %d workflows, %d tasks", len(snap.Origins), agents, workflows, tasks))
}
