// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for bmad.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// newRootCommand builds the command tree. A fresh tree per invocation keeps
// flag state out of package globals.
func newRootCommand(app *App, flags *rootFlags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bmad",
		Short: "Discover and resolve BMAD agents, workflows and tasks",
		Long: TitleStyle.Render("bmad") + SubtitleStyle.Render(" - Discover and resolve BMAD resources") + `

bmad finds every BMAD installation reachable from the current project,
the --root paths, ` + "`BMAD_ROOT`" + `, the user directory (~/.bmad) and configured
git remotes, and merges their agents, workflows and tasks into one catalog.

` + SubtitleStyle.Render("Examples:") + `
  bmad discover                 Show every installation found
  bmad list agents              List the winning agent of every name
  bmad find bmm/analyst         Locate one agent
  bmad resolve bmm/agents/pm.md Resolve a file reference
  bmad --root @bmad list        Include the upstream repository`,
		SilenceUsage: true,
	}
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output and debug logging")
	pf.StringVar(&flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/bmad/config.cue)")
	pf.StringArrayVarP(&flags.roots, "root", "r", nil, "installation path or git URL to search (repeatable)")
	pf.StringVar(&flags.project, "project", "", "project directory (default is the working directory)")
	pf.BoolVar(&flags.offline, "offline", false, "skip git remotes")

	rootCmd.AddCommand(
		newDiscoverCommand(app, flags),
		newListCommand(app, flags),
		newFindCommand(app, flags),
		newResolveCommand(app, flags),
		newShowCommand(app, flags),
		newWatchCommand(app, flags),
		newCacheCommand(app, flags),
		newConfigCommand(app, flags),
	)
	return rootCmd
}

// Run executes the CLI with args and returns the process exit code.
func Run(ctx context.Context, app *App, args []string) int {
	flags := &rootFlags{}
	rootCmd := newRootCommand(app, flags)
	rootCmd.SetArgs(args)
	err := fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(errorHandler(flags)),
	)
	return exitCode(err)
}

// Execute runs the CLI with the process arguments. This is called by
// main.main().
func Execute() {
	os.Exit(Main())
}

// Main runs the CLI against the real process environment and returns the
// exit code.
func Main() int {
	return Run(context.Background(), NewApp(Dependencies{}), os.Args[1:])
}
