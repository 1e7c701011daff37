// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mkellerman/bmad-mcp-server-sub003/internal/discovery"
	"github.com/mkellerman/bmad-mcp-server-sub003/internal/engine"
)

func newDiscoverCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "List every BMAD installation found",
		Long: `List every BMAD installation in precedence order.

With --verbose every searched location is listed too, including the ones
that held nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := app.newSession(cmd.Context(), flags)
			if err != nil {
				return err
			}
			snap, err := app.discover(cmd.Context(), s)
			if s.verbose {
				renderAttempts(app, snap.Attempts)
			}
			if err != nil {
				return err
			}
			renderOrigins(app, snap)
			return nil
		},
	}
}

func renderOrigins(app *App, snap *engine.Snapshot) {
	fmt.Fprintln(app.stdout, TitleStyle.Render("Installations"))
	t := newTable("#", "KIND", "FORMAT", "VERSION", "NAME", "ROOT")
	for i, o := range snap.Origins {
		version := o.InstalledVersion
		if version == "" {
			version = "-"
		}
		t.Row(strconv.Itoa(i+1), o.Kind.String(), o.Format.String(), version, o.DisplayName, o.Root)
	}
	fmt.Fprintln(app.stdout, t.Render())

	if snap.Pools == nil {
		return
	}
	fmt.Fprintf(app.stdout, "%d agents, %d workflows, %d tasks across %d modules\n",
		len(snap.Pools.Agents), len(snap.Pools.Workflows), len(snap.Pools.Tasks), len(snap.Pools.Modules))
}

func renderAttempts(app *App, attempts []discovery.Attempt) {
	fmt.Fprintln(app.stderr, TitleStyle.Render("Searched"))
	t := newTable("KIND", "LOCATION", "STATUS", "ROOTS")
	for _, a := range attempts {
		status := string(a.Status)
		if a.Err != nil {
			status += ": " + a.Err.Error()
		}
		loc := a.Location.Path
		if a.Path != "" && a.Path != loc {
			loc += " -> " + a.Path
		}
		t.Row(a.Location.Kind.String(), loc, status, strconv.Itoa(a.Roots))
	}
	fmt.Fprintln(app.stderr, t.Render())
}
