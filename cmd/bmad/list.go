// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mkellerman/bmad-mcp-server-sub003/internal/catalog"
	"github.com/mkellerman/bmad-mcp-server-sub003/internal/engine"
	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/types"
)

type listFlags struct {
	all       bool
	conflicts bool
}

func newListCommand(app *App, flags *rootFlags) *cobra.Command {
	lf := &listFlags{}
	cmd := &cobra.Command{
		Use:   "list [agents|workflows|tasks]",
		Short: "List resolved agents, workflows and tasks",
		Long: `List the winning record of every resource, grouped by kind.

With --all every candidate of every installation is listed instead of only
the winners. With --conflicts only names provided by more than one
installation are shown, best candidate first.`,
		Example: `  bmad list
  bmad list agents
  bmad list workflows --all
  bmad list --conflicts`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"agents", "workflows", "tasks"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := types.AllResourceKinds()
			if len(args) == 1 {
				kind, err := types.ParseResourceKind(args[0])
				if err != nil {
					return err
				}
				kinds = []types.ResourceKind{kind}
			}

			s, err := app.newSession(cmd.Context(), flags)
			if err != nil {
				return err
			}
			snap, err := app.discover(cmd.Context(), s)
			if err != nil {
				return err
			}

			if lf.conflicts {
				renderConflicts(app, snap.Resolution(), kinds)
				return nil
			}
			for _, kind := range kinds {
				records := snap.Resolution().Records(kind)
				if lf.all {
					records = snap.Pools.Records(kind)
				}
				renderRecords(app, snap, kind, records)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&lf.all, "all", "a", false, "list every candidate instead of the winners")
	cmd.Flags().BoolVar(&lf.conflicts, "conflicts", false, "list only names provided by more than one installation")
	cmd.MarkFlagsMutuallyExclusive("all", "conflicts")
	return cmd
}

func renderRecords(app *App, snap *engine.Snapshot, kind types.ResourceKind, records []*types.Record) {
	fmt.Fprintln(app.stdout, sectionStyle.Render(fmt.Sprintf("%s (%d)", kind.Dir(), len(records))))
	if len(records) == 0 {
		fmt.Fprintln(app.stdout, "  "+SubtitleStyle.Render("none"))
		return
	}
	t := newTable("NAME", "TITLE", "STATUS", "ORIGIN", "PATH")
	for _, r := range records {
		title := r.DisplayName
		if title == "" {
			title = "-"
		}
		t.Row(CmdStyle.Render(qualifiedName(r)), title, statusText(r.Status), originLabel(snap, r.Origin), r.AbsPath)
	}
	fmt.Fprintln(app.stdout, t.Render())
}

func renderConflicts(app *App, res *catalog.Resolution, kinds []types.ResourceKind) {
	found := false
	for _, c := range res.Conflicts {
		if !c.Contested() || !containsKind(kinds, c.Key.Kind) {
			continue
		}
		found = true
		fmt.Fprintln(app.stdout, sectionStyle.Render(c.Key.String()+" ("+strconv.Itoa(len(c.Candidates))+" candidates)"))
		for _, r := range c.Candidates {
			marker := "  "
			if r == c.Winner {
				marker = SuccessStyle.Render("*") + " "
			}
			fmt.Fprintf(app.stdout, "%s%s  %s  %s\n", marker, r.Origin, statusText(r.Status), r.AbsPath)
		}
	}
	if !found {
		fmt.Fprintln(app.stdout, SubtitleStyle.Render("No conflicts."))
	}
}

// originLabel returns "kind#n" where n is the origin's 1-based position.
func originLabel(snap *engine.Snapshot, o *types.Origin) string {
	for i, cand := range snap.Origins {
		if cand == o {
			return o.Kind.String() + "#" + strconv.Itoa(i+1)
		}
	}
	return o.Kind.String()
}

func containsKind(kinds []types.ResourceKind, k types.ResourceKind) bool {
	for _, cand := range kinds {
		if cand == k {
			return true
		}
	}
	return false
}
