// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkellerman/bmad-mcp-server-sub003/internal/catalog"
	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/types"
)

type findFlags struct {
	kind       string
	candidates bool
}

func newFindCommand(app *App, flags *rootFlags) *cobra.Command {
	ff := &findFlags{}
	cmd := &cobra.Command{
		Use:   "find <name>",
		Short: "Print the file of the winning agent, workflow or task",
		Long: `Look up a resource by "name" or "module/name" and print the absolute
path of the winning file. A miss exits with status 2 and suggests close names.`,
		Example: `  bmad find analyst
  bmad find bmm/pm
  bmad find prd --kind workflow --candidates`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := types.ParseResourceKind(ff.kind)
			if err != nil {
				return err
			}
			s, err := app.newSession(cmd.Context(), flags)
			if err != nil {
				return err
			}
			snap, err := app.discover(cmd.Context(), s)
			if err != nil {
				return err
			}
			c, err := snap.FindByName(kind, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, c.Winner.AbsPath)
			if ff.candidates || s.verbose {
				renderCandidates(app, c)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&ff.kind, "kind", "k", string(types.ResourceAgent), "resource kind (agent, workflow or task)")
	cmd.Flags().BoolVar(&ff.candidates, "candidates", false, "also list every competing candidate on stderr")
	return cmd
}

func newResolveCommand(app *App, flags *rootFlags) *cobra.Command {
	var candidates bool
	cmd := &cobra.Command{
		Use:   "resolve <path>",
		Short: "Map a file reference to an absolute path",
		Long: `Resolve a reference such as "{project-root}/bmad/bmm/agents/pm.md",
"bmm/workflows/prd/workflow.yaml" or "core/tasks/workflow.xml" to the
absolute path of the winning file.`,
		Example: `  bmad resolve bmm/agents/pm.md
  bmad resolve '{project-root}/bmad/core/tasks/workflow.xml'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.newSession(cmd.Context(), flags)
			if err != nil {
				return err
			}
			snap, err := app.discover(cmd.Context(), s)
			if err != nil {
				return err
			}
			path, c, err := snap.ResolveFilePath(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, path)
			if (candidates || s.verbose) && c != nil {
				renderCandidates(app, c)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&candidates, "candidates", false, "also list every competing candidate on stderr")
	return cmd
}

func renderCandidates(app *App, c *catalog.Conflict) {
	fmt.Fprintln(app.stderr, TitleStyle.Render(c.Key.String()))
	t := newTable("", "ORIGIN", "SOURCE", "STATUS", "PATH")
	for _, r := range c.Candidates {
		marker := ""
		if r == c.Winner {
			marker = "*"
		}
		t.Row(marker, r.Origin.String(), r.Source.String(), statusText(r.Status), r.AbsPath)
	}
	fmt.Fprintln(app.stderr, t.Render())
}
