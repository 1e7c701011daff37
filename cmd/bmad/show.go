// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mkellerman/bmad-mcp-server-sub003/internal/issue"
	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/types"
)

type showFlags struct {
	kind string
	raw  bool
}

func newShowCommand(app *App, flags *rootFlags) *cobra.Command {
	sf := &showFlags{}
	cmd := &cobra.Command{
		Use:   "show <name|path>",
		Short: "Print the contents of the winning file",
		Long: `Print the file that "find" or "resolve" would return. An argument with a
file extension is resolved as a path reference; anything else is looked up
by name. Markdown is rendered for the terminal unless --raw is given.`,
		Example: `  bmad show analyst
  bmad show prd --kind workflow --raw
  bmad show core/tasks/workflow.xml`,
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

			var path string
			if filepath.Ext(args[0]) != "" {
				if path, _, err = snap.ResolveFilePath(args[0]); err != nil {
					return err
				}
			} else {
				kind, kerr := types.ParseResourceKind(sf.kind)
				if kerr != nil {
					return kerr
				}
				c, ferr := snap.FindByName(kind, args[0])
				if ferr != nil {
					return ferr
				}
				path = c.Winner.AbsPath
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return issue.NewErrorContext().
					WithOperation("read resource").
					WithResource(path).
					WithSuggestion("The manifest declares this file but it is missing; reinstall the module").
					WithIssue(issue.FileReferenceNotFoundId).
					Wrap(err).
					BuildError()
			}

			content := string(data)
			if sf.raw || !strings.EqualFold(filepath.Ext(path), ".md") {
				fmt.Fprint(app.stdout, content)
				return nil
			}
			rendered, err := renderMarkdown(content, s.cfg.UI.ColorScheme)
			if err != nil {
				s.logger.Warn("markdown rendering failed; printing raw", "path", path, "error", err)
				rendered = content
			}
			fmt.Fprint(app.stdout, rendered)
			return nil
		},
	}
	cmd.Flags().StringVarP(&sf.kind, "kind", "k", string(types.ResourceAgent), "resource kind for name lookups")
	cmd.Flags().BoolVar(&sf.raw, "raw", false, "print the file without markdown rendering")
	return cmd
}
