// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mkellerman/bmad-mcp-server-sub003/internal/config"
	"github.com/mkellerman/bmad-mcp-server-sub003/internal/discovery"
	"github.com/mkellerman/bmad-mcp-server-sub003/internal/issue"
	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/types"
)

// errorHandler prints command errors. Actionable errors show their
// suggestions; --verbose adds the error chain and the linked guide.
func errorHandler(flags *rootFlags) func(io.Writer, fang.Styles, error) {
	return func(w io.Writer, _ fang.Styles, err error) {
		fmt.Fprintln(w, ErrorStyle.Render("Error:")+" "+formatErrorForDisplay(err, flags.verbose))

		var ae *issue.ActionableError
		if !flags.verbose || !errors.As(err, &ae) || ae.Issue() == nil {
			return
		}
		rendered, renderErr := ae.Issue().Render("dark")
		if renderErr != nil {
			slog.Warn("failed to render issue guide", "issueID", ae.IssueId, "error", renderErr)
			return
		}
		fmt.Fprint(w, rendered)
	}
}

// formatErrorForDisplay formats an error for user display. ActionableErrors
// use their Format method; verbose mode shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// renderDiagnostics writes error diagnostics always and warnings only in
// verbose mode; otherwise a one-line warning count is printed.
func renderDiagnostics(w io.Writer, diags []discovery.Diagnostic, verbose bool) {
	warnings := 0
	for _, d := range diags {
		switch {
		case d.Severity == discovery.SeverityError:
			fmt.Fprintln(w, ErrorStyle.Render("error:")+" "+diagnosticText(d))
		case verbose:
			fmt.Fprintln(w, WarningStyle.Render("warning:")+" "+diagnosticText(d))
		default:
			warnings++
		}
	}
	if warnings > 0 {
		fmt.Fprintln(w, WarningStyle.Render(fmt.Sprintf("%d warning(s); run with --verbose for details", warnings)))
	}
}

func diagnosticText(d discovery.Diagnostic) string {
	msg := d.Message
	if d.Path != "" {
		msg += " (" + d.Path + ")"
	}
	if d.Cause != nil {
		msg += ": " + d.Cause.Error()
	}
	return msg + " " + VerboseStyle.Render("["+d.Code.String()+"]")
}

// newTable returns a borderless table with styled headers.
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.HiddenBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return TitleStyle.PaddingRight(2)
			}
			return lipgloss.NewStyle().PaddingRight(2)
		})
}

func statusText(s types.RecordStatus) string {
	switch s {
	case types.StatusVerified:
		return SuccessStyle.Render(s.String())
	case types.StatusMissing:
		return ErrorStyle.Render(s.String())
	default:
		return WarningStyle.Render(s.String())
	}
}

func qualifiedName(r *types.Record) string {
	if r.Module == "" {
		return r.Name
	}
	return r.Module + "/" + r.Name
}

// markdownWidth is the word-wrap width for rendered resource files.
const markdownWidth = 100

// renderMarkdown renders content with the glamour style matching scheme.
func renderMarkdown(content string, scheme config.ColorScheme) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(markdownWidth)}
	switch scheme {
	case config.ColorSchemeDark, config.ColorSchemeLight:
		opts = append(opts, glamour.WithStandardStyle(scheme.String()))
	default:
		opts = append(opts, glamour.WithAutoStyle())
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := r.Render(content)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}
