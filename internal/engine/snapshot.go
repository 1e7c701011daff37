// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mkellerman/bmad-mcp-server-sub003/internal/catalog"
	"github.com/mkellerman/bmad-mcp-server-sub003/internal/discovery"
	"github.com/mkellerman/bmad-mcp-server-sub003/internal/issue"
	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/bmadref"
	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/types"
)

// Snapshot is the result of one Discover call. It is immutable; rediscover
// to observe changes on disk.
type Snapshot struct {
	Origins     []*types.Origin
	Attempts    []discovery.Attempt
	Diagnostics []discovery.Diagnostic
	// Pools and Catalog are nil when no installation was found.
	Pools   *catalog.Pools
	Catalog *catalog.Catalog
}

// Resolution returns the winner of every group and all conflicts.
func (s *Snapshot) Resolution() *catalog.Resolution {
	return s.catalog().Resolve()
}

// FindByName looks up kind by "name" or "module/name". A miss returns an
// *issue.ActionableError wrapping *catalog.NotFoundError.
func (s *Snapshot) FindByName(kind types.ResourceKind, query string) (*catalog.Conflict, error) {
	c, err := s.catalog().FindByName(kind, query)
	if err != nil {
		return nil, lookupError("find "+kind.String(), query, err)
	}
	return c, nil
}

// ResolveFilePath maps a path reference to an absolute file. A miss returns
// an *issue.ActionableError wrapping *catalog.NotFoundError.
func (s *Snapshot) ResolveFilePath(ref string) (string, *catalog.Conflict, error) {
	p, c, err := s.catalog().ResolveFilePath(ref)
	if err != nil {
		return "", nil, lookupError("resolve file", ref, err)
	}
	return p, c, nil
}

// Warnings returns the diagnostics of warning severity.
func (s *Snapshot) Warnings() []discovery.Diagnostic {
	var out []discovery.Diagnostic
	for _, d := range s.Diagnostics {
		if d.Severity == discovery.SeverityWarning {
			out = append(out, d)
		}
	}
	return out
}

func (s *Snapshot) catalog() *catalog.Catalog {
	if s.Catalog == nil {
		return catalog.New(s.Pools, catalog.Policy{})
	}
	return s.Catalog
}

func lookupError(op, query string, err error) error {
	ctx := issue.NewErrorContext().WithOperation(op).WithResource(query)

	var nf *catalog.NotFoundError
	switch {
	case errors.As(err, &nf):
		for _, sug := range nf.Suggestions {
			ctx.WithSuggestion("Did you mean '" + sug + "'?")
		}
		if hint := nameHint(nf); hint != "" {
			ctx.WithSuggestion(hint)
		}
		if nf.Kind == "" {
			ctx.WithSuggestion("Paths are matched against module-relative paths, e.g. 'bmm/agents/pm.md'").
				WithIssue(issue.FileReferenceNotFoundId)
		} else {
			ctx.WithSuggestion("Run 'bmad list " + nf.Kind.Dir() + "' to see what is available").
				WithIssue(issue.ResourceNotFoundId)
		}
	case errors.Is(err, bmadref.ErrMalformedName), errors.Is(err, bmadref.ErrEmptyReference),
		errors.Is(err, bmadref.ErrPathTraversal), errors.Is(err, types.ErrInvalidResourceKind):
		ctx.WithSuggestion("Names are lowercase with dashes, optionally qualified as 'module/name'").
			WithIssue(issue.InvalidReferenceId)
	}
	return ctx.Wrap(err).BuildError()
}

// nameHint explains why a missed name could never match an installed file.
func nameHint(nf *catalog.NotFoundError) string {
	if nf.Kind == "" {
		return ""
	}
	name := nf.Query
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	var invalid *bmadref.InvalidNameError
	if errors.As(bmadref.ValidateName(nf.Kind, name), &invalid) {
		return fmt.Sprintf("'%s' is not a valid %s name: %s", name, nf.Kind, invalid.Reason)
	}
	return ""
}
