// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/bmadref"
	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/types"
)

// maxSuggestions caps fuzzy suggestions in a NotFoundError.
const maxSuggestions = 3

// ErrNotFound is the sentinel wrapped by NotFoundError.
var ErrNotFound = errors.New("resource not found")

type (
	// Catalog answers queries over aggregated pools under one policy.
	Catalog struct {
		pools  *Pools
		policy Policy
	}

	// NotFoundError reports a query with no match. Suggestions hold close
	// names, a case-insensitive match first when there is one.
	NotFoundError struct {
		Kind        types.ResourceKind
		Query       string
		Suggestions []string
	}
)

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	what := "resource"
	if e.Kind != "" {
		what = string(e.Kind)
	}
	msg := fmt.Sprintf("%s %q not found", what, e.Query)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(quoteAll(e.Suggestions), ", "))
	}
	return msg
}

// Unwrap returns ErrNotFound for errors.Is() compatibility.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// New returns a catalog over pools. A zero policy means DefaultPolicy.
func New(pools *Pools, policy Policy) *Catalog {
	if pools == nil {
		pools = &Pools{}
	}
	if len(policy.Precedence) == 0 && len(policy.SourcePreference) == 0 {
		def := DefaultPolicy()
		policy.Precedence, policy.SourcePreference = def.Precedence, def.SourcePreference
	}
	return &Catalog{pools: pools, policy: policy}
}

// Pools returns the underlying pools.
func (c *Catalog) Pools() *Pools { return c.pools }

// Policy returns the catalog's policy.
func (c *Catalog) Policy() Policy { return c.policy }

// Resolve resolves every pool under the catalog's policy.
func (c *Catalog) Resolve() *Resolution { return Resolve(c.pools, c.policy) }

// FindByName looks up one resource by "name" or "module/name". A module
// qualifier restricts matching to that module; a name present only in other
// modules is reported as not found with those modules as suggestions.
func (c *Catalog) FindByName(kind types.ResourceKind, query string) (*Conflict, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	ref, err := bmadref.ParseName(query)
	if err != nil {
		return nil, err
	}

	p := c.policy
	p.ModuleQualified = ref.Module != ""
	var matches []*types.Record
	for _, r := range c.pools.Records(kind) {
		if !p.inScope(r) || r.Name != ref.Name {
			continue
		}
		if ref.Module != "" && r.Module != ref.Module {
			continue
		}
		matches = append(matches, r)
	}
	if len(matches) == 0 {
		return nil, c.notFound(kind, ref)
	}
	conflict := p.conflict(p.Key(matches[0]), matches)
	return &conflict, nil
}

func (c *Catalog) notFound(kind types.ResourceKind, ref bmadref.NameRef) *NotFoundError {
	var names, qualified []string
	for _, r := range c.pools.Records(kind) {
		if !c.policy.inScope(r) {
			continue
		}
		names = append(names, r.Name)
		qualified = append(qualified, r.Module+"/"+r.Name)
	}
	slices.Sort(names)
	names = slices.Compact(names)
	slices.Sort(qualified)
	qualified = slices.Compact(qualified)

	e := &NotFoundError{Kind: kind, Query: ref.String()}
	if ref.Module != "" {
		// Same name in another module, then near misses of the full form.
		for _, q := range qualified {
			if strings.HasSuffix(q, "/"+ref.Name) {
				e.Suggestions = append(e.Suggestions, q)
			}
		}
		if m, ok := bmadref.CaseMismatch(ref.String(), qualified); ok && !slices.Contains(e.Suggestions, m) {
			e.Suggestions = append(e.Suggestions, m)
		}
		return e
	}

	if m, ok := bmadref.CaseMismatch(ref.Name, names); ok {
		e.Suggestions = append(e.Suggestions, m)
	}
	for _, s := range bmadref.Suggestions(ref.Name, names, maxSuggestions) {
		if !slices.Contains(e.Suggestions, s) {
			e.Suggestions = append(e.Suggestions, s)
		}
	}
	return e
}

// ResolveFilePath maps a file reference to the absolute path of the winning
// record. Accepted shapes are "{project-root}/bmad/<module>/...",
// ".bmad-<pack>/..." and bare relative paths searched across all modules.
// Only records present on disk match.
func (c *Catalog) ResolveFilePath(ref string) (string, *Conflict, error) {
	parsed, err := bmadref.ParsePath(ref)
	if err != nil {
		return "", nil, err
	}
	suffix := parsed.ModulePath()
	abs := ""
	if parsed.Shape == bmadref.ShapeAbsolute {
		abs = filepath.Clean(ref)
	}

	var matches []*types.Record
	for _, kind := range types.AllResourceKinds() {
		for _, r := range c.pools.Records(kind) {
			if !r.Exists || !c.policy.inScope(r) {
				continue
			}
			if bmadref.HasSuffixPath(r.ModulePath, suffix) ||
				bmadref.HasSuffixPath(r.RelativePath, suffix) ||
				(abs != "" && r.AbsPath == abs) {
				matches = append(matches, r)
			}
		}
	}
	if len(matches) == 0 {
		return "", nil, &NotFoundError{Query: ref}
	}

	conflict := c.policy.conflict(GroupKey{Name: suffix}, matches)
	return conflict.Winner.AbsPath, &conflict, nil
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
