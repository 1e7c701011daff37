// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"slices"

	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/types"
)

type (
	// Sources lists every place an installation may live. Any entry may be a
	// git URL or @shortcut instead of a local path.
	Sources struct {
		// Project is the project directory (usually the working directory).
		Project string
		// CLI holds paths given on invocation.
		CLI []string
		// Env is the BMAD_ROOT value, if set.
		Env string
		// User is the user-default directory (~/.bmad).
		User string
		// Package is the installation bundled with the tool.
		Package string
		// Remotes holds configured remote repositories.
		Remotes []string
	}

	// Location is one place to search.
	Location struct {
		Kind types.OriginKind
		// Path is a local directory, a git URL or an @shortcut.
		Path string
	}
)

// Locations flattens s into search order: kinds follow precedence, and kinds
// absent from precedence are appended in default order. Empty entries and
// exact duplicates of an earlier location are dropped.
func (s Sources) Locations(precedence []types.OriginKind) []Location {
	order := slices.Clone(precedence)
	for _, k := range types.DefaultPrecedence() {
		if !slices.Contains(order, k) {
			order = append(order, k)
		}
	}

	var out []Location
	seen := make(map[string]bool)
	add := func(kind types.OriginKind, paths ...string) {
		for _, p := range paths {
			if p == "" || seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, Location{Kind: kind, Path: p})
		}
	}
	for _, kind := range order {
		switch kind {
		case types.OriginProject:
			add(kind, s.Project)
		case types.OriginCLI:
			add(kind, s.CLI...)
		case types.OriginEnv:
			add(kind, s.Env)
		case types.OriginUser:
			add(kind, s.User)
		case types.OriginPackage:
			add(kind, s.Package)
		case types.OriginRemote:
			add(kind, s.Remotes...)
		}
	}
	return out
}

// explicit reports whether a missing location deserves a diagnostic.
// Project, user and package locations are probed silently.
func (l Location) explicit() bool {
	switch l.Kind {
	case types.OriginCLI, types.OriginEnv, types.OriginRemote:
		return true
	default:
		return false
	}
}
