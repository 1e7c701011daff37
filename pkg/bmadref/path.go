// SPDX-License-Identifier: MPL-2.0

package bmadref

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/types"
)

const (
	// ProjectRootPlaceholder is the token resource content uses for the project directory.
	ProjectRootPlaceholder = "{project-root}"
	// InstallDirName is the conventional directory name of a v6 installation.
	InstallDirName = "bmad"
	// LegacyDirPrefix prefixes the hidden directories of a v4 installation
	// (".bmad-core", ".bmad-<expansion-pack>").
	LegacyDirPrefix = ".bmad-"
	// CoreModule is the module every installation ships.
	CoreModule = "core"
)

const (
	// ShapeRelative is a bare path resolved against every module by priority.
	ShapeRelative PathShape = iota
	// ShapePlaceholder is a path starting with {project-root}.
	ShapePlaceholder
	// ShapeDotFlat is a legacy path starting with a .bmad-<module> directory.
	ShapeDotFlat
	// ShapeAbsolute is an absolute filesystem path.
	ShapeAbsolute
)

var (
	// ErrEmptyReference is returned for blank references.
	ErrEmptyReference = errors.New("empty reference")
	// ErrPathTraversal is returned for references containing ".." segments.
	ErrPathTraversal = errors.New("reference escapes its root")
)

type (
	// PathShape is the syntactic form of a file reference.
	PathShape int

	// PathRef is a decomposed file reference.
	PathRef struct {
		// Raw is the reference exactly as given.
		Raw string
		// Shape is the syntactic form the reference was written in.
		Shape PathShape
		// Format is the layout the reference implies, FormatUnknown for bare paths.
		Format types.Format
		// Module is the module named by the reference, empty when none is implied.
		Module string
		// Leaf is the path inside the module (e.g. "agents/analyst.md").
		Leaf string
	}
)

// String returns a readable name for the shape.
func (s PathShape) String() string {
	switch s {
	case ShapePlaceholder:
		return "placeholder"
	case ShapeDotFlat:
		return "dot-flat"
	case ShapeAbsolute:
		return "absolute"
	default:
		return "relative"
	}
}

// ModulePath returns the module-relative path ("<module>/<leaf>"), or just the
// leaf when the reference names no module.
func (r PathRef) ModulePath() string {
	if r.Module == "" {
		return r.Leaf
	}
	if r.Leaf == "" {
		return r.Module
	}
	return r.Module + "/" + r.Leaf
}

// ParsePath decomposes a file reference into module, leaf path and format.
//
//	{project-root}/bmad/bmm/agents/pm.md -> module "bmm", leaf "agents/pm.md", v6
//	.bmad-core/agents/dev.md              -> module "core", leaf "agents/dev.md", v4
//	bmm/workflows/prd/workflow.yaml       -> module "bmm", leaf "workflows/prd/workflow.yaml"
//	workflows/prd/workflow.yaml           -> no module, leaf as given
func ParsePath(ref string) (PathRef, error) {
	raw := ref
	s := strings.ReplaceAll(strings.TrimSpace(ref), `\`, "/")
	if s == "" {
		return PathRef{}, ErrEmptyReference
	}

	shape := ShapeRelative
	switch {
	case strings.HasPrefix(s, ProjectRootPlaceholder):
		shape = ShapePlaceholder
		s = strings.TrimPrefix(s, ProjectRootPlaceholder)
	case strings.HasPrefix(s, "/") || hasDriveLetter(s):
		shape = ShapeAbsolute
	}

	segs := splitClean(s)
	for _, seg := range segs {
		if seg == ".." {
			return PathRef{}, fmt.Errorf("%w: %q", ErrPathTraversal, raw)
		}
	}
	if len(segs) == 0 {
		return PathRef{}, fmt.Errorf("%w: %q", ErrEmptyReference, raw)
	}

	if shape == ShapeAbsolute {
		// Anchor on the last installation directory in the path; anything
		// before it is machine-specific.
		anchor := -1
		for i, seg := range segs {
			if seg == InstallDirName || strings.HasPrefix(seg, LegacyDirPrefix) {
				anchor = i
			}
		}
		if anchor < 0 {
			return PathRef{Raw: raw, Shape: shape, Leaf: strings.Join(segs, "/")}, nil
		}
		segs = segs[anchor:]
	}

	r := PathRef{Raw: raw, Shape: shape}
	first := segs[0]
	switch {
	case strings.HasPrefix(first, LegacyDirPrefix):
		if shape == ShapeRelative {
			r.Shape = ShapeDotFlat
		}
		r.Format = types.FormatV4
		r.Module = strings.TrimPrefix(first, LegacyDirPrefix)
		r.Leaf = strings.Join(segs[1:], "/")
	case first == InstallDirName && len(segs) > 1:
		r.Format = types.FormatV6
		r.Module = segs[1]
		r.Leaf = strings.Join(segs[2:], "/")
	case IsResourceDir(first):
		r.Leaf = strings.Join(segs, "/")
	case len(segs) >= 3 && IsResourceDir(segs[1]):
		r.Format = types.FormatV6
		r.Module = first
		r.Leaf = strings.Join(segs[1:], "/")
	default:
		r.Leaf = strings.Join(segs, "/")
	}

	return r, nil
}

// IsResourceDir reports whether name is one of the conventional resource
// directories (agents, workflows, tasks).
func IsResourceDir(name string) bool {
	for _, k := range types.AllResourceKinds() {
		if name == k.Dir() {
			return true
		}
	}
	return false
}

// LegacyModule returns the module name of a v4 directory name: ".bmad-core"
// yields "core", ".bmad-2d-phaser-game-dev" yields "2d-phaser-game-dev". The
// second result is false when dir is not a legacy installation directory.
func LegacyModule(dir string) (string, bool) {
	mod, ok := strings.CutPrefix(dir, LegacyDirPrefix)
	if !ok || mod == "" {
		return "", false
	}
	return mod, true
}

// LegacyDir returns the directory name for a v4 module or expansion-pack name.
// Pack names may be given with or without their "bmad-" prefix.
func LegacyDir(pack string) string {
	pack = strings.TrimPrefix(strings.TrimPrefix(pack, "."), "bmad-")
	return LegacyDirPrefix + pack
}

// HasSuffixPath reports whether p equals suffix or ends with "/"+suffix, so
// "bmm/agents/pm.md" matches "agents/pm.md" but "xagents/pm.md" does not.
func HasSuffixPath(p, suffix string) bool {
	if suffix == "" {
		return false
	}
	if p == suffix {
		return true
	}
	return strings.HasSuffix(p, "/"+suffix)
}

// splitClean splits s into segments, dropping empty and "." segments.
// ".." segments are kept so callers can reject them.
func splitClean(s string) []string {
	var out []string
	for _, p := range strings.Split(s, "/") {
		if p != "" && p != "." {
			out = append(out, p)
		}
	}
	return out
}

func hasDriveLetter(s string) bool {
	return len(s) >= 3 && s[1] == ':' && s[2] == '/' &&
		((s[0] >= 'a' && s[0] <= 'z') || (s[0] >= 'A' && s[0] <= 'Z'))
}
