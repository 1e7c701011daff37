// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mkellerman/bmad-mcp-server-sub003/internal/detect"
	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/bmadref"
	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/types"
)

const (
	// DefaultMaxDepth is how far below a location FindRoots searches.
	DefaultMaxDepth = 3

	brandToken = "bmad"
)

// conventionalDirs may be entered below the first level even without the
// brand token in their name.
var conventionalDirs = map[string]bool{
	"bmad":         true,
	"src":          true,
	"packages":     true,
	"modules":      true,
	"node_modules": true,
}

// Root is one directory classified as holding exactly one installation.
type Root struct {
	Path      string
	Format    types.Format
	Depth     int
	Detection detect.Result
}

// FindRoots searches start for installation roots, never ascending above it
// and never descending into a root once classified. A missing or
// non-directory start yields nil. Negative maxDepth means DefaultMaxDepth.
//
// Results are ordered by depth, then v6 before v4 before custom, then path.
// v4 expansion-pack directories named by a v4 root's manifest are folded
// into that root rather than reported separately.
func FindRoots(start string, maxDepth int) []Root {
	if maxDepth < 0 {
		maxDepth = DefaultMaxDepth
	}
	info, err := os.Stat(start)
	if err != nil || !info.IsDir() {
		return nil
	}

	var roots []Root
	var visit func(dir string, depth int)
	visit = func(dir string, depth int) {
		if r, ok := classify(dir); ok {
			r.Depth = depth
			roots = append(roots, r)
			return
		}
		if depth >= maxDepth {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			slog.Debug("skipping unreadable directory", "dir", dir, "error", err)
			return
		}
		for _, e := range entries {
			// DirEntry.IsDir is false for symlinks, so links are never followed.
			if !e.IsDir() || !descend(e.Name(), depth) {
				continue
			}
			visit(filepath.Join(dir, e.Name()), depth+1)
		}
	}
	visit(start, 0)

	roots = foldExpansionPacks(roots)
	sort.SliceStable(roots, func(i, j int) bool {
		a, b := roots[i], roots[j]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		if a.Format.Rank() != b.Format.Rank() {
			return a.Format.Rank() < b.Format.Rank()
		}
		return a.Path < b.Path
	})
	return roots
}

// classify tests the markers in order: v6, v4, custom.
func classify(dir string) (Root, bool) {
	if r, ok := detect.DetectV6(dir); ok {
		return Root{Path: dir, Format: types.FormatV6, Detection: r}, true
	}
	if r, ok := detect.DetectV4(dir); ok {
		return Root{Path: dir, Format: types.FormatV4, Detection: r}, true
	}
	if detect.IsCustom(dir) {
		return Root{Path: dir, Format: types.FormatCustom, Detection: detect.DetectFilesystem(dir)}, true
	}
	return Root{}, false
}

// descend decides whether a child directory found at parentDepth is searched.
func descend(name string, parentDepth int) bool {
	branded := strings.Contains(strings.ToLower(name), brandToken)
	if strings.HasPrefix(name, ".") && !branded {
		return false
	}
	if parentDepth == 0 {
		return true
	}
	return branded || conventionalDirs[name]
}

func foldExpansionPacks(roots []Root) []Root {
	packDirs := make(map[string]bool)
	for _, r := range roots {
		if r.Format != types.FormatV4 {
			continue
		}
		parent := filepath.Dir(r.Path)
		for _, p := range r.Detection.Packs {
			packDirs[filepath.Join(parent, bmadref.LegacyDir(p))] = true
		}
	}
	if len(packDirs) == 0 {
		return roots
	}
	kept := roots[:0]
	for _, r := range roots {
		if packDirs[r.Path] {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}
