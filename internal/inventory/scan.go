// SPDX-License-Identifier: MPL-2.0

package inventory

import (
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/types"
)

const (
	// layoutDirWorkflows identifies a workflow by the directory holding its
	// definition file (v6, custom).
	layoutDirWorkflows layout = iota
	// layoutFileWorkflows treats each workflow file as one workflow (v4).
	layoutFileWorkflows
)

// workflowFiles are the definition file names that make a directory a workflow.
var workflowFiles = []string{"workflow.yaml", "workflow.md"}

type (
	layout int

	// found is one resource file discovered inside a module directory.
	found struct {
		kind types.ResourceKind
		// rel is the slash path inside the module, e.g. "agents/pm.md".
		rel         string
		name        string
		displayName string
		description string
	}
)

var scanPatterns = map[layout]map[types.ResourceKind]string{
	layoutDirWorkflows: {
		types.ResourceAgent:    "agents/**/*.md",
		types.ResourceWorkflow: "workflows/**/workflow.{yaml,md}",
		types.ResourceTask:     "tasks/**/*.{xml,md}",
	},
	layoutFileWorkflows: {
		types.ResourceAgent:    "agents/**/*.md",
		types.ResourceWorkflow: "workflows/**/*.{yaml,yml,md}",
		types.ResourceTask:     "tasks/**/*.md",
	},
}

// scanModule lists the resource files under moduleDir, sorted by kind and path.
func scanModule(moduleDir string, l layout) []found {
	fsys := os.DirFS(moduleDir)
	var out []found
	for _, kind := range types.AllResourceKinds() {
		matches, err := doublestar.Glob(fsys, scanPatterns[l][kind], doublestar.WithFilesOnly())
		if err != nil {
			continue
		}
		sort.Strings(matches)

		seenDirs := make(map[string]bool)
		for _, rel := range matches {
			if strings.EqualFold(path.Base(rel), "README.md") {
				continue
			}
			f := found{kind: kind, rel: rel, name: stem(rel)}
			if kind == types.ResourceWorkflow {
				if l == layoutDirWorkflows {
					dir := path.Dir(rel)
					if seenDirs[dir] {
						continue
					}
					seenDirs[dir] = true
					rel = preferredWorkflowFile(fsys, dir)
					f.rel = rel
					f.name = path.Base(dir)
				}
				f.displayName, f.description = readWorkflowMeta(moduleDir, rel)
				if f.displayName == "" {
					f.displayName = f.name
				}
			}
			out = append(out, f)
		}
	}
	return out
}

// preferredWorkflowFile returns the first existing definition file in dir,
// in workflowFiles order.
func preferredWorkflowFile(fsys fs.FS, dir string) string {
	for _, name := range workflowFiles {
		p := path.Join(dir, name)
		if _, err := fs.Stat(fsys, p); err == nil {
			return p
		}
	}
	return path.Join(dir, workflowFiles[0])
}
