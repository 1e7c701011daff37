// SPDX-License-Identifier: MPL-2.0

package inventory

import (
	"errors"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mkellerman/bmad-mcp-server-sub003/internal/detect"
	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/bmadref"
	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/types"
)

var csvManifests = []struct {
	kind types.ResourceKind
	file string
}{
	{types.ResourceAgent, "agent-manifest.csv"},
	{types.ResourceWorkflow, "workflow-manifest.csv"},
	{types.ResourceTask, "task-manifest.csv"},
}

func buildV6(origin *types.Origin) (*Inventory, error) {
	det, ok := detect.DetectV6(origin.Root)
	if !ok {
		return nil, &ManifestError{Path: filepath.Join(origin.Root, detect.ConfigDirName, detect.ManifestFileName), Err: errors.New(det.Reason)}
	}

	modules := det.Modules
	if len(modules) == 0 && dirExists(filepath.Join(origin.Root, bmadref.CoreModule)) {
		modules = []string{bmadref.CoreModule}
	}

	c := newCollector(origin)
	for _, m := range modules {
		mi := moduleInfo(origin, m, filepath.Join(origin.Root, m), moduleConfigName, true)
		if mi.Version == "" {
			mi.Version = det.ModuleVersions[m]
		}
		c.inv.Modules = append(c.inv.Modules, mi)
	}

	scanned := append([]string(nil), modules...)
	for _, mf := range csvManifests {
		rows, err := readManifestCSV(filepath.Join(det.ManifestDir, mf.file))
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			r, ok := v6Record(c, origin, mf.kind, row)
			if !ok {
				continue
			}
			c.add(r)
			if !slices.Contains(scanned, r.Module) {
				scanned = append(scanned, r.Module)
			}
		}
	}

	rootName := filepath.Base(origin.Root)
	for _, m := range scanned {
		moduleDir := filepath.Join(origin.Root, m)
		for _, f := range scanModule(moduleDir, layoutDirWorkflows) {
			modulePath := m + "/" + f.rel
			if c.isDeclared(f.kind, modulePath, f.kind == types.ResourceWorkflow) {
				continue
			}
			c.add(orphanRecord(origin, f, m, modulePath, rootName+"/"+modulePath,
				filepath.Join(moduleDir, filepath.FromSlash(f.rel))))
		}
	}
	return c.inv, nil
}

// v6Record turns one CSV row into a record. Row paths are written relative to
// the project ("bmad/bmm/agents/pm.md"); the installation directory prefix is
// stripped to get the module path.
func v6Record(c *collector, origin *types.Origin, kind types.ResourceKind, row manifestRow) (*types.Record, bool) {
	raw := row.get("path")
	if raw == "" {
		c.warn("%s manifest row %q has no path", kind, row.get("name"))
		return nil, false
	}
	ref, err := bmadref.ParsePath(raw)
	if err != nil {
		c.warn("%s manifest row %q: %v", kind, row.get("name"), err)
		return nil, false
	}

	module := ref.Module
	if module == "" {
		module = row.get("module")
	}
	if module == "" {
		module = bmadref.CoreModule
	}
	if strings.ContainsAny(module, `/\`) || module == ".." || module == "." {
		c.warn("%s manifest row %q: invalid module %q", kind, row.get("name"), module)
		return nil, false
	}

	modulePath := ref.ModulePath()
	if ref.Module == "" {
		modulePath = module + "/" + ref.Leaf
	}

	name := row.get("name")
	if name == "" {
		if kind == types.ResourceWorkflow {
			name = path.Base(path.Dir(modulePath))
		} else {
			name = stem(modulePath)
		}
	}

	relPath := strings.TrimPrefix(strings.TrimPrefix(filepath.ToSlash(raw), bmadref.ProjectRootPlaceholder), "/")
	r := manifestRecord(origin, kind, module, name, modulePath, relPath,
		filepath.Join(origin.Root, filepath.FromSlash(modulePath)))
	r.DisplayName = row.get("displayName", "title", "name")
	r.Description = row.get("description", "title")
	return r, true
}
