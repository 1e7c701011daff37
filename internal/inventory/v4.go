// SPDX-License-Identifier: MPL-2.0

package inventory

import (
	"errors"
	"path"
	"path/filepath"
	"strings"

	"github.com/mkellerman/bmad-mcp-server-sub003/internal/detect"
	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/bmadref"
	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/types"
)

const v4CoreConfigName = "core-config.yaml"

// v4Module is one directory contributing resources to a v4 origin: the core
// directory itself or an expansion pack beside it.
type v4Module struct {
	name string
	dir  string
}

func buildV4(origin *types.Origin) (*Inventory, error) {
	det, ok := detect.DetectV4(origin.Root)
	if !ok {
		return nil, &ManifestError{Path: filepath.Join(origin.Root, detect.LegacyManifestFileName), Err: errors.New(det.Reason)}
	}

	projectDir := filepath.Dir(origin.Root)
	coreName, ok := bmadref.LegacyModule(filepath.Base(origin.Root))
	if !ok {
		coreName = bmadref.CoreModule
	}

	c := newCollector(origin)
	core := moduleInfo(origin, coreName, origin.Root, v4CoreConfigName, false)
	if core.Version == "" {
		core.Version = det.Version
	}
	c.inv.Modules = append(c.inv.Modules, core)

	mods := []v4Module{{name: coreName, dir: origin.Root}}
	for _, p := range det.Packs {
		dir := filepath.Join(projectDir, bmadref.LegacyDir(p))
		name, _ := bmadref.LegacyModule(filepath.Base(dir))
		c.inv.Modules = append(c.inv.Modules, moduleInfo(origin, name, dir, moduleConfigName, true))
		mods = append(mods, v4Module{name: name, dir: dir})
	}

	for _, file := range det.Files {
		r, ok := v4Record(c, origin, projectDir, coreName, file)
		if ok {
			c.add(r)
		}
	}

	for _, m := range mods {
		base := filepath.Base(m.dir)
		for _, f := range scanModule(m.dir, layoutFileWorkflows) {
			modulePath := m.name + "/" + f.rel
			if c.isDeclared(f.kind, modulePath, false) {
				continue
			}
			c.add(orphanRecord(origin, f, m.name, modulePath, base+"/"+f.rel,
				filepath.Join(m.dir, filepath.FromSlash(f.rel))))
		}
	}
	return c.inv, nil
}

// v4Record turns one install-manifest entry into a record. Only entries under
// agents/, workflows/ or tasks/ are resources; templates, checklists and data
// files are skipped. Entries with a .bmad-<x>/ prefix are project-relative;
// bare entries are relative to the core directory.
func v4Record(c *collector, origin *types.Origin, projectDir, coreName, file string) (*types.Record, bool) {
	ref, err := bmadref.ParsePath(file)
	if err != nil {
		c.warn("install manifest entry %q: %v", file, err)
		return nil, false
	}

	kindDir, _, _ := strings.Cut(ref.Leaf, "/")
	kind, err := types.ParseResourceKind(kindDir)
	if err != nil || !strings.Contains(ref.Leaf, "/") {
		return nil, false
	}

	module := ref.Module
	absPath := filepath.Join(projectDir, filepath.FromSlash(file))
	relPath := filepath.ToSlash(file)
	if ref.Format != types.FormatV4 {
		module = coreName
		absPath = filepath.Join(origin.Root, filepath.FromSlash(ref.Leaf))
		relPath = filepath.Base(origin.Root) + "/" + ref.Leaf
	}
	modulePath := module + "/" + ref.Leaf

	r := manifestRecord(origin, kind, module, stem(ref.Leaf), modulePath, relPath, absPath)
	if kind == types.ResourceWorkflow && r.Exists {
		r.DisplayName, r.Description = readWorkflowMeta(filepath.Dir(absPath), path.Base(ref.Leaf))
	}
	if r.DisplayName == "" {
		r.DisplayName = r.Name
	}
	return r, true
}
