// SPDX-License-Identifier: MPL-2.0

package inventory

import (
	"path/filepath"

	"github.com/mkellerman/bmad-mcp-server-sub003/internal/detect"
	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/types"
)

// buildCustom inventories a tree with no manifest. Every file found is an
// undeclared-on-disk record. When the root itself holds agents/ or
// workflows/, it is a single module named after the directory.
func buildCustom(origin *types.Origin) (*Inventory, error) {
	det := detect.DetectFilesystem(origin.Root)
	single := len(det.Modules) == 1 && det.Modules[0] == filepath.Base(origin.Root)

	c := newCollector(origin)
	for _, m := range det.Modules {
		moduleDir := filepath.Join(origin.Root, m)
		prefix := m + "/"
		if single {
			moduleDir = origin.Root
			prefix = ""
		}
		c.inv.Modules = append(c.inv.Modules, moduleInfo(origin, m, moduleDir, moduleConfigName, false))

		for _, f := range scanModule(moduleDir, layoutDirWorkflows) {
			c.add(orphanRecord(origin, f, m, m+"/"+f.rel, prefix+f.rel,
				filepath.Join(moduleDir, filepath.FromSlash(f.rel))))
		}
	}
	return c.inv, nil
}
