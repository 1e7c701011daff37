// SPDX-License-Identifier: MPL-2.0

package types

type (
	// Record is one inventoried resource. Records are rebuilt from scratch on
	// every run and never mutated after their inventory is built.
	Record struct {
		Kind        ResourceKind
		Module      string
		Name        string
		DisplayName string
		Description string
		// ModulePath is relative to the installation root's module directory
		// parent, e.g. "bmm/agents/analyst.md".
		ModulePath string
		// RelativePath is the path as the manifest writes it, e.g.
		// "bmad/bmm/agents/analyst.md" or ".bmad-core/agents/dev.md".
		RelativePath string
		AbsPath      string
		Exists       bool
		Status       RecordStatus
		Source       RecordSource
		Origin       *Origin
	}

	// ModuleInfo describes one module of one origin.
	ModuleInfo struct {
		Name       string
		Path       string
		ConfigPath string
		HasConfig  bool
		// ConfigValid is false when config.yaml exists but does not parse.
		ConfigValid bool
		Version     string
		// Error is a module-level problem that did not block inventory,
		// such as a missing config.yaml.
		Error  string
		Origin *Origin
	}
)

// Key identifies a record within one origin's inventory.
func (r *Record) Key() RecordKey {
	return RecordKey{Kind: r.Kind, Module: r.Module, Name: r.Name, ModulePath: r.ModulePath}
}

// RecordKey is the identity of a record inside one inventory.
type RecordKey struct {
	Kind       ResourceKind
	Module     string
	Name       string
	ModulePath string
}
