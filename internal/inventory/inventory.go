// SPDX-License-Identifier: MPL-2.0

package inventory

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/types"
)

// ErrManifest is the sentinel wrapped by ManifestError.
var ErrManifest = errors.New("manifest unreadable")

type (
	// Inventory is everything one origin provides.
	Inventory struct {
		Origin    *types.Origin
		Modules   []types.ModuleInfo
		Agents    []*types.Record
		Workflows []*types.Record
		Tasks     []*types.Record
		// Warnings are row-level problems that did not stop the build,
		// such as a manifest row with an unusable path.
		Warnings []string
	}

	// Builder builds the inventory of one origin.
	Builder interface {
		Build(origin *types.Origin) (*Inventory, error)
	}

	// BuilderFunc adapts a function to Builder.
	BuilderFunc func(origin *types.Origin) (*Inventory, error)

	// ManifestError reports a manifest that exists but cannot be read.
	ManifestError struct {
		Path string
		Err  error
	}

	// collector accumulates records while enforcing the per-origin identity
	// invariant and remembering which paths the manifest declared.
	collector struct {
		inv      *Inventory
		keys     map[types.RecordKey]bool
		declared map[types.ResourceKind]map[string]bool
	}
)

// Build implements Builder.
func (f BuilderFunc) Build(origin *types.Origin) (*Inventory, error) { return f(origin) }

// Default dispatches on the origin's format.
var Default Builder = BuilderFunc(Build)

// Build inventories origin with the builder for its format.
func Build(origin *types.Origin) (*Inventory, error) {
	if origin == nil {
		return nil, errors.New("nil origin")
	}
	if info, err := os.Stat(origin.Root); err != nil {
		return nil, fmt.Errorf("origin root %s: %w", origin.Root, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("origin root %s is not a directory", origin.Root)
	}

	switch origin.Format {
	case types.FormatV6:
		return buildV6(origin)
	case types.FormatV4:
		return buildV4(origin)
	case types.FormatCustom:
		return buildCustom(origin)
	default:
		return nil, &types.InvalidFormatError{Value: origin.Format}
	}
}

// Records returns agents, workflows and tasks in one slice.
func (inv *Inventory) Records() []*types.Record {
	out := make([]*types.Record, 0, len(inv.Agents)+len(inv.Workflows)+len(inv.Tasks))
	out = append(out, inv.Agents...)
	out = append(out, inv.Workflows...)
	return append(out, inv.Tasks...)
}

// Error implements the error interface.
func (e *ManifestError) Error() string {
	return fmt.Sprintf("manifest %s: %v", e.Path, e.Err)
}

// Unwrap returns both ErrManifest and the cause.
func (e *ManifestError) Unwrap() []error { return []error{ErrManifest, e.Err} }

func newCollector(origin *types.Origin) *collector {
	return &collector{
		inv:      &Inventory{Origin: origin},
		keys:     make(map[types.RecordKey]bool),
		declared: make(map[types.ResourceKind]map[string]bool),
	}
}

// add appends r unless an identical record was already added. Manifest
// records are always added before the scan, so they win over filesystem ones.
func (c *collector) add(r *types.Record) {
	k := r.Key()
	if c.keys[k] {
		return
	}
	c.keys[k] = true
	if r.Source == types.SourceManifest {
		c.declare(r.Kind, r.ModulePath)
	}
	switch r.Kind {
	case types.ResourceAgent:
		c.inv.Agents = append(c.inv.Agents, r)
	case types.ResourceWorkflow:
		c.inv.Workflows = append(c.inv.Workflows, r)
	case types.ResourceTask:
		c.inv.Tasks = append(c.inv.Tasks, r)
	}
}

func (c *collector) declare(kind types.ResourceKind, modulePath string) {
	m, ok := c.declared[kind]
	if !ok {
		m = make(map[string]bool)
		c.declared[kind] = m
	}
	m[modulePath] = true
	if kind == types.ResourceWorkflow {
		// Workflows are identified by directory; any definition file in a
		// declared directory is the declared workflow.
		m[path.Dir(modulePath)+"/"] = true
	}
}

// isDeclared reports whether a scanned path is covered by a manifest entry.
func (c *collector) isDeclared(kind types.ResourceKind, modulePath string, byDir bool) bool {
	m := c.declared[kind]
	if m[modulePath] {
		return true
	}
	return byDir && m[path.Dir(modulePath)+"/"]
}

func (c *collector) warn(format string, args ...any) {
	c.inv.Warnings = append(c.inv.Warnings, fmt.Sprintf(format, args...))
}

// manifestRecord builds a declared record and stats its file.
func manifestRecord(origin *types.Origin, kind types.ResourceKind, module, name, modulePath, relPath, absPath string) *types.Record {
	exists := fileExists(absPath)
	status := types.StatusVerified
	if !exists {
		status = types.StatusMissing
	}
	return &types.Record{
		Kind:         kind,
		Module:       module,
		Name:         name,
		ModulePath:   modulePath,
		RelativePath: relPath,
		AbsPath:      absPath,
		Exists:       exists,
		Status:       status,
		Source:       types.SourceManifest,
		Origin:       origin,
	}
}

// orphanRecord builds a record for a file no manifest declares.
func orphanRecord(origin *types.Origin, f found, module, modulePath, relPath, absPath string) *types.Record {
	return &types.Record{
		Kind:         f.kind,
		Module:       module,
		Name:         f.name,
		DisplayName:  f.displayName,
		Description:  f.description,
		ModulePath:   modulePath,
		RelativePath: relPath,
		AbsPath:      absPath,
		Exists:       true,
		Status:       types.StatusOrphan,
		Source:       types.SourceFilesystem,
		Origin:       origin,
	}
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

func dirExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

// stem returns the file name without its extension.
func stem(p string) string {
	base := path.Base(filepath.ToSlash(p))
	return strings.TrimSuffix(base, path.Ext(base))
}
