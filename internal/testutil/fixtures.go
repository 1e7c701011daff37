// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
)

const (
	// Both declares the resource in the manifest and writes it to disk.
	Both Presence = iota
	// DeclaredOnly declares the resource without writing its file.
	DeclaredOnly
	// DiskOnly writes the file without declaring it.
	DiskOnly
)

type (
	// Presence selects whether a fixture resource is declared, on disk, or both.
	Presence int

	// V6Fixture lays out a v6 installation (<project>/bmad with _cfg manifests).
	// Add resources, then call Write to flush the manifests.
	V6Fixture struct {
		t       testing.TB
		Root    string
		Version string
		modules []string

		agents    [][]string
		workflows [][]string
		tasks     [][]string
	}

	// V4Fixture lays out a v4 installation (<project>/.bmad-core with
	// install-manifest.yaml). Add files, then call Write.
	V4Fixture struct {
		t       testing.TB
		Project string
		Root    string
		Version string
		files   []string
		packs   []string
	}
)

// NewV6Fixture prepares <project>/bmad with one directory and config.yaml per module.
func NewV6Fixture(t testing.TB, project string, modules ...string) *V6Fixture {
	t.Helper()
	f := &V6Fixture{t: t, Root: filepath.Join(project, "bmad"), Version: "6.0.0-alpha.0", modules: modules}
	MustMkdirAll(t, filepath.Join(f.Root, "_cfg"), 0o755)
	for _, m := range modules {
		MustWriteFile(t, filepath.Join(f.Root, m, "config.yaml"), fmt.Sprintf("module: %s\nversion: 1.0.0\n", m))
	}
	return f
}

// Agent adds agents/<name>.md to module.
func (f *V6Fixture) Agent(module, name string, p Presence) *V6Fixture {
	f.t.Helper()
	rel := fmt.Sprintf("%s/agents/%s.md", module, name)
	if p != DeclaredOnly {
		MustWriteFile(f.t, filepath.Join(f.Root, rel), fmt.Sprintf("# %s\n\nAgent %s of %s.\n", name, name, module))
	}
	if p != DiskOnly {
		f.agents = append(f.agents, []string{name, titleCase(name), titleCase(name) + " Agent", module, "bmad/" + rel})
	}
	return f
}

// Workflow adds workflows/<name>/workflow.yaml to module.
func (f *V6Fixture) Workflow(module, name string, p Presence) *V6Fixture {
	f.t.Helper()
	rel := fmt.Sprintf("%s/workflows/%s/workflow.yaml", module, name)
	if p != DeclaredOnly {
		MustWriteFile(f.t, filepath.Join(f.Root, rel), fmt.Sprintf("name: %s\ndescription: %s workflow\n", name, name))
	}
	if p != DiskOnly {
		f.workflows = append(f.workflows, []string{name, name + " workflow", module, "bmad/" + rel})
	}
	return f
}

// Task adds tasks/<name>.xml to module.
func (f *V6Fixture) Task(module, name string, p Presence) *V6Fixture {
	f.t.Helper()
	rel := fmt.Sprintf("%s/tasks/%s.xml", module, name)
	if p != DeclaredOnly {
		MustWriteFile(f.t, filepath.Join(f.Root, rel), fmt.Sprintf("<task id=%q/>\n", name))
	}
	if p != DiskOnly {
		f.tasks = append(f.tasks, []string{name, titleCase(name), name + " task", module, "bmad/" + rel})
	}
	return f
}

// Write flushes manifest.yaml and the three CSV manifests.
func (f *V6Fixture) Write() *V6Fixture {
	f.t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "installation:\n  version: %s\nmodules:\n", f.Version)
	for _, m := range f.modules {
		fmt.Fprintf(&b, "  - %s\n", m)
	}
	cfg := filepath.Join(f.Root, "_cfg")
	MustWriteFile(f.t, filepath.Join(cfg, "manifest.yaml"), b.String())
	writeCSV(f.t, filepath.Join(cfg, "agent-manifest.csv"), []string{"name", "displayName", "title", "module", "path"}, f.agents)
	writeCSV(f.t, filepath.Join(cfg, "workflow-manifest.csv"), []string{"name", "description", "module", "path"}, f.workflows)
	writeCSV(f.t, filepath.Join(cfg, "task-manifest.csv"), []string{"name", "displayName", "description", "module", "path"}, f.tasks)
	return f
}

// NewV4Fixture prepares <project>/.bmad-core.
func NewV4Fixture(t testing.TB, project string) *V4Fixture {
	t.Helper()
	f := &V4Fixture{t: t, Project: project, Root: filepath.Join(project, ".bmad-core"), Version: "4.44.0"}
	MustWriteFile(t, filepath.Join(f.Root, "core-config.yaml"), "markdownExploder: true\n")
	return f
}

// File adds a project-relative file such as ".bmad-core/agents/dev.md".
func (f *V4Fixture) File(rel string, p Presence) *V4Fixture {
	f.t.Helper()
	if p != DeclaredOnly {
		MustWriteFile(f.t, filepath.Join(f.Project, filepath.FromSlash(rel)), "# "+filepath.Base(rel)+"\n")
	}
	if p != DiskOnly {
		f.files = append(f.files, rel)
	}
	return f
}

// Pack registers an expansion pack and creates its sibling directory.
func (f *V4Fixture) Pack(name string) *V4Fixture {
	f.t.Helper()
	f.packs = append(f.packs, name)
	dir := filepath.Join(f.Project, "."+strings.TrimPrefix(name, "."))
	if !strings.HasPrefix(name, "bmad-") {
		dir = filepath.Join(f.Project, ".bmad-"+name)
	}
	MustWriteFile(f.t, filepath.Join(dir, "config.yaml"), fmt.Sprintf("name: %s\nversion: 1.2.0\n", name))
	return f
}

// Write flushes install-manifest.yaml.
func (f *V4Fixture) Write() *V4Fixture {
	f.t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "version: %s\ninstall_type: full\n", f.Version)
	b.WriteString("expansion_packs:")
	if len(f.packs) == 0 {
		b.WriteString(" []")
	}
	b.WriteString("\n")
	for _, p := range f.packs {
		fmt.Fprintf(&b, "  - %s\n", p)
	}
	b.WriteString("files:\n")
	for _, rel := range f.files {
		fmt.Fprintf(&b, "  - path: %s\n    hash: 0000\n    modified: false\n", rel)
	}
	MustWriteFile(f.t, filepath.Join(f.Root, "install-manifest.yaml"), b.String())
	return f
}

func writeCSV(t testing.TB, path string, header []string, rows [][]string) {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		t.Fatalf("csv header: %v", err)
	}
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("csv rows: %v", err)
	}
	MustWriteFile(t, path, buf.String())
}

func titleCase(name string) string {
	parts := strings.Split(name, "-")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}
