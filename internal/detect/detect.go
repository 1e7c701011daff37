// SPDX-License-Identifier: MPL-2.0

package detect

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/types"
)

const (
	// ConfigDirName is the v6 configuration directory inside an installation root.
	ConfigDirName = "_cfg"
	// ManifestFileName is the v6 manifest inside ConfigDirName.
	ManifestFileName = "manifest.yaml"
	// LegacyManifestFileName is the v4 flat manifest.
	LegacyManifestFileName = "install-manifest.yaml"
)

type (
	// Result is the outcome of classifying one directory.
	Result struct {
		Format types.Format
		// ManifestPath is the manifest file that classified the directory.
		ManifestPath string
		// ManifestDir is the directory holding manifests (<dir>/_cfg for v6,
		// <dir> for v4).
		ManifestDir string
		// Version is the installation version declared by the manifest.
		Version string
		// Modules lists module names for v6 and custom installations.
		Modules []string
		// ModuleVersions holds per-module versions when the manifest declares them.
		ModuleVersions map[string]string
		// Packs lists v4 expansion pack names.
		Packs []string
		// Files lists v4 manifest file paths in manifest order.
		Files []string
		// Reason explains a FormatUnknown result.
		Reason string
	}

	// manifestV6 mirrors _cfg/manifest.yaml. Modules may be plain names or
	// mappings with a name and version, so it is decoded lazily.
	manifestV6 struct {
		Installation struct {
			Version string `yaml:"version"`
		} `yaml:"installation"`
		Version string      `yaml:"version"`
		Modules []yaml.Node `yaml:"modules"`
	}

	manifestV4 struct {
		Version        string      `yaml:"version"`
		ExpansionPacks []string    `yaml:"expansion_packs"`
		Files          []yaml.Node `yaml:"files"`
	}

	moduleEntry struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	}

	fileEntry struct {
		Path string `yaml:"path"`
	}
)

// Detect classifies dir. v6 is tried first, then v4. Custom trees are
// reported by IsCustom, not by Detect, since they carry no manifest.
func Detect(dir string) Result {
	if r, ok := DetectV6(dir); ok {
		return r
	}
	if r, ok := DetectV4(dir); ok {
		return r
	}
	return Result{Format: types.FormatUnknown, Reason: "no manifest found"}
}

// DetectV6 reports whether dir holds a parseable _cfg/manifest.yaml.
func DetectV6(dir string) (Result, bool) {
	cfgDir := filepath.Join(dir, ConfigDirName)
	if !isDir(cfgDir) {
		return Result{Format: types.FormatUnknown, Reason: ConfigDirName + " directory not found"}, false
	}
	path := filepath.Join(cfgDir, ManifestFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Format: types.FormatUnknown, Reason: reason(path, err)}, false
	}

	var m manifestV6
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Result{Format: types.FormatUnknown, Reason: fmt.Sprintf("parse %s: %v", path, err)}, false
	}

	r := Result{
		Format:         types.FormatV6,
		ManifestPath:   path,
		ManifestDir:    cfgDir,
		Version:        NormalizeVersion(firstNonEmpty(m.Installation.Version, m.Version)),
		ModuleVersions: make(map[string]string),
	}
	for i := range m.Modules {
		name, version := decodeModule(&m.Modules[i])
		if name == "" {
			continue
		}
		r.Modules = appendUnique(r.Modules, name)
		if version != "" {
			r.ModuleVersions[name] = NormalizeVersion(version)
		}
	}
	if len(r.Modules) == 0 {
		// Older installers wrote no module list; fall back to what is on disk.
		r.Modules = DetectFilesystem(dir).Modules
	}
	return r, true
}

// DetectV4 reports whether dir holds a parseable install-manifest.yaml.
func DetectV4(dir string) (Result, bool) {
	path := filepath.Join(dir, LegacyManifestFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Format: types.FormatUnknown, Reason: reason(path, err)}, false
	}

	var m manifestV4
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Result{Format: types.FormatUnknown, Reason: fmt.Sprintf("parse %s: %v", path, err)}, false
	}

	r := Result{
		Format:       types.FormatV4,
		ManifestPath: path,
		ManifestDir:  dir,
		Version:      NormalizeVersion(m.Version),
	}
	for _, p := range m.ExpansionPacks {
		if p = strings.TrimSpace(p); p != "" {
			r.Packs = appendUnique(r.Packs, p)
		}
	}
	for i := range m.Files {
		if f := decodeFile(&m.Files[i]); f != "" {
			r.Files = append(r.Files, f)
		}
	}
	return r, true
}

// DetectFilesystem infers modules from directory layout alone. Every child
// directory holding agents/, workflows/ or tasks/ is a module; if dir itself
// holds them it is a single module named after dir.
func DetectFilesystem(dir string) Result {
	r := Result{Format: types.FormatCustom}
	if hasResourceDirs(dir) {
		r.Modules = []string{filepath.Base(dir)}
		return r
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		r.Format = types.FormatUnknown
		r.Reason = err.Error()
		return r
	}
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			continue
		}
		if hasResourceDirs(filepath.Join(dir, name)) {
			r.Modules = append(r.Modules, name)
		}
	}
	sort.Strings(r.Modules)
	return r
}

// IsCustom reports whether dir carries the custom marker: an agents/ or
// workflows/ subdirectory and no manifest of either format.
func IsCustom(dir string) bool {
	if !isDir(filepath.Join(dir, "agents")) && !isDir(filepath.Join(dir, "workflows")) {
		return false
	}
	return !fileExists(filepath.Join(dir, ConfigDirName, ManifestFileName)) &&
		!fileExists(filepath.Join(dir, LegacyManifestFileName))
}

// NormalizeVersion returns a canonical semantic version ("6.0.0-alpha.0") when
// v parses as one, and v trimmed otherwise.
func NormalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	sv := v
	if !strings.HasPrefix(sv, "v") {
		sv = "v" + sv
	}
	if !semver.IsValid(sv) {
		return v
	}
	return strings.TrimPrefix(semver.Canonical(sv), "v")
}

func decodeModule(n *yaml.Node) (name, version string) {
	if n.Kind == yaml.ScalarNode {
		return strings.TrimSpace(n.Value), ""
	}
	var e moduleEntry
	if err := n.Decode(&e); err != nil {
		return "", ""
	}
	return strings.TrimSpace(e.Name), strings.TrimSpace(e.Version)
}

func decodeFile(n *yaml.Node) string {
	if n.Kind == yaml.ScalarNode {
		return strings.TrimSpace(n.Value)
	}
	var e fileEntry
	if err := n.Decode(&e); err != nil {
		return ""
	}
	return strings.TrimSpace(e.Path)
}

func hasResourceDirs(dir string) bool {
	for _, k := range types.AllResourceKinds() {
		if isDir(filepath.Join(dir, k.Dir())) {
			return true
		}
	}
	return false
}

func reason(path string, err error) string {
	if errors.Is(err, os.ErrNotExist) {
		return filepath.Base(path) + " not found"
	}
	return err.Error()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
