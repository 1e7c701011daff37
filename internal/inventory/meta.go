// SPDX-License-Identifier: MPL-2.0

package inventory

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mkellerman/bmad-mcp-server-sub003/internal/detect"
	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/types"
)

const moduleConfigName = "config.yaml"

type workflowDoc struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// v4 workflows nest their metadata under a workflow key.
	Workflow *struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	} `yaml:"workflow"`
}

type moduleConfig struct {
	Version string `yaml:"version"`
}

// readWorkflowMeta extracts name and description from a workflow definition.
// YAML files are parsed whole; markdown files through their front matter.
// Any failure yields empty strings.
func readWorkflowMeta(moduleDir, rel string) (name, description string) {
	data, err := os.ReadFile(filepath.Join(moduleDir, filepath.FromSlash(rel)))
	if err != nil {
		return "", ""
	}
	switch path.Ext(rel) {
	case ".yaml", ".yml":
	case ".md":
		data = frontMatter(data)
		if data == nil {
			return "", ""
		}
	default:
		return "", ""
	}

	var doc workflowDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", ""
	}
	if doc.Workflow != nil {
		return strings.TrimSpace(doc.Workflow.Name), strings.TrimSpace(doc.Workflow.Description)
	}
	return strings.TrimSpace(doc.Name), strings.TrimSpace(doc.Description)
}

// frontMatter returns the YAML between leading "---" fences, or nil.
func frontMatter(data []byte) []byte {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	rest, ok := bytes.CutPrefix(data, []byte("---\n"))
	if !ok {
		return nil
	}
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return nil
	}
	return rest[:end+1]
}

// moduleInfo describes the module at dir, reading configName if present.
// requireConfig controls whether a missing config is a module-level error.
func moduleInfo(origin *types.Origin, name, dir, configName string, requireConfig bool) types.ModuleInfo {
	mi := types.ModuleInfo{
		Name:       name,
		Path:       dir,
		ConfigPath: filepath.Join(dir, configName),
		Origin:     origin,
	}
	data, err := os.ReadFile(mi.ConfigPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if !dirExists(dir) {
			mi.Error = "module directory not found"
		} else if requireConfig {
			mi.Error = configName + " not found"
		}
		return mi
	case err != nil:
		mi.HasConfig = true
		mi.Error = fmt.Sprintf("%s: %v", configName, err)
		return mi
	}

	mi.HasConfig = true
	var cfg moduleConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		mi.Error = fmt.Sprintf("%s: %v", configName, err)
		return mi
	}
	mi.ConfigValid = true
	mi.Version = detect.NormalizeVersion(cfg.Version)
	return mi
}
