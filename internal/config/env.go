// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"mvdan.cc/sh/v3/shell"

	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/platform"
)

const (
	// RootEnvVar names an installation (or git URL) searched as the env origin.
	RootEnvVar = "BMAD_ROOT"
	// DotEnvFile is read from the project directory for RootEnvVar.
	DotEnvFile = ".env"
)

// ExpandPath expands a leading "~" and $VAR / ${VAR} references. Git URLs
// and @shortcuts are returned unchanged apart from variable expansion.
func ExpandPath(p string, getenv func(string) string) (string, error) {
	if p == "" {
		return "", nil
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		home := getenv("HOME")
		if home == "" {
			home = getenv(platform.HomeEnvVar())
		}
		if home == "" {
			if h, err := os.UserHomeDir(); err == nil {
				home = h
			}
		}
		p = home + p[1:]
	}
	if !strings.Contains(p, "$") {
		return p, nil
	}
	out, err := shell.Expand(p, getenv)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", p, err)
	}
	return out, nil
}

// expandPaths expands every path-valued field in place.
func expandPaths(cfg *Config, getenv func(string) string) error {
	var errs []error
	expand := func(p *string) {
		out, err := ExpandPath(*p, getenv)
		if err != nil {
			errs = append(errs, err)
			return
		}
		*p = out
	}
	expand(&cfg.ProjectRoot)
	expand(&cfg.UserRoot)
	expand(&cfg.PackageRoot)
	expand(&cfg.Cache.Dir)
	for i := range cfg.SearchPaths {
		expand(&cfg.SearchPaths[i])
	}
	for i := range cfg.Remotes {
		expand(&cfg.Remotes[i])
	}
	return errors.Join(errs...)
}

// RootFromEnv returns BMAD_ROOT from the process environment, falling back
// to the project's .env file. The process environment is never modified.
// A missing or unreadable .env yields "".
func RootFromEnv(projectDir string, getenv func(string) string) string {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv(RootEnvVar)); v != "" {
		return v
	}
	if projectDir == "" {
		return ""
	}
	vals, err := godotenv.Read(filepath.Join(projectDir, DotEnvFile))
	if err != nil {
		return ""
	}
	v := strings.TrimSpace(vals[RootEnvVar])
	if v == "" || filepath.IsAbs(v) || strings.HasPrefix(v, "~") || strings.Contains(v, "@") || strings.HasPrefix(v, "git+") {
		return v
	}
	// Relative .env paths are relative to the project.
	return filepath.Join(projectDir, v)
}
