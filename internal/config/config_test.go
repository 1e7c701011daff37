// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/mkellerman/bmad-mcp-server-sub003/internal/issue"
	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/types"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.MaxDepth != DefaultMaxDepth {
		t.Errorf("MaxDepth = %d, want %d", cfg.MaxDepth, DefaultMaxDepth)
	}
	if cfg.UserRoot != "~/.bmad" {
		t.Errorf("UserRoot = %q", cfg.UserRoot)
	}
	kinds, err := cfg.OriginPrecedence()
	if err != nil || !slices.Equal(kinds, types.DefaultPrecedence()) {
		t.Errorf("OriginPrecedence() = %v, %v", kinds, err)
	}
	if valid, errs := cfg.IsValid(); !valid {
		t.Errorf("default config invalid: %v", errs)
	}
}

func TestLoad_DefaultsWhenNoConfigFile(t *testing.T) {
	t.Parallel()

	cfg, path, err := LoadWithPath(context.Background(), LoadOptions{
		ConfigDirPath: t.TempDir(),
		Getenv:        envMap(map[string]string{"HOME": "/home/u"}),
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty", path)
	}
	if cfg.UserRoot != "/home/u/.bmad" {
		t.Errorf("UserRoot = %q, want expanded default", cfg.UserRoot)
	}
	if cfg.LogLevel != LogLevelWarn {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoad_FromConfigDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	want := writeConfig(t, dir, `
user_root: "$DATA/bmad"
remotes: ["@bmad", "git+https://github.com/org/repo.git#v6"]
precedence: ["user", "project"]
max_depth: 5
shortcuts: {
	team: "git+https://git.example.com/team/agents.git"
}
cache: {
	refresh_interval: "90s"
}
log_level: "debug"
`)

	cfg, path, err := LoadWithPath(context.Background(), LoadOptions{
		ConfigDirPath: dir,
		Getenv:        envMap(map[string]string{"DATA": "/data"}),
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if cfg.UserRoot != "/data/bmad" {
		t.Errorf("UserRoot = %q", cfg.UserRoot)
	}
	if cfg.MaxDepth != 5 || cfg.LogLevel != LogLevelDebug {
		t.Errorf("MaxDepth = %d, LogLevel = %q", cfg.MaxDepth, cfg.LogLevel)
	}
	if len(cfg.Remotes) != 2 || cfg.Shortcuts["team"] == "" {
		t.Errorf("Remotes = %v, Shortcuts = %v", cfg.Remotes, cfg.Shortcuts)
	}
	kinds, _ := cfg.OriginPrecedence()
	if !slices.Equal(kinds, []types.OriginKind{types.OriginUser, types.OriginProject}) {
		t.Errorf("precedence = %v", kinds)
	}
	if d, _ := cfg.Cache.RefreshDuration(); d.Seconds() != 90 {
		t.Errorf("RefreshDuration() = %v", d)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `max_depth: 5
cache: {dir: "/from/file"}`)

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{
		ConfigDirPath: dir,
		Getenv: envMap(map[string]string{
			"BMAD_MAX_DEPTH": "1",
			"BMAD_CACHE_DIR": "/from/env",
			"BMAD_REMOTES":   "@bmad, @bmad-v4",
		}),
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxDepth != 1 {
		t.Errorf("MaxDepth = %d, want 1", cfg.MaxDepth)
	}
	if cfg.Cache.Dir != "/from/env" {
		t.Errorf("Cache.Dir = %q", cfg.Cache.Dir)
	}
	if !slices.Equal(cfg.Remotes, []string{"@bmad", "@bmad-v4"}) {
		t.Errorf("Remotes = %q", cfg.Remotes)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		env     map[string]string
		want    string
	}{
		{name: "syntax", content: `max_depth: [`, want: "load configuration"},
		{name: "schema range", content: `max_depth: 99`, want: "max_depth"},
		{name: "unknown field", content: `colour: "red"`, want: "colour"},
		{name: "unknown origin kind", content: `precedence: ["global"]`, want: "precedence"},
		{name: "bad duration", content: `cache: {refresh_interval: "soon"}`, want: "refresh_interval"},
		{name: "bad env log level", content: ``, env: map[string]string{"BMAD_LOG_LEVEL": "loud"}, want: "validate configuration"},
		{name: "bad env precedence", content: ``, env: map[string]string{"BMAD_PRECEDENCE": "global"}, want: "precedence"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			writeConfig(t, dir, tt.content)
			_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir, Getenv: envMap(tt.env)})
			if err == nil {
				t.Fatal("Load() error = nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.want)
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) || ae.IssueId != issue.ConfigLoadFailedId {
				t.Errorf("Load() error should be actionable and linked to the config guide, got %T", err)
			}
		})
	}
}

func TestLoad_CustomPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	custom := filepath.Join(dir, "custom.cue")
	if err := os.WriteFile(custom, []byte(`package_root: "/opt/bmad"`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, path, err := LoadWithPath(context.Background(), LoadOptions{ConfigFilePath: custom, Getenv: envMap(nil)})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != custom || cfg.PackageRoot != "/opt/bmad" {
		t.Errorf("path = %q, PackageRoot = %q", path, cfg.PackageRoot)
	}

	_, err = NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: filepath.Join(dir, "missing.cue")})
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || !strings.Contains(ae.Error(), "config file not found") {
		t.Errorf("missing custom path error = %v", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{ConfigDirPath: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.ProjectRoot = "/work/project"
	cfg.Remotes = []string{"@bmad"}
	cfg.Shortcuts = map[string]string{"b": "git+https://example.com/b/b.git", "a": "git+https://example.com/a/a.git"}
	cfg.Cache = CacheConfig{Dir: "/cache", RefreshInterval: "1h"}

	out := GenerateCUE(cfg)
	if strings.Index(out, `"a":`) > strings.Index(out, `"b":`) {
		t.Error("shortcuts should be written in sorted order")
	}

	dir := t.TempDir()
	writeConfig(t, dir, out)
	got, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir, Getenv: envMap(map[string]string{"HOME": "/h"})})
	if err != nil {
		t.Fatalf("Load(GenerateCUE()) error = %v\n%s", err, out)
	}
	if got.ProjectRoot != cfg.ProjectRoot || got.Cache != cfg.Cache || len(got.Shortcuts) != 2 {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested")
	path, written, err := CreateDefaultConfig(dir, false)
	if err != nil || !written {
		t.Fatalf("CreateDefaultConfig() = %q, %v, %v", path, written, err)
	}
	if err := os.WriteFile(path, []byte("max_depth: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, written, _ := CreateDefaultConfig(dir, false); written {
		t.Error("existing config should not be overwritten without force")
	}
	if _, written, _ := CreateDefaultConfig(dir, true); !written {
		t.Error("force should overwrite")
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "max_depth: 3") {
		t.Errorf("forced config should hold defaults:\n%s", data)
	}
}

// Tests below mutate package-level overrides and do not run in parallel.

func TestConfigDir_Override(t *testing.T) {
	t.Cleanup(Reset)

	SetConfigDirOverride("/custom/dir")
	got, err := ConfigDir()
	if err != nil || got != "/custom/dir" {
		t.Errorf("ConfigDir() = %q, %v", got, err)
	}
	path, _ := FilePath("")
	if path != filepath.Join("/custom/dir", "config.cue") {
		t.Errorf("FilePath() = %q", path)
	}

	Reset()
	got, err = ConfigDir()
	if err != nil || filepath.Base(got) != AppName {
		t.Errorf("ConfigDir() after Reset = %q, %v", got, err)
	}
}
