// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/mkellerman/bmad-mcp-server-sub003/internal/issue"
	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/cueutil"
	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/platform"
)

const (
	// AppName is the application name.
	AppName = "bmad"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides: BMAD_MAX_DEPTH, BMAD_CACHE_DIR.
	EnvPrefix = "BMAD"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the bmad configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case platform.Windows:
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case platform.Darwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// FilePath returns the config file path inside dir, or inside ConfigDir when
// dir is empty.
func FilePath(dir string) (string, error) {
	cfgDir, err := configDirWithOverride(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt), nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state. It returns the config and the file it was read from
// ("" when only defaults and environment applied).
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := newViper(opts.getenv())

	resolvedPath := ""
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'bmad config show' to see the default configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		if err := loadCUEIntoViper(v, opts.ConfigFilePath); err != nil {
			return nil, "", cueLoadError(opts.ConfigFilePath, err)
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		cuePath, err := FilePath(opts.ConfigDirPath)
		if err != nil {
			return nil, "", err
		}
		if fileExists(cuePath) {
			if err := loadCUEIntoViper(v, cuePath); err != nil {
				return nil, "", cueLoadError(cuePath, err)
			}
			resolvedPath = cuePath
		}
		// No config file: defaults and environment only.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if err := expandPaths(&cfg, opts.getenv()); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("expand configuration paths").
			WithResource(resolvedPath).
			WithSuggestion("Check ${VAR} references for unbalanced braces").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Check BMAD_* environment variables as well as the config file").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// newViper seeds a viper instance with defaults and BMAD_* environment
// bindings. Nested keys map with underscores: cache.dir is BMAD_CACHE_DIR.
func newViper(getenv func(string) string) *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("project_root", defaults.ProjectRoot)
	v.SetDefault("user_root", defaults.UserRoot)
	v.SetDefault("package_root", defaults.PackageRoot)
	v.SetDefault("search_paths", defaults.SearchPaths)
	v.SetDefault("remotes", defaults.Remotes)
	v.SetDefault("shortcuts", defaults.Shortcuts)
	v.SetDefault("precedence", defaults.Precedence)
	v.SetDefault("source_preference", defaults.SourcePreference)
	v.SetDefault("max_depth", defaults.MaxDepth)
	v.SetDefault("cache.dir", defaults.Cache.Dir)
	v.SetDefault("cache.refresh_interval", defaults.Cache.RefreshInterval)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("ui.color_scheme", defaults.UI.ColorScheme)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	// Explicit bindings instead of AutomaticEnv so that an injected getenv
	// (tests, .env overlays) is honored.
	for _, key := range v.AllKeys() {
		env := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if val := getenv(env); val != "" {
			if isListKey(key) {
				v.Set(key, splitList(val))
			} else {
				v.Set(key, val)
			}
		}
	}
	return v
}

func isListKey(key string) bool {
	switch key {
	case "search_paths", "remotes", "precedence", "source_preference":
		return true
	}
	return false
}

// splitList splits comma or path-list separated environment values.
func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == os.PathListSeparator })
	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func cueLoadError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource(path).
		WithSuggestion("Check that the file contains valid CUE syntax").
		WithSuggestion("Verify the configuration values match the expected schema").
		WithSuggestion("See 'bmad config --help' for configuration options").
		WithIssue(issue.ConfigLoadFailedId).
		Wrap(err).
		BuildError()
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper. Fields are optional, so the value is
// validated without requiring concreteness and decoded to a map.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	res, err := cueutil.ParseAndDecodeString[map[string]any](configSchema, data, "#Config",
		cueutil.WithFilename(path),
		cueutil.WithConcrete(false),
	)
	if err != nil {
		return err
	}

	// Merge into Viper. Defaults stay underneath; environment values set
	// earlier with v.Set keep precedence.
	if err := v.MergeConfigMap(*res.Value); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	cfgDir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(cfgDir, 0o755)
}

// CreateDefaultConfig writes the default config file into dir (or ConfigDir
// when empty). An existing file is left alone unless force is set. It returns
// the path and whether a file was written.
func CreateDefaultConfig(dir string, force bool) (string, bool, error) {
	cfgPath, err := FilePath(dir)
	if err != nil {
		return "", false, err
	}
	if !force && fileExists(cfgPath) {
		return cfgPath, false, nil
	}
	if err := Save(cfgPath, DefaultConfig()); err != nil {
		return "", false, err
	}
	return cfgPath, true, nil
}

// Save writes cfg as CUE to path, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// bmad configuration file\n")
	sb.WriteString("// Unset fields take built-in defaults; BMAD_* environment variables override.\n\n")

	writeString := func(key, val string) {
		if val != "" {
			fmt.Fprintf(&sb, "%s: %q\n", key, val)
		}
	}
	writeList := func(key string, vals []string) {
		if len(vals) == 0 {
			return
		}
		quoted := make([]string, len(vals))
		for i, s := range vals {
			quoted[i] = fmt.Sprintf("%q", s)
		}
		fmt.Fprintf(&sb, "%s: [%s]\n", key, strings.Join(quoted, ", "))
	}

	writeString("project_root", cfg.ProjectRoot)
	writeString("user_root", cfg.UserRoot)
	writeString("package_root", cfg.PackageRoot)
	writeList("search_paths", cfg.SearchPaths)
	writeList("remotes", cfg.Remotes)
	writeList("precedence", cfg.Precedence)
	writeList("source_preference", cfg.SourcePreference)
	fmt.Fprintf(&sb, "max_depth: %d\n", cfg.MaxDepth)
	writeString("log_level", string(cfg.LogLevel))

	if len(cfg.Shortcuts) > 0 {
		names := make([]string, 0, len(cfg.Shortcuts))
		for name := range cfg.Shortcuts {
			names = append(names, name)
		}
		sort.Strings(names)
		sb.WriteString("\nshortcuts: {\n")
		for _, name := range names {
			fmt.Fprintf(&sb, "\t%q: %q\n", name, cfg.Shortcuts[name])
		}
		sb.WriteString("}\n")
	}

	if cfg.Cache.Dir != "" || cfg.Cache.RefreshInterval != "" {
		sb.WriteString("\ncache: {\n")
		if cfg.Cache.Dir != "" {
			fmt.Fprintf(&sb, "\tdir: %q\n", cfg.Cache.Dir)
		}
		if cfg.Cache.RefreshInterval != "" {
			fmt.Fprintf(&sb, "\trefresh_interval: %q\n", cfg.Cache.RefreshInterval)
		}
		sb.WriteString("}\n")
	}

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}
