// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/types"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"

	// DefaultMaxDepth is how deep the root finder searches by default.
	DefaultMaxDepth = 3
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidCacheConfig is the sentinel error wrapped by InvalidCacheConfigError.
	ErrInvalidCacheConfig = errors.New("invalid cache config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// LogLevel is the minimum level of log records written to stderr.
	LogLevel string

	// InvalidCacheConfigError is returned when a CacheConfig has invalid fields.
	InvalidCacheConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config is the merged configuration: defaults, then the CUE file, then
	// BMAD_* environment variables.
	Config struct {
		ProjectRoot      string            `json:"project_root" mapstructure:"project_root"`
		UserRoot         string            `json:"user_root" mapstructure:"user_root"`
		PackageRoot      string            `json:"package_root" mapstructure:"package_root"`
		SearchPaths      []string          `json:"search_paths" mapstructure:"search_paths"`
		Remotes          []string          `json:"remotes" mapstructure:"remotes"`
		Shortcuts        map[string]string `json:"shortcuts" mapstructure:"shortcuts"`
		Precedence       []string          `json:"precedence" mapstructure:"precedence"`
		SourcePreference []string          `json:"source_preference" mapstructure:"source_preference"`
		MaxDepth         int               `json:"max_depth" mapstructure:"max_depth"`
		Cache            CacheConfig       `json:"cache" mapstructure:"cache"`
		LogLevel         LogLevel          `json:"log_level" mapstructure:"log_level"`
		UI               UIConfig          `json:"ui" mapstructure:"ui"`
	}

	// CacheConfig configures the remote repository cache.
	CacheConfig struct {
		// Dir is the cache directory. Empty means the platform default.
		Dir string `json:"dir" mapstructure:"dir"`
		// RefreshInterval skips fetching entries pulled more recently than
		// this duration. Empty means always fetch.
		RefreshInterval string `json:"refresh_interval" mapstructure:"refresh_interval"`
	}

	// UIConfig configures terminal output.
	UIConfig struct {
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		Verbose     bool        `json:"verbose" mapstructure:"verbose"`
	}
)

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		UserRoot:         "~/.bmad",
		SearchPaths:      []string{},
		Remotes:          []string{},
		Shortcuts:        map[string]string{},
		Precedence:       kindStrings(types.DefaultPrecedence()),
		SourcePreference: []string{string(types.SourceManifest), string(types.SourceFilesystem)},
		MaxDepth:         DefaultMaxDepth,
		LogLevel:         LogLevelWarn,
		UI:               UIConfig{ColorScheme: ColorSchemeAuto},
	}
}

// String returns the string representation of the ColorScheme.
func (c ColorScheme) String() string { return string(c) }

// IsValid returns whether the ColorScheme is one of the defined schemes,
// and a list of validation errors if it is not.
func (c ColorScheme) IsValid() (bool, []error) {
	switch c {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight, "":
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: c}}
	}
}

// Error implements the error interface.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme so callers can use errors.Is for programmatic detection.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid reports whether the level is known. The empty level is valid.
func (l LogLevel) IsValid() (bool, []error) {
	switch LogLevel(strings.ToLower(string(l))) {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, "":
		return true, nil
	default:
		return false, []error{fmt.Errorf("%w %q (valid: debug, info, warn, error)", ErrInvalidLogLevel, string(l))}
	}
}

// RefreshDuration parses RefreshInterval. The empty string is zero.
func (c CacheConfig) RefreshDuration() (time.Duration, error) {
	if strings.TrimSpace(c.RefreshInterval) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil {
		return 0, fmt.Errorf("cache.refresh_interval: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("cache.refresh_interval: negative duration %s", d)
	}
	return d, nil
}

// IsValid returns whether the cache settings are usable.
func (c CacheConfig) IsValid() (bool, []error) {
	var errs []error
	if c.Dir != "" && strings.TrimSpace(c.Dir) == "" {
		errs = append(errs, errors.New("cache.dir: whitespace-only path"))
	}
	if _, err := c.RefreshDuration(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidCacheConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidCacheConfigError) Error() string {
	return fmt.Sprintf("invalid cache config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidCacheConfig for errors.Is() compatibility.
func (e *InvalidCacheConfigError) Unwrap() error { return ErrInvalidCacheConfig }

// OriginPrecedence parses Precedence. An empty list means the default order.
func (c *Config) OriginPrecedence() ([]types.OriginKind, error) {
	if len(c.Precedence) == 0 {
		return types.DefaultPrecedence(), nil
	}
	out := make([]types.OriginKind, 0, len(c.Precedence))
	for _, s := range c.Precedence {
		k, err := types.ParseOriginKind(s)
		if err != nil {
			return nil, fmt.Errorf("precedence: %w", err)
		}
		out = append(out, k)
	}
	return out, nil
}

// SourceOrder parses SourcePreference. An empty list means manifest first.
func (c *Config) SourceOrder() ([]types.RecordSource, error) {
	if len(c.SourcePreference) == 0 {
		return []types.RecordSource{types.SourceManifest, types.SourceFilesystem}, nil
	}
	out := make([]types.RecordSource, 0, len(c.SourcePreference))
	for _, s := range c.SourcePreference {
		src, err := types.ParseRecordSource(s)
		if err != nil {
			return nil, fmt.Errorf("source_preference: %w", err)
		}
		out = append(out, src)
	}
	return out, nil
}

// IsValid returns whether the Config is usable, collecting every field error.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if _, err := c.OriginPrecedence(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.SourceOrder(); err != nil {
		errs = append(errs, err)
	}
	if c.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("max_depth: must not be negative, got %d", c.MaxDepth))
	}
	if valid, fieldErrs := c.Cache.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.LogLevel.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig so callers can use errors.Is for programmatic detection.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

func kindStrings(kinds []types.OriginKind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
