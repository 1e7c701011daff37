// SPDX-License-Identifier: MPL-2.0

package remote

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ErrUnknownShortcut is returned when an @name shortcut is not defined.
var ErrUnknownShortcut = errors.New("unknown remote shortcut")

// Shortcuts maps @name shortcuts to full git URLs. A Shortcuts value is
// built once per run by MergeShortcuts and never modified afterwards.
type Shortcuts struct {
	m map[string]string
}

// builtinShortcuts are always available; callers may override them.
func builtinShortcuts() map[string]string {
	return map[string]string{
		"bmad":        "git+https://github.com/bmad-code-org/BMAD-METHOD.git#main",
		"bmad-stable": "git+https://github.com/bmad-code-org/BMAD-METHOD.git#v6.0.0-alpha.0",
		"bmad-v4":     "git+https://github.com/bmad-code-org/BMAD-METHOD.git#v4.44.0",
	}
}

// MergeShortcuts returns the built-in shortcuts overlaid with custom. Names
// may be given with or without their leading "@".
func MergeShortcuts(custom map[string]string) Shortcuts {
	m := builtinShortcuts()
	for k, v := range custom {
		m[strings.TrimPrefix(k, "@")] = v
	}
	return Shortcuts{m: m}
}

// Names returns the shortcut names, sorted.
func (s Shortcuts) Names() []string {
	return slices.Sorted(maps.Keys(s.m))
}

// Lookup returns the URL for name (without "@").
func (s Shortcuts) Lookup(name string) (string, bool) {
	u, ok := s.m[name]
	return u, ok
}

// Expand rewrites "@name[/subpath]" into its full URL. Other strings are
// returned unchanged. A subpath is appended to any subpath the shortcut
// already carries.
func (s Shortcuts) Expand(raw string) (string, error) {
	ref, ok := strings.CutPrefix(strings.TrimSpace(raw), "@")
	if !ok {
		return raw, nil
	}
	name, sub, _ := strings.Cut(ref, "/")
	base, ok := s.m[name]
	if !ok {
		return "", fmt.Errorf("%w: @%s", ErrUnknownShortcut, name)
	}
	sub = strings.Trim(sub, "/")
	if sub == "" {
		return base, nil
	}
	if strings.Contains(base, subpathMarker) {
		return strings.TrimSuffix(base, "/") + "/" + sub, nil
	}
	return base + subpathMarker + sub, nil
}
