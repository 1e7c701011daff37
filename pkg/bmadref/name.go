// SPDX-License-Identifier: MPL-2.0

package bmadref

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedName is returned for name references with too many segments
// or an empty component.
var ErrMalformedName = errors.New("malformed name reference")

// NameRef is a parsed name reference. Module is empty for unqualified names.
type NameRef struct {
	Module string
	Name   string
}

// String renders the reference back to "module/name" or "name".
func (n NameRef) String() string {
	if n.Module == "" {
		return n.Name
	}
	return n.Module + "/" + n.Name
}

// Qualified reports whether the reference carries a module qualifier.
func (n NameRef) Qualified() bool {
	return n.Module != ""
}

// ParseName splits "module/name" into its parts. A leading "*" (menu-item
// notation) and a trailing ".md" are stripped. Bare names have no module.
func ParseName(ref string) (NameRef, error) {
	s := strings.TrimSpace(ref)
	s = strings.TrimPrefix(s, "*")
	s = strings.TrimSuffix(s, ".md")
	if s == "" {
		return NameRef{}, ErrEmptyReference
	}

	parts := strings.Split(s, "/")
	switch len(parts) {
	case 1:
		return NameRef{Name: parts[0]}, nil
	case 2:
		if parts[0] == "" || parts[1] == "" {
			return NameRef{}, fmt.Errorf("%w: %q", ErrMalformedName, ref)
		}
		return NameRef{Module: parts[0], Name: parts[1]}, nil
	default:
		return NameRef{}, fmt.Errorf("%w: %q has %d segments, want at most 2", ErrMalformedName, ref, len(parts))
	}
}
