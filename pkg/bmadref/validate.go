// SPDX-License-Identifier: MPL-2.0

package bmadref

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/platform"
	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/types"
)

const (
	// MinNameLength is the shortest accepted resource name.
	MinNameLength = 2
	// MaxNameLength is the longest accepted resource name.
	MaxNameLength = 50

	dangerousChars = ";&|$`<>\n\r()"
)

var (
	// ErrInvalidName is the sentinel wrapped by every InvalidNameError.
	ErrInvalidName = errors.New("invalid resource name")

	agentNamePattern    = regexp.MustCompile(`^[a-z]+(-[a-z]+)*$`)
	workflowNamePattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

// InvalidNameError describes why a name was rejected.
type InvalidNameError struct {
	Name   string
	Kind   types.ResourceKind
	Reason string
}

// Error implements the error interface.
func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid %s name %q: %s", e.Kind, e.Name, e.Reason)
}

// Unwrap returns ErrInvalidName for errors.Is compatibility.
func (e *InvalidNameError) Unwrap() error { return ErrInvalidName }

// ValidateName checks a bare resource name before it is used for lookup.
// Agents are lowercase words joined by hyphens; workflows and tasks may also
// contain digits. Shell metacharacters, non-ASCII input and Windows device
// names are always refused.
func ValidateName(kind types.ResourceKind, name string) error {
	fail := func(reason string) error {
		return &InvalidNameError{Name: name, Kind: kind, Reason: reason}
	}

	if name == "" {
		return fail("name is empty")
	}
	if strings.ContainsAny(name, dangerousChars) {
		return fail("contains a shell metacharacter")
	}
	if !isASCII(name) {
		return fail("contains non-ASCII characters")
	}
	if n := utf8.RuneCountInString(name); n < MinNameLength || n > MaxNameLength {
		return fail(fmt.Sprintf("length %d outside %d..%d", n, MinNameLength, MaxNameLength))
	}

	pattern := workflowNamePattern
	if kind == types.ResourceAgent {
		pattern = agentNamePattern
	}
	if !pattern.MatchString(name) {
		return fail(fmt.Sprintf("must match %s", pattern))
	}
	if platform.IsReservedName(name) {
		return fail("reserved file name on Windows")
	}
	return nil
}

func isASCII(s string) bool {
	for i := range len(s) {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
