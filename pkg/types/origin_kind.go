// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// OriginProject is an installation found under the project directory.
	OriginProject OriginKind = "project"
	// OriginCLI is an installation passed explicitly on invocation.
	OriginCLI OriginKind = "cli"
	// OriginEnv is an installation named by the BMAD_ROOT environment variable.
	OriginEnv OriginKind = "env"
	// OriginUser is the user-default installation (~/.bmad).
	OriginUser OriginKind = "user"
	// OriginPackage is the installation bundled with the tool itself.
	OriginPackage OriginKind = "package"
	// OriginRemote is a git repository resolved through the remote cache.
	OriginRemote OriginKind = "remote"
)

// ErrInvalidOriginKind is the sentinel error wrapped by InvalidOriginKindError.
var ErrInvalidOriginKind = errors.New("invalid origin kind")

type (
	// OriginKind classifies where an installation came from.
	OriginKind string

	// InvalidOriginKindError is returned when an OriginKind is not recognized.
	InvalidOriginKindError struct {
		Value OriginKind
	}
)

// AllOriginKinds returns every origin kind in default precedence order.
func AllOriginKinds() []OriginKind {
	return []OriginKind{OriginProject, OriginCLI, OriginEnv, OriginUser, OriginPackage, OriginRemote}
}

// DefaultPrecedence returns the default resolution order, most preferred first.
// A fresh slice is returned on every call.
func DefaultPrecedence() []OriginKind {
	return AllOriginKinds()
}

// ParseOriginKind converts a string to an OriginKind. Matching is
// case-insensitive and accepts a few long-form aliases.
func ParseOriginKind(s string) (OriginKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "project":
		return OriginProject, nil
	case "cli", "cli-argument", "argument":
		return OriginCLI, nil
	case "env", "environment", "environment-variable":
		return OriginEnv, nil
	case "user", "user-default":
		return OriginUser, nil
	case "package", "package-default":
		return OriginPackage, nil
	case "remote", "git":
		return OriginRemote, nil
	default:
		return "", &InvalidOriginKindError{Value: OriginKind(s)}
	}
}

// String returns the string representation of the OriginKind.
func (k OriginKind) String() string { return string(k) }

// Validate returns an error if the OriginKind is not recognized.
func (k OriginKind) Validate() error {
	for _, known := range AllOriginKinds() {
		if k == known {
			return nil
		}
	}
	return &InvalidOriginKindError{Value: k}
}

// Error implements the error interface.
func (e *InvalidOriginKindError) Error() string {
	return fmt.Sprintf("invalid origin kind %q (expected one of project, cli, env, user, package, remote)", string(e.Value))
}

// Unwrap returns ErrInvalidOriginKind for errors.Is() compatibility.
func (e *InvalidOriginKindError) Unwrap() error { return ErrInvalidOriginKind }
