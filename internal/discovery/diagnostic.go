// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"fmt"
)

const (
	// SeverityWarning indicates a recoverable discovery warning.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a non-fatal discovery error diagnostic.
	SeverityError Severity = "error"

	// CodeWorkingDirUnavailable means the working directory could not be determined.
	CodeWorkingDirUnavailable DiagnosticCode = "working_dir_unavailable"
	// CodeLocationMissing means an explicitly configured location does not exist.
	CodeLocationMissing DiagnosticCode = "location_missing"
	// CodeLocationEmpty means an explicitly configured location holds no installation.
	CodeLocationEmpty DiagnosticCode = "location_no_installation"
	// CodeLocationInvalid means a location could not be turned into an absolute path.
	CodeLocationInvalid DiagnosticCode = "location_path_invalid"
	// CodeRemoteFailed means a remote location could not be cloned.
	CodeRemoteFailed DiagnosticCode = "remote_resolve_failed"
	// CodeDuplicateRoot means a root was reached from two locations; the
	// higher-precedence one was kept.
	CodeDuplicateRoot DiagnosticCode = "duplicate_root_skipped"
	// CodeInventoryFailed means an origin's inventory could not be built.
	CodeInventoryFailed DiagnosticCode = "inventory_failed"
	// CodeModuleConfigProblem means a module's config.yaml is missing or invalid.
	CodeModuleConfigProblem DiagnosticCode = "module_config_problem"
	// CodeManifestEntrySkipped means a manifest row or entry was unusable and
	// left out of the inventory.
	CodeManifestEntrySkipped DiagnosticCode = "manifest_entry_skipped"
)

var (
	// ErrInvalidSeverity is returned by Severity.IsValid for unknown values.
	ErrInvalidSeverity = errors.New("invalid diagnostic severity")
	// ErrInvalidDiagnosticCode is returned by DiagnosticCode.IsValid for unknown values.
	ErrInvalidDiagnosticCode = errors.New("invalid diagnostic code")

	validCodes = map[DiagnosticCode]bool{
		CodeWorkingDirUnavailable: true,
		CodeLocationMissing:       true,
		CodeLocationEmpty:         true,
		CodeLocationInvalid:       true,
		CodeRemoteFailed:          true,
		CodeDuplicateRoot:         true,
		CodeInventoryFailed:       true,
		CodeModuleConfigProblem:   true,
		CodeManifestEntrySkipped:  true,
	}
)

type (
	// Severity represents discovery diagnostic severity.
	Severity string

	// DiagnosticCode is a machine-readable diagnostic identifier.
	DiagnosticCode string

	// Diagnostic represents a structured discovery diagnostic that is returned
	// to callers (rather than written to stderr) for consistent rendering policy.
	Diagnostic struct {
		// Severity is the diagnostic level (warning or error).
		Severity Severity
		// Code is a machine-readable identifier (e.g., "location_missing").
		Code DiagnosticCode
		// Message is the human-readable description.
		Message string
		// Path is the file path associated with this diagnostic (optional).
		Path string
		// Cause is the underlying error (optional, for programmatic inspection).
		Cause error
	}
)

// IsValid reports whether s is a known severity.
func (s Severity) IsValid() (bool, []error) {
	switch s {
	case SeverityWarning, SeverityError:
		return true, nil
	default:
		return false, []error{fmt.Errorf("%w: %q", ErrInvalidSeverity, string(s))}
	}
}

// String returns the code as a string.
func (c DiagnosticCode) String() string { return string(c) }

// IsValid reports whether c is a known diagnostic code.
func (c DiagnosticCode) IsValid() (bool, []error) {
	if validCodes[c] {
		return true, nil
	}
	return false, []error{fmt.Errorf("%w: %q", ErrInvalidDiagnosticCode, string(c))}
}

// NewDiagnostic creates a diagnostic without a path or cause.
func NewDiagnostic(severity Severity, code DiagnosticCode, message string) Diagnostic {
	return Diagnostic{Severity: severity, Code: code, Message: message}
}

// NewDiagnosticWithPath creates a diagnostic tied to a path.
func NewDiagnosticWithPath(severity Severity, code DiagnosticCode, message, path string) Diagnostic {
	return Diagnostic{Severity: severity, Code: code, Message: message, Path: path}
}

// NewDiagnosticWithCause creates a diagnostic tied to a path and an underlying error.
func NewDiagnosticWithCause(severity Severity, code DiagnosticCode, message, path string, cause error) Diagnostic {
	return Diagnostic{Severity: severity, Code: code, Message: message, Path: path, Cause: cause}
}

// String renders the diagnostic as "<severity>: <message> (<path>): <cause>".
func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s: %s", d.Severity, d.Message)
	if d.Path != "" {
		s += " (" + d.Path + ")"
	}
	if d.Cause != nil {
		s += ": " + d.Cause.Error()
	}
	return s
}
