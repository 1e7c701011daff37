// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ResourceAgent is a persona definition (markdown).
	ResourceAgent ResourceKind = "agent"
	// ResourceWorkflow is a workflow definition.
	ResourceWorkflow ResourceKind = "workflow"
	// ResourceTask is a task definition.
	ResourceTask ResourceKind = "task"

	// StatusVerified marks a record declared by a manifest and present on disk.
	StatusVerified RecordStatus = "verified"
	// StatusMissing marks a record declared by a manifest but absent on disk.
	StatusMissing RecordStatus = "declared-but-missing"
	// StatusOrphan marks a file found on disk that no manifest declares.
	StatusOrphan RecordStatus = "undeclared-on-disk"

	// SourceManifest marks records built from manifest rows.
	SourceManifest RecordSource = "manifest"
	// SourceFilesystem marks records built from a directory scan.
	SourceFilesystem RecordSource = "filesystem"
)

var (
	// ErrInvalidResourceKind is the sentinel error wrapped by InvalidResourceKindError.
	ErrInvalidResourceKind = errors.New("invalid resource kind")
	// ErrInvalidRecordSource is returned when a RecordSource is not recognized.
	ErrInvalidRecordSource = errors.New("invalid record source")
)

type (
	// ResourceKind is the kind of an inventoried resource.
	ResourceKind string

	// InvalidResourceKindError is returned when a ResourceKind is not recognized.
	InvalidResourceKindError struct {
		Value ResourceKind
	}

	// RecordStatus reconciles manifest declarations against the filesystem.
	RecordStatus string

	// RecordSource tells whether a record came from a manifest or a scan.
	RecordSource string
)

// AllResourceKinds returns the resource kinds in listing order.
func AllResourceKinds() []ResourceKind {
	return []ResourceKind{ResourceAgent, ResourceWorkflow, ResourceTask}
}

// ParseResourceKind accepts singular or plural kind names ("agent", "agents").
func ParseResourceKind(s string) (ResourceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "agent", "agents":
		return ResourceAgent, nil
	case "workflow", "workflows":
		return ResourceWorkflow, nil
	case "task", "tasks":
		return ResourceTask, nil
	default:
		return "", &InvalidResourceKindError{Value: ResourceKind(s)}
	}
}

// String returns the string representation of the ResourceKind.
func (k ResourceKind) String() string { return string(k) }

// Dir returns the conventional directory name holding resources of this kind.
func (k ResourceKind) Dir() string { return string(k) + "s" }

// Validate returns an error if the ResourceKind is not recognized.
func (k ResourceKind) Validate() error {
	switch k {
	case ResourceAgent, ResourceWorkflow, ResourceTask:
		return nil
	default:
		return &InvalidResourceKindError{Value: k}
	}
}

// Error implements the error interface.
func (e *InvalidResourceKindError) Error() string {
	return fmt.Sprintf("invalid resource kind %q (expected agent, workflow or task)", string(e.Value))
}

// Unwrap returns ErrInvalidResourceKind for errors.Is() compatibility.
func (e *InvalidResourceKindError) Unwrap() error { return ErrInvalidResourceKind }

// String returns the string representation of the RecordStatus.
func (s RecordStatus) String() string { return string(s) }

// Exists reports whether the status implies the file is on disk.
func (s RecordStatus) Exists() bool { return s != StatusMissing }

// String returns the string representation of the RecordSource.
func (s RecordSource) String() string { return string(s) }

// ParseRecordSource converts "manifest" or "filesystem" to a RecordSource.
func ParseRecordSource(s string) (RecordSource, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "manifest":
		return SourceManifest, nil
	case "filesystem", "fs":
		return SourceFilesystem, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRecordSource, s)
	}
}
