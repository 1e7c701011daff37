// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/mkellerman/bmad-mcp-server-sub003/internal/catalog"
	"github.com/mkellerman/bmad-mcp-server-sub003/internal/discovery"
)

// Process exit codes.
const (
	ExitOK = 0
	// ExitError is any failure without a more specific code.
	ExitError = 1
	// ExitNotFound means a name or path query matched nothing.
	ExitNotFound = 2
	// ExitNoInstallation means discovery found no installation at all.
	ExitNoInstallation = 3
)

// ExitCodeError signals a non-zero exit code without forcing os.Exit in
// RunE handlers.
type ExitCodeError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitCodeError.
func (e *ExitCodeError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitCodeError) Unwrap() error {
	return e.Err
}

// exitCode maps an error returned by a command to the process exit code.
func exitCode(err error) int {
	var ee *ExitCodeError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &ee):
		return ee.Code
	case errors.Is(err, catalog.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, discovery.ErrNoOrigins):
		return ExitNoInstallation
	default:
		return ExitError
	}
}
