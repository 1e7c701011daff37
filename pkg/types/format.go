// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
)

const (
	// FormatUnknown is the zero value: the directory was not classified.
	FormatUnknown Format = ""
	// FormatV6 is the self-describing layout: a _cfg/manifest.yaml plus one
	// directory per module, each with an optional config.yaml.
	FormatV6 Format = "v6"
	// FormatV4 is the flat layout: a single install-manifest.yaml listing every
	// shipped file, with expansion packs in sibling directories.
	FormatV4 Format = "v4"
	// FormatCustom is a hand-assembled directory holding agents/ or workflows/
	// with no manifest at all.
	FormatCustom Format = "custom"
)

// ErrInvalidFormat is the sentinel error wrapped by InvalidFormatError.
var ErrInvalidFormat = errors.New("invalid installation format")

type (
	// Format identifies the on-disk layout of one installation root.
	Format string

	// InvalidFormatError is returned when a Format value is not recognized.
	InvalidFormatError struct {
		Value Format
	}
)

// String returns the string representation of the Format.
func (f Format) String() string {
	if f == FormatUnknown {
		return "unknown"
	}
	return string(f)
}

// Validate returns an error if the Format is not one of the known layouts.
// FormatUnknown is a valid value.
func (f Format) Validate() error {
	switch f {
	case FormatUnknown, FormatV6, FormatV4, FormatCustom:
		return nil
	default:
		return &InvalidFormatError{Value: f}
	}
}

// Rank orders formats for root sorting: v6 before v4 before custom.
// Unknown formats sort last.
func (f Format) Rank() int {
	switch f {
	case FormatV6:
		return 0
	case FormatV4:
		return 1
	case FormatCustom:
		return 2
	default:
		return 3
	}
}

// Error implements the error interface.
func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid installation format %q (expected v6, v4 or custom)", string(e.Value))
}

// Unwrap returns ErrInvalidFormat for errors.Is() compatibility.
func (e *InvalidFormatError) Unwrap() error { return ErrInvalidFormat }
