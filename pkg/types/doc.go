// SPDX-License-Identifier: MPL-2.0

// Package types defines the value types shared by the discovery, inventory
// and catalog packages: installation formats, origin kinds, resource kinds,
// record status/source tags, and the Origin and Record structs themselves.
//
// This package is a leaf dependency: it imports only the standard library.
// Domain packages import it; it never imports domain packages.
package types
