// SPDX-License-Identifier: MPL-2.0

// Package bmadref parses the reference strings used to address resources:
// file references (placeholder-prefixed, dot-prefixed legacy, bare relative)
// and name references ("module/name" or a bare "name").
//
// Every function here is pure: no filesystem access, no global state.
package bmadref
