// SPDX-License-Identifier: MPL-2.0

// Package discovery locates installation roots and turns configured
// locations into classified Origins.
//
// File organization:
//   - roots.go: FindRoots, the bounded root search under one directory
//   - sources.go: Sources and Location, the configured places to search
//   - discovery.go: Discovery, which resolves remotes, runs FindRoots per
//     location and assembles Origins in precedence order
//   - diagnostic.go: structured non-fatal diagnostics returned to callers
package discovery
