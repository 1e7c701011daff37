// SPDX-License-Identifier: MPL-2.0

// Package engine is the entry point used by the CLI and other consumers.
//
// An Engine turns configuration into discovery sources and a resolution
// policy. Discover runs the whole pipeline (remote resolution, root search,
// inventory, aggregation) and returns a Snapshot that answers FindByName
// and ResolveFilePath queries. Failures consumers act on are returned as
// *issue.ActionableError values.
package engine
