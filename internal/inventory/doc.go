// SPDX-License-Identifier: MPL-2.0

// Package inventory builds the resource inventory of one Origin.
//
// Each format has its own builder. A v6 installation declares resources in
// _cfg/{agent,workflow,task}-manifest.csv; a v4 installation lists every
// shipped file in install-manifest.yaml; a custom tree declares nothing.
// All three reconcile declarations with the filesystem, tagging each record
// verified, declared-but-missing or undeclared-on-disk.
//
// Builders never deduplicate across origins; that is the catalog's job.
package inventory
