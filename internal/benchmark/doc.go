// SPDX-License-Identifier: MPL-2.0

// Package benchmark provides benchmarks for PGO profile generation.
// They cover the hot paths of a bmad invocation:
//   - CUE config loading and schema validation
//   - Installation root search and version detection
//   - v6 and v4 inventory building
//   - Name and path resolution, including fuzzy suggestions
//   - The end-to-end discover-then-find pipeline
//
// To generate a profile, run:
//
//	go test -run='^$' -bench=. -cpuprofile=default.pgo ./internal/benchmark
package benchmark
