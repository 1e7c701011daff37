// SPDX-License-Identifier: MPL-2.0

// Package catalog merges per-origin inventories into resource pools and
// resolves them into one winner per logical resource.
//
// Aggregate concatenates inventories without cross-origin deduplication.
// Resolve groups records by (kind, name), or (kind, module, name) for
// module-qualified policies, and orders each group by a total order so the
// winner does not depend on input order. FindByName and ResolveFilePath are
// the query entry points built on the same ordering.
package catalog
