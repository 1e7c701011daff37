// SPDX-License-Identifier: MPL-2.0

// Package remote maps git URLs of the form
//
//	git+<transport>://<host>/<org>/<repo>[.git][#<ref>][:/<subpath>]
//
// to validated local directories under a cache root. Each cache entry is a
// shallow clone at <cache>/<key> with a TOML metadata file beside it at
// <cache>/<key>.meta.toml. An entry is reused (fetch + hard reset) when its
// metadata matches the request, and discarded and recloned otherwise.
//
// Git access goes through the Git interface; GoGit is the go-git backed
// implementation used outside tests.
package remote
