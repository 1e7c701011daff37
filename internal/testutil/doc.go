// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Common helpers include environment variable management (MustSetenv, MustUnsetenv),
// directory operations (MustChdir, MustMkdirAll, MustWriteFile), a controllable
// clock, and fixture builders that lay out v6, v4 and custom installations
// under a temporary directory (V6Fixture, V4Fixture).
package testutil
