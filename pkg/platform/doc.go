// SPDX-License-Identifier: MPL-2.0

// Package platform holds the few OS-specific facts bmad depends on: GOOS
// names, the home directory variable and file names Windows refuses.
package platform
