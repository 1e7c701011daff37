// SPDX-License-Identifier: MPL-2.0

// Package detect classifies a single directory as a v6 installation
// (_cfg/manifest.yaml plus module directories), a v4 installation (one flat
// install-manifest.yaml), or a hand-assembled "custom" tree.
//
// Detection never fails loudly: a directory that does not parse is reported
// as FormatUnknown with a Reason, because "not installed here" is a normal
// outcome when probing many candidate directories.
package detect
