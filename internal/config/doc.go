// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/bmad/config.cue (or XDG equivalent on Linux,
// ~/Library/Application Support/bmad/config.cue on macOS, %APPDATA%\bmad\config.cue
// on Windows), validated against the embedded CUE schema (config_schema.cue), and
// layered as defaults < file < BMAD_* environment variables. Path fields are
// expanded for "~" and $VAR references. BMAD_ROOT may also come from the
// project's .env file.
package config
