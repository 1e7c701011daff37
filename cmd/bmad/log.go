// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/mkellerman/bmad-mcp-server-sub003/internal/config"
)

// newLogger returns a slog logger backed by a charmbracelet/log handler on
// w. --verbose forces debug level; otherwise the configured level applies.
func newLogger(w io.Writer, level config.LogLevel, verbose bool) *slog.Logger {
	handler := log.NewWithOptions(w, log.Options{
		Prefix: config.AppName,
		Level:  logLevel(level, verbose),
	})
	return slog.New(handler)
}

func logLevel(level config.LogLevel, verbose bool) log.Level {
	if verbose {
		return log.DebugLevel
	}
	switch config.LogLevel(strings.ToLower(string(level))) {
	case config.LogLevelDebug:
		return log.DebugLevel
	case config.LogLevelInfo:
		return log.InfoLevel
	case config.LogLevelError:
		return log.ErrorLevel
	default:
		return log.WarnLevel
	}
}
