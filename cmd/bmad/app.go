// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/mkellerman/bmad-mcp-server-sub003/internal/config"
	"github.com/mkellerman/bmad-mcp-server-sub003/internal/engine"
	"github.com/mkellerman/bmad-mcp-server-sub003/internal/remote"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer; command handlers receive an App and delegate
	// through it.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer
		getenv func(string) string
		git    remote.Git
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
		Getenv func(string) string
		// Git replaces the go-git runner used for remote installations.
		Git remote.Git
	}

	// rootFlags are the persistent flags shared by every command.
	rootFlags struct {
		configPath string
		verbose    bool
		roots      []string
		project    string
		offline    bool
	}

	// session is the per-invocation state: the loaded config, a logger at
	// the configured level and the engine built from both.
	session struct {
		cfg     *config.Config
		logger  *slog.Logger
		engine  *engine.Engine
		verbose bool
	}
)

// NewApp creates an App, filling unset dependencies with defaults.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
		getenv: deps.Getenv,
		git:    deps.Git,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	if app.getenv == nil {
		app.getenv = os.Getenv
	}
	return app
}

// configFilePath returns --config or the default config file location.
func configFilePath(flags *rootFlags) (string, error) {
	if flags.configPath != "" {
		return flags.configPath, nil
	}
	return config.FilePath("")
}

// newSession loads config, installs the logger and builds the engine.
func (a *App) newSession(ctx context.Context, flags *rootFlags) (*session, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.configPath, Getenv: a.getenv})
	if err != nil {
		return nil, err
	}
	verbose := flags.verbose || cfg.UI.Verbose
	logger := newLogger(a.stderr, cfg.LogLevel, verbose)

	eng, err := engine.New(engine.Options{
		Config:     cfg,
		ProjectDir: flags.project,
		Roots:      flags.roots,
		Getenv:     a.getenv,
		Logger:     logger,
		Git:        a.git,
		Offline:    flags.offline,
	})
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, engine: eng, verbose: verbose}, nil
}

// discover runs discovery and prints diagnostics to stderr. A missing
// installation is returned as the error; the snapshot is never nil.
func (a *App) discover(ctx context.Context, s *session) (*engine.Snapshot, error) {
	snap, err := s.engine.Discover(ctx)
	renderDiagnostics(a.stderr, snap.Diagnostics, s.verbose)
	return snap, err
}
