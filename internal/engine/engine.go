// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mkellerman/bmad-mcp-server-sub003/internal/catalog"
	"github.com/mkellerman/bmad-mcp-server-sub003/internal/config"
	"github.com/mkellerman/bmad-mcp-server-sub003/internal/discovery"
	"github.com/mkellerman/bmad-mcp-server-sub003/internal/inventory"
	"github.com/mkellerman/bmad-mcp-server-sub003/internal/issue"
	"github.com/mkellerman/bmad-mcp-server-sub003/internal/remote"
)

// packageDirName is looked up next to the executable as the package origin.
const packageDirName = "bmad"

type (
	// Options configures an Engine. Only Config is required.
	Options struct {
		Config *config.Config
		// ProjectDir overrides Config.ProjectRoot and the working directory.
		ProjectDir string
		// Roots are paths or git URLs given on invocation (--root).
		Roots []string
		// Getenv supplies BMAD_ROOT and cache settings. Nil means os.Getenv.
		Getenv func(string) string
		Logger *slog.Logger
		// Git replaces the go-git runner of the remote cache.
		Git remote.Git
		// Builder replaces the inventory builder.
		Builder inventory.Builder
		// Offline drops remote locations instead of cloning them.
		Offline bool
	}

	// Engine runs discovery and builds catalogs. An Engine holds no results;
	// every Discover call starts from scratch.
	Engine struct {
		sources     discovery.Sources
		policy      catalog.Policy
		maxDepth    int
		cache       *remote.Cache
		builder     inventory.Builder
		logger      *slog.Logger
		diagnostics []discovery.Diagnostic
	}
)

// New validates opts and assembles the sources, policy and remote cache.
func New(opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	precedence, err := cfg.OriginPrecedence()
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	sourceOrder, err := cfg.SourceOrder()
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	refresh, err := cfg.Cache.RefreshDuration()
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	e := &Engine{
		policy: catalog.Policy{
			Precedence:       precedence,
			SourcePreference: sourceOrder,
		},
		maxDepth: cfg.MaxDepth,
		builder:  opts.Builder,
		logger:   logger,
	}

	cacheDir := cfg.Cache.Dir
	if cacheDir == "" {
		if cacheDir, err = remote.DefaultDir(getenv); err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
	}
	cacheOpts := []remote.Option{
		remote.WithRefreshInterval(refresh),
		remote.WithShortcuts(remote.MergeShortcuts(cfg.Shortcuts)),
		remote.WithLogger(logger),
	}
	if opts.Git != nil {
		cacheOpts = append(cacheOpts, remote.WithGit(opts.Git))
	}
	e.cache = remote.New(cacheDir, cacheOpts...)

	e.sources = e.buildSources(cfg, opts, getenv)
	return e, nil
}

// buildSources maps configuration onto discovery locations. Diagnostics for
// unusable inputs are kept and reported by every Discover call.
func (e *Engine) buildSources(cfg *config.Config, opts Options, getenv func(string) string) discovery.Sources {
	project := opts.ProjectDir
	if project == "" {
		project = cfg.ProjectRoot
	}
	if project == "" {
		wd, err := os.Getwd()
		if err != nil {
			e.diagnostics = append(e.diagnostics, discovery.NewDiagnosticWithCause(discovery.SeverityWarning,
				discovery.CodeWorkingDirUnavailable, "working directory unavailable; project location skipped", "", err))
		}
		project = wd
	}

	var cli []string
	for _, r := range slices.Concat(opts.Roots, cfg.SearchPaths) {
		expanded, err := config.ExpandPath(strings.TrimSpace(r), getenv)
		if err != nil {
			e.diagnostics = append(e.diagnostics, discovery.NewDiagnosticWithCause(discovery.SeverityWarning,
				discovery.CodeLocationInvalid, "cli location could not be expanded", r, err))
			continue
		}
		cli = append(cli, expanded)
	}

	env, err := config.ExpandPath(config.RootFromEnv(project, getenv), getenv)
	if err != nil {
		e.diagnostics = append(e.diagnostics, discovery.NewDiagnosticWithCause(discovery.SeverityWarning,
			discovery.CodeLocationInvalid, "env location could not be expanded", config.RootEnvVar, err))
		env = ""
	}

	pkg := cfg.PackageRoot
	if pkg == "" {
		pkg = defaultPackageRoot()
	}

	remotes := cfg.Remotes
	if opts.Offline {
		remotes = nil
		cli = dropRemote(cli)
		if remote.IsGitURL(env) {
			env = ""
		}
	}

	return discovery.Sources{
		Project: project,
		CLI:     cli,
		Env:     env,
		User:    cfg.UserRoot,
		Package: pkg,
		Remotes: remotes,
	}
}

// Sources returns the locations Discover searches.
func (e *Engine) Sources() discovery.Sources { return e.sources }

// Policy returns the resolution policy.
func (e *Engine) Policy() catalog.Policy { return e.policy }

// Cache returns the remote repository cache.
func (e *Engine) Cache() *remote.Cache { return e.cache }

// Discover finds every installation, builds every inventory and returns a
// Snapshot ready for queries. When no installation exists it returns the
// partial Snapshot and an *issue.ActionableError wrapping
// *discovery.NoOriginsError.
func (e *Engine) Discover(ctx context.Context) (*Snapshot, error) {
	d := discovery.New(e.sources,
		discovery.WithPrecedence(e.policy.Precedence),
		discovery.WithMaxDepth(e.maxDepth),
		discovery.WithRemoteResolver(e.cache),
		discovery.WithLogger(e.logger),
	)
	res, err := d.Discover(ctx)

	snap := &Snapshot{
		Attempts:    res.Attempts,
		Diagnostics: append(append([]discovery.Diagnostic{}, e.diagnostics...), res.Diagnostics...),
		Origins:     res.Origins,
	}
	if err != nil {
		var noOrigins *discovery.NoOriginsError
		if errors.As(err, &noOrigins) {
			return snap, noInstallationError(noOrigins)
		}
		return snap, err
	}

	snap.Pools = catalog.Aggregate(res.Origins, e.builder)
	snap.Catalog = catalog.New(snap.Pools, e.policy)
	snap.Diagnostics = append(snap.Diagnostics, poolDiagnostics(snap.Pools)...)

	e.logger.Debug("discovery complete",
		"origins", len(snap.Origins),
		"records", snap.Pools.Len(),
		"diagnostics", len(snap.Diagnostics))
	return snap, nil
}

// poolDiagnostics turns inventory failures, module problems and skipped
// manifest entries into diagnostics.
func poolDiagnostics(p *catalog.Pools) []discovery.Diagnostic {
	var out []discovery.Diagnostic
	for _, oe := range p.Errors {
		out = append(out, discovery.NewDiagnosticWithCause(discovery.SeverityError, discovery.CodeInventoryFailed,
			"inventory could not be built; origin skipped", oe.Origin.Root, oe.Err))
	}
	for _, m := range p.Modules {
		if m.Error != "" {
			out = append(out, discovery.NewDiagnosticWithPath(discovery.SeverityWarning, discovery.CodeModuleConfigProblem,
				fmt.Sprintf("module %s: %s", m.Name, m.Error), m.Path))
		}
	}
	for _, w := range p.Warnings {
		out = append(out, discovery.NewDiagnostic(discovery.SeverityWarning, discovery.CodeManifestEntrySkipped, w))
	}
	return out
}

func noInstallationError(err *discovery.NoOriginsError) error {
	ctx := issue.NewErrorContext().
		WithOperation("discover installations").
		WithSuggestion("Run 'npx bmad-method install' in your project").
		WithSuggestion("Point at an existing installation with --root or " + config.RootEnvVar).
		WithSuggestion("Use a remote installation, e.g. --root @bmad").
		WithIssue(issue.NoInstallationFoundId)
	for _, a := range err.Attempts {
		if a.Status == discovery.AttemptFailed && remote.IsGitURL(a.Location.Path) {
			ctx.WithSuggestion("Check network access and credentials for " + a.Location.Path)
			break
		}
	}
	return ctx.Wrap(err).BuildError()
}

func defaultPackageRoot() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Join(filepath.Dir(exe), packageDirName)
}

func dropRemote(paths []string) []string {
	out := paths[:0]
	for _, p := range paths {
		if !remote.IsGitURL(p) {
			out = append(out, p)
		}
	}
	return out
}
