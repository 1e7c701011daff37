// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mkellerman/bmad-mcp-server-sub003/internal/remote"
	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/types"
)

const (
	// AttemptFound means the location yielded at least one installation.
	AttemptFound AttemptStatus = "found"
	// AttemptMissing means the location does not exist.
	AttemptMissing AttemptStatus = "missing"
	// AttemptEmpty means the location exists but holds no installation.
	AttemptEmpty AttemptStatus = "no installation"
	// AttemptFailed means the location could not be resolved (e.g. a failed clone).
	AttemptFailed AttemptStatus = "failed"
)

// ErrNoOrigins is the sentinel wrapped by NoOriginsError.
var ErrNoOrigins = errors.New("no installation found")

type (
	// AttemptStatus summarizes what happened at one location.
	AttemptStatus string

	// Attempt records the outcome of searching one location.
	Attempt struct {
		Location Location
		// Path is the local directory searched; for remotes, the cache path.
		Path   string
		Status AttemptStatus
		Roots  int
		Err    error
	}

	// RemoteResolver turns git URLs into local directories.
	RemoteResolver interface {
		ResolveAll(ctx context.Context, urls []string) []remote.Result
	}

	// Discovery assembles Origins from Sources.
	Discovery struct {
		sources    Sources
		precedence []types.OriginKind
		maxDepth   int
		remote     RemoteResolver
		logger     *slog.Logger
	}

	// Option configures a Discovery.
	Option func(*Discovery)

	// Result is the outcome of one discovery run.
	Result struct {
		// Origins are in precedence order; Priority increases along the slice.
		Origins     []*types.Origin
		Attempts    []Attempt
		Diagnostics []Diagnostic
	}

	// NoOriginsError is returned when no location produced an installation.
	NoOriginsError struct {
		Attempts []Attempt
	}
)

// WithPrecedence sets the order in which origin kinds are searched.
func WithPrecedence(p []types.OriginKind) Option {
	return func(d *Discovery) { d.precedence = p }
}

// WithMaxDepth sets the root search depth.
func WithMaxDepth(n int) Option {
	return func(d *Discovery) { d.maxDepth = n }
}

// WithRemoteResolver enables git URL locations. Without one, URL locations
// fail with a diagnostic.
func WithRemoteResolver(r RemoteResolver) Option {
	return func(d *Discovery) { d.remote = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Discovery) { d.logger = l }
}

// New creates a Discovery over sources.
func New(sources Sources, opts ...Option) *Discovery {
	d := &Discovery{
		sources:    sources,
		precedence: types.DefaultPrecedence(),
		maxDepth:   DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Discover searches every location and returns the classified Origins. The
// Result is always returned; the error is a *NoOriginsError when nothing
// usable was found.
func (d *Discovery) Discover(ctx context.Context) (*Result, error) {
	locations := d.sources.Locations(d.precedence)
	resolved := d.resolveRemotes(ctx, locations)

	res := &Result{}
	seenRoots := make(map[string]types.OriginKind)
	priority := 0

	for _, loc := range locations {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		attempt := Attempt{Location: loc}

		dir, err := d.localDir(loc, resolved)
		if err != nil {
			attempt.Status = AttemptFailed
			attempt.Err = err
			res.Attempts = append(res.Attempts, attempt)
			code := CodeLocationInvalid
			if remote.IsGitURL(loc.Path) {
				code = CodeRemoteFailed
			}
			res.Diagnostics = append(res.Diagnostics, NewDiagnosticWithCause(SeverityWarning, code,
				fmt.Sprintf("%s location could not be resolved", loc.Kind), loc.Path, err))
			continue
		}
		attempt.Path = dir

		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			attempt.Status = AttemptMissing
			res.Attempts = append(res.Attempts, attempt)
			if loc.explicit() {
				res.Diagnostics = append(res.Diagnostics, NewDiagnosticWithPath(SeverityWarning, CodeLocationMissing,
					fmt.Sprintf("%s location does not exist", loc.Kind), dir))
			}
			continue
		}

		roots := FindRoots(dir, d.maxDepth)
		for _, r := range roots {
			if prev, dup := seenRoots[r.Path]; dup {
				res.Diagnostics = append(res.Diagnostics, NewDiagnosticWithPath(SeverityWarning, CodeDuplicateRoot,
					fmt.Sprintf("installation already found through the %s location", prev), r.Path))
				continue
			}
			seenRoots[r.Path] = loc.Kind
			priority++
			res.Origins = append(res.Origins, newOrigin(loc, r, priority))
			attempt.Roots++
		}

		if attempt.Roots > 0 {
			attempt.Status = AttemptFound
		} else {
			attempt.Status = AttemptEmpty
			if loc.explicit() {
				res.Diagnostics = append(res.Diagnostics, NewDiagnosticWithPath(SeverityWarning, CodeLocationEmpty,
					fmt.Sprintf("%s location holds no installation", loc.Kind), dir))
			}
		}
		res.Attempts = append(res.Attempts, attempt)
		d.logger.Debug("searched location", "kind", loc.Kind, "path", dir, "roots", attempt.Roots)
	}

	if len(res.Origins) == 0 {
		return res, &NoOriginsError{Attempts: res.Attempts}
	}
	return res, nil
}

// resolveRemotes clones every URL location up front, concurrently.
func (d *Discovery) resolveRemotes(ctx context.Context, locations []Location) map[string]remote.Result {
	var urls []string
	for _, l := range locations {
		if remote.IsGitURL(l.Path) {
			urls = append(urls, l.Path)
		}
	}
	out := make(map[string]remote.Result, len(urls))
	if len(urls) == 0 {
		return out
	}
	if d.remote == nil {
		for _, u := range urls {
			out[u] = remote.Result{URL: u, Err: errors.New("remote locations are not enabled")}
		}
		return out
	}
	for _, r := range d.remote.ResolveAll(ctx, urls) {
		out[r.URL] = r
	}
	return out
}

func (d *Discovery) localDir(loc Location, resolved map[string]remote.Result) (string, error) {
	if remote.IsGitURL(loc.Path) {
		r, ok := resolved[loc.Path]
		if !ok {
			return "", fmt.Errorf("remote %s was not resolved", loc.Path)
		}
		return r.Path, r.Err
	}
	return filepath.Abs(loc.Path)
}

func newOrigin(loc Location, r Root, priority int) *types.Origin {
	display := string(loc.Kind) + ":" + filepath.Base(r.Path)
	if remote.IsGitURL(loc.Path) {
		display = string(loc.Kind) + ":" + loc.Path
	}
	return &types.Origin{
		Kind:             loc.Kind,
		Root:             r.Path,
		ManifestDir:      r.Detection.ManifestDir,
		Format:           r.Format,
		DisplayName:      display,
		Priority:         priority,
		InstalledVersion: r.Detection.Version,
		Depth:            r.Depth,
		Location:         loc.Path,
	}
}

// Error lists every attempted location with its status.
func (e *NoOriginsError) Error() string {
	var b strings.Builder
	b.WriteString("no installation found")
	if len(e.Attempts) == 0 {
		b.WriteString(": no locations configured")
		return b.String()
	}
	b.WriteString("; searched:")
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "\n  - %s %s: %s", a.Location.Kind, a.Location.Path, a.Status)
		if a.Err != nil {
			fmt.Fprintf(&b, " (%v)", a.Err)
		}
	}
	return b.String()
}

// Unwrap returns ErrNoOrigins for errors.Is compatibility.
func (e *NoOriginsError) Unwrap() error { return ErrNoOrigins }
