// SPDX-License-Identifier: MPL-2.0

package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// CacheDirEnv overrides the default cache directory.
	CacheDirEnv = "BMAD_CACHE_DIR"

	defaultConcurrency = 4
)

const (
	stateAbsent state = iota
	stateValid
	stateMismatched
	stateCorrupt
)

const (
	actionClone action = iota
	actionUpdate
	actionReclone
)

// ErrInvalidKey is returned by Clean for keys that are not plain entry names.
var ErrInvalidKey = errors.New("invalid cache key")

type (
	state  int
	action int

	// Clock supplies the current time for last-pull bookkeeping.
	Clock interface {
		Now() time.Time
	}

	systemClock struct{}

	// Cache resolves remote URLs to local directories.
	Cache struct {
		dir         string
		git         Git
		clock       Clock
		refresh     time.Duration
		shortcuts   Shortcuts
		logger      *slog.Logger
		concurrency int

		mu    sync.Mutex
		locks map[string]*sync.Mutex
	}

	// Option configures a Cache.
	Option func(*Cache)

	// Result is the outcome of resolving one URL.
	Result struct {
		URL  string
		Key  string
		Path string
		Err  error
	}

	// Entry describes one cache directory and its metadata.
	Entry struct {
		Key  string
		Dir  string
		Meta *Metadata
		// Err is set when the metadata is missing or unreadable.
		Err error
	}
)

var transitions = map[state]action{
	stateAbsent:     actionClone,
	stateValid:      actionUpdate,
	stateMismatched: actionReclone,
	stateCorrupt:    actionReclone,
}

func (s state) String() string {
	switch s {
	case stateAbsent:
		return "absent"
	case stateValid:
		return "valid"
	case stateMismatched:
		return "mismatched"
	default:
		return "corrupt"
	}
}

func (systemClock) Now() time.Time { return time.Now() }

// WithGit replaces the go-git runner.
func WithGit(g Git) Option { return func(c *Cache) { c.git = g } }

// WithClock replaces the system clock.
func WithClock(clk Clock) Option { return func(c *Cache) { c.clock = clk } }

// WithRefreshInterval lets a valid entry pulled within d be reused without
// touching the network. Zero always updates.
func WithRefreshInterval(d time.Duration) Option { return func(c *Cache) { c.refresh = d } }

// WithShortcuts sets the @name shortcut table.
func WithShortcuts(s Shortcuts) Option { return func(c *Cache) { c.shortcuts = s } }

// WithLogger sets the logger for self-healing events.
func WithLogger(l *slog.Logger) Option { return func(c *Cache) { c.logger = l } }

// WithConcurrency bounds parallel clones in ResolveAll.
func WithConcurrency(n int) Option { return func(c *Cache) { c.concurrency = n } }

// New creates a cache rooted at dir.
func New(dir string, opts ...Option) *Cache {
	c := &Cache{
		dir:         dir,
		clock:       systemClock{},
		shortcuts:   MergeShortcuts(nil),
		concurrency: defaultConcurrency,
		locks:       make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.git == nil {
		c.git = NewGoGit()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.concurrency < 1 {
		c.concurrency = 1
	}
	return c
}

// DefaultDir returns $BMAD_CACHE_DIR or ~/.cache/bmad/git.
func DefaultDir(getenv func(string) string) (string, error) {
	if dir := getenv(CacheDirEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".cache", "bmad", "git"), nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string { return c.dir }

// Shortcuts returns the cache's shortcut table.
func (c *Cache) Shortcuts() Shortcuts { return c.shortcuts }

// Resolve returns the local directory for raw, cloning or updating as needed.
// Only a failed fresh clone is returned as an error; update failures fall
// back to a reclone.
func (c *Cache) Resolve(ctx context.Context, raw string) (string, error) {
	r := c.resolve(ctx, raw)
	return r.Path, r.Err
}

// ResolveAll resolves independent URLs concurrently. Results are in input
// order; one failure does not cancel the others.
func (c *Cache) ResolveAll(ctx context.Context, urls []string) []Result {
	results := make([]Result, len(urls))
	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, u := range urls {
		g.Go(func() error {
			results[i] = c.resolve(ctx, u)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (c *Cache) resolve(ctx context.Context, raw string) Result {
	res := Result{URL: raw}

	expanded, err := c.shortcuts.Expand(raw)
	if err != nil {
		res.Err = err
		return res
	}
	spec, err := ParseURL(expanded)
	if err != nil {
		res.Err = err
		return res
	}
	res.Key = spec.Key()

	unlock := c.lock(res.Key)
	defer unlock()

	entryDir := filepath.Join(c.dir, res.Key)
	metaPath := entryDir + metaSuffix

	st, meta := c.inspect(spec, entryDir, metaPath)
	act := transitions[st]
	c.logger.Debug("remote cache", "url", spec.Raw, "key", res.Key, "state", st)

	switch act {
	case actionUpdate:
		if c.refresh > 0 && c.clock.Now().Sub(meta.LastPull) < c.refresh {
			break
		}
		if err := c.update(ctx, spec, entryDir, metaPath); err != nil {
			c.logger.Warn("remote cache update failed, recloning", "url", spec.Raw, "error", err)
			if err := c.reclone(ctx, spec, entryDir, metaPath); err != nil {
				res.Err = err
				return res
			}
		}
	case actionReclone:
		if err := c.reclone(ctx, spec, entryDir, metaPath); err != nil {
			res.Err = err
			return res
		}
	default:
		if err := c.clone(ctx, spec, entryDir, metaPath); err != nil {
			res.Err = err
			return res
		}
	}

	res.Path = spec.LocalPath(entryDir)
	return res
}

func (c *Cache) inspect(spec Spec, entryDir, metaPath string) (state, *Metadata) {
	info, err := os.Stat(entryDir)
	if err != nil || !info.IsDir() {
		return stateAbsent, nil
	}
	meta, err := readMetadata(metaPath)
	if err != nil {
		return stateCorrupt, nil
	}
	if _, err := os.Stat(filepath.Join(entryDir, ".git")); err != nil {
		return stateCorrupt, nil
	}
	if !meta.matches(spec) {
		return stateMismatched, meta
	}
	return stateValid, meta
}

func (c *Cache) clone(ctx context.Context, spec Spec, entryDir, metaPath string) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	commit, err := c.git.Clone(ctx, spec.CloneURL, spec.Ref, entryDir)
	if err != nil {
		_ = os.RemoveAll(entryDir)
		_ = os.Remove(metaPath)
		return fmt.Errorf("clone %s: %w", spec.Raw, err)
	}
	return c.record(spec, metaPath, commit)
}

func (c *Cache) update(ctx context.Context, spec Spec, entryDir, metaPath string) error {
	commit, err := c.git.Update(ctx, entryDir, spec.Ref)
	if err != nil {
		return err
	}
	return c.record(spec, metaPath, commit)
}

func (c *Cache) reclone(ctx context.Context, spec Spec, entryDir, metaPath string) error {
	if err := c.remove(entryDir, metaPath); err != nil {
		return err
	}
	return c.clone(ctx, spec, entryDir, metaPath)
}

func (c *Cache) record(spec Spec, metaPath, commit string) error {
	return writeMetadata(metaPath, &Metadata{
		SourceURL: spec.Raw,
		Ref:       spec.Ref,
		Subpath:   spec.Subpath,
		LastPull:  c.clock.Now().UTC(),
		Commit:    commit,
	})
}

func (c *Cache) remove(entryDir, metaPath string) error {
	if err := os.RemoveAll(entryDir); err != nil {
		return fmt.Errorf("remove %s: %w", entryDir, err)
	}
	if err := os.Remove(metaPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", metaPath, err)
	}
	return nil
}

// lock serializes work on one key and returns the matching unlock.
func (c *Cache) lock(key string) func() {
	c.mu.Lock()
	m, ok := c.locks[key]
	if !ok {
		m = &sync.Mutex{}
		c.locks[key] = m
	}
	c.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// Entries lists cache directories sorted by key. A directory without
// readable metadata is listed with Err set.
func (c *Cache) Entries() ([]Entry, error) {
	dirents, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache dir: %w", err)
	}

	var entries []Entry
	for _, d := range dirents {
		if !d.IsDir() {
			continue
		}
		e := Entry{Key: d.Name(), Dir: filepath.Join(c.dir, d.Name())}
		e.Meta, e.Err = readMetadata(e.Dir + metaSuffix)
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// Clean removes one entry and its metadata.
func (c *Cache) Clean(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	unlock := c.lock(key)
	defer unlock()
	return c.remove(filepath.Join(c.dir, key), filepath.Join(c.dir, key)+metaSuffix)
}

// Prune removes entries without readable metadata and metadata files whose
// directory is gone. It returns the removed keys.
func (c *Cache) Prune() ([]string, error) {
	dirents, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache dir: %w", err)
	}

	var removed []string
	seen := make(map[string]bool)
	for _, d := range dirents {
		name := d.Name()
		var key string
		switch {
		case d.IsDir():
			if _, err := readMetadata(filepath.Join(c.dir, name) + metaSuffix); err == nil {
				continue
			}
			key = name
		case strings.HasSuffix(name, metaSuffix):
			key = strings.TrimSuffix(name, metaSuffix)
			if info, err := os.Stat(filepath.Join(c.dir, key)); err == nil && info.IsDir() {
				continue
			}
		default:
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		if err := c.Clean(key); err != nil {
			return removed, err
		}
		removed = append(removed, key)
	}
	return removed, nil
}
