// SPDX-License-Identifier: MPL-2.0

package remote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mkellerman/bmad-mcp-server-sub003/internal/testutil"
)

// fakeGit records calls and lays out a minimal repository on Clone.
type fakeGit struct {
	mu       sync.Mutex
	clones   int
	updates  int
	cloneErr error
	updErr   error

	active  atomic.Int32
	overlap atomic.Bool
}

func (f *fakeGit) enter() func() {
	if f.active.Add(1) > 1 {
		f.overlap.Store(true)
	}
	time.Sleep(time.Millisecond)
	return func() { f.active.Add(-1) }
}

func (f *fakeGit) Clone(_ context.Context, url, ref, dest string) (string, error) {
	defer f.enter()()
	f.mu.Lock()
	f.clones++
	err := f.cloneErr
	f.mu.Unlock()

	if err := os.MkdirAll(filepath.Join(dest, ".git"), 0o755); err != nil {
		return "", err
	}
	if err != nil {
		// Leave a partial directory behind, as an interrupted clone would.
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dest, "README.md"), []byte(url+"@"+ref), 0o644); err != nil {
		return "", err
	}
	return "c0ffee", nil
}

func (f *fakeGit) Update(_ context.Context, dir, _ string) (string, error) {
	defer f.enter()()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.updErr != nil {
		return "", f.updErr
	}
	return "beef01", nil
}

func (f *fakeGit) counts() (clones, updates int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clones, f.updates
}

func newTestCache(t *testing.T, g *fakeGit, opts ...Option) *Cache {
	t.Helper()
	opts = append([]Option{WithGit(g)}, opts...)
	return New(t.TempDir(), opts...)
}

func TestCache_CloneThenUpdate(t *testing.T) {
	t.Parallel()

	g := &fakeGit{}
	c := newTestCache(t, g)
	const url = "git+https://github.com/org/repo#main"

	first, err := c.Resolve(context.Background(), url)
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	second, err := c.Resolve(context.Background(), url)
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}

	if first != second {
		t.Errorf("paths differ: %q vs %q", first, second)
	}
	if clones, updates := g.counts(); clones != 1 || updates != 1 {
		t.Errorf("clones=%d updates=%d, want 1 and 1", clones, updates)
	}

	entries, err := c.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Meta == nil {
		t.Fatalf("Entries() = %+v", entries)
	}
	if entries[0].Meta.Commit != "beef01" {
		t.Errorf("Commit = %q, want the updated commit", entries[0].Meta.Commit)
	}
}

func TestCache_SubpathDisambiguation(t *testing.T) {
	t.Parallel()

	g := &fakeGit{}
	c := newTestCache(t, g)
	const (
		urlA = "git+https://github.com/org/repo#main:/a"
		urlB = "git+https://github.com/org/repo#main:/b"
	)

	pathA, err := c.Resolve(context.Background(), urlA)
	if err != nil {
		t.Fatal(err)
	}
	pathB, err := c.Resolve(context.Background(), urlB)
	if err != nil {
		t.Fatal(err)
	}

	if filepath.Dir(pathA) == filepath.Dir(pathB) {
		t.Errorf("entries share a directory: %q, %q", pathA, pathB)
	}

	specA, _ := ParseURL(urlA)
	meta, err := readMetadata(filepath.Join(c.Dir(), specA.Key()) + metaSuffix)
	if err != nil {
		t.Fatalf("entry A metadata: %v", err)
	}
	if meta.SourceURL != urlA || meta.Subpath != "a" {
		t.Errorf("entry A metadata changed: %+v", meta)
	}
	if clones, _ := g.counts(); clones != 2 {
		t.Errorf("clones = %d, want 2", clones)
	}
}

func TestCache_MismatchedMetadataReclones(t *testing.T) {
	t.Parallel()

	g := &fakeGit{}
	c := newTestCache(t, g)
	const url = "git+https://github.com/org/repo#main"
	spec, _ := ParseURL(url)
	entry := filepath.Join(c.Dir(), spec.Key())

	testutil.MustMkdirAll(t, filepath.Join(entry, ".git"), 0o755)
	testutil.MustWriteFile(t, filepath.Join(entry, "stale.txt"), "old")
	if err := writeMetadata(entry+metaSuffix, &Metadata{SourceURL: "git+https://github.com/other/repo", Ref: "main"}); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Resolve(context.Background(), url); err != nil {
		t.Fatal(err)
	}
	if clones, updates := g.counts(); clones != 1 || updates != 0 {
		t.Errorf("clones=%d updates=%d, want reclone only", clones, updates)
	}
	if _, err := os.Stat(filepath.Join(entry, "stale.txt")); !os.IsNotExist(err) {
		t.Error("stale file survived reclone")
	}
}

func TestCache_CorruptMetadataReclones(t *testing.T) {
	t.Parallel()

	g := &fakeGit{}
	c := newTestCache(t, g)
	const url = "git+https://github.com/org/repo#main"
	spec, _ := ParseURL(url)
	entry := filepath.Join(c.Dir(), spec.Key())

	testutil.MustMkdirAll(t, filepath.Join(entry, ".git"), 0o755)
	testutil.MustWriteFile(t, entry+metaSuffix, "this is = = not toml")

	if _, err := c.Resolve(context.Background(), url); err != nil {
		t.Fatal(err)
	}
	if clones, updates := g.counts(); clones != 1 || updates != 0 {
		t.Errorf("clones=%d updates=%d, want reclone only", clones, updates)
	}
	if _, err := readMetadata(entry + metaSuffix); err != nil {
		t.Errorf("metadata not rewritten: %v", err)
	}
}

func TestCache_UpdateFailureSelfHeals(t *testing.T) {
	t.Parallel()

	g := &fakeGit{}
	c := newTestCache(t, g)
	const url = "git+https://github.com/org/repo"

	if _, err := c.Resolve(context.Background(), url); err != nil {
		t.Fatal(err)
	}
	g.mu.Lock()
	g.updErr = errors.New("network down")
	g.mu.Unlock()

	if _, err := c.Resolve(context.Background(), url); err != nil {
		t.Fatalf("update failure surfaced: %v", err)
	}
	if clones, updates := g.counts(); clones != 2 || updates != 1 {
		t.Errorf("clones=%d updates=%d, want 2 and 1", clones, updates)
	}
}

func TestCache_CloneFailureCleansUp(t *testing.T) {
	t.Parallel()

	g := &fakeGit{cloneErr: errors.New("repository not found")}
	c := newTestCache(t, g)
	const url = "git+https://github.com/org/missing"

	path, err := c.Resolve(context.Background(), url)
	if err == nil {
		t.Fatal("expected clone error")
	}
	if path != "" {
		t.Errorf("path = %q, want empty on failure", path)
	}

	spec, _ := ParseURL(url)
	entry := filepath.Join(c.Dir(), spec.Key())
	if _, err := os.Stat(entry); !os.IsNotExist(err) {
		t.Error("partial clone directory left behind")
	}
	if _, err := os.Stat(entry + metaSuffix); !os.IsNotExist(err) {
		t.Error("metadata written for a failed clone")
	}
}

func TestCache_RefreshIntervalSkipsUpdate(t *testing.T) {
	t.Parallel()

	g := &fakeGit{}
	clock := testutil.NewFakeClock(time.Time{})
	c := newTestCache(t, g, WithClock(clock), WithRefreshInterval(time.Hour))
	const url = "git+https://github.com/org/repo"

	for range 3 {
		if _, err := c.Resolve(context.Background(), url); err != nil {
			t.Fatal(err)
		}
	}
	if clones, updates := g.counts(); clones != 1 || updates != 0 {
		t.Errorf("clones=%d updates=%d, want no updates inside the interval", clones, updates)
	}

	clock.Advance(2 * time.Hour)
	if _, err := c.Resolve(context.Background(), url); err != nil {
		t.Fatal(err)
	}
	if _, updates := g.counts(); updates != 1 {
		t.Errorf("updates = %d, want 1 after the interval elapsed", updates)
	}
}

func TestCache_ConcurrentSameKeySerialized(t *testing.T) {
	t.Parallel()

	g := &fakeGit{}
	c := newTestCache(t, g, WithConcurrency(8))
	const url = "git+https://github.com/org/repo"

	urls := make([]string, 8)
	for i := range urls {
		urls[i] = url
	}
	results := c.ResolveAll(context.Background(), urls)

	for i, r := range results {
		if r.Err != nil {
			t.Errorf("result %d: %v", i, r.Err)
		}
		if r.Path != results[0].Path {
			t.Errorf("result %d path %q differs from %q", i, r.Path, results[0].Path)
		}
	}
	if g.overlap.Load() {
		t.Error("git operations on one key overlapped")
	}
	if clones, updates := g.counts(); clones != 1 || updates != 7 {
		t.Errorf("clones=%d updates=%d, want 1 and 7", clones, updates)
	}
}

func TestCache_ResolveAllKeepsOrderAndErrors(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, &fakeGit{})
	urls := []string{
		"git+https://github.com/org/a",
		"not a url",
		"@missing",
		"git+https://github.com/org/b#dev:/sub",
	}
	results := c.ResolveAll(context.Background(), urls)

	if len(results) != len(urls) {
		t.Fatalf("got %d results", len(results))
	}
	for i, r := range results {
		if r.URL != urls[i] {
			t.Errorf("result %d URL = %q, want %q", i, r.URL, urls[i])
		}
	}
	if results[0].Err != nil || results[3].Err != nil {
		t.Errorf("valid URLs failed: %v, %v", results[0].Err, results[3].Err)
	}
	if !errors.Is(results[1].Err, ErrInvalidURL) {
		t.Errorf("invalid URL error = %v", results[1].Err)
	}
	if !errors.Is(results[2].Err, ErrUnknownShortcut) {
		t.Errorf("unknown shortcut error = %v", results[2].Err)
	}
	if filepath.Base(results[3].Path) != "sub" {
		t.Errorf("subpath not applied: %q", results[3].Path)
	}
}

func TestCache_CleanAndPrune(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, &fakeGit{})
	if _, err := c.Resolve(context.Background(), "git+https://github.com/org/keep"); err != nil {
		t.Fatal(err)
	}
	drop, err := c.Resolve(context.Background(), "git+https://github.com/org/drop")
	if err != nil {
		t.Fatal(err)
	}

	testutil.MustMkdirAll(t, filepath.Join(c.Dir(), "orphan-dir"), 0o755)
	testutil.MustWriteFile(t, filepath.Join(c.Dir(), "lonely"+metaSuffix), "source_url = 'x'\n")

	removed, err := c.Prune()
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(removed) != "[lonely orphan-dir]" {
		t.Errorf("Prune() removed %v", removed)
	}

	if err := c.Clean(filepath.Base(drop)); err != nil {
		t.Fatal(err)
	}
	entries, err := c.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Meta.SourceURL != "git+https://github.com/org/keep" {
		t.Errorf("Entries() after Clean = %+v", entries)
	}

	if err := c.Clean("../etc"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Clean(../etc) error = %v, want ErrInvalidKey", err)
	}
}

func TestDefaultDir(t *testing.T) {
	t.Parallel()

	dir, err := DefaultDir(func(k string) string {
		if k == CacheDirEnv {
			return "/tmp/bmad-cache"
		}
		return ""
	})
	if err != nil || dir != "/tmp/bmad-cache" {
		t.Errorf("DefaultDir with env = %q, %v", dir, err)
	}
}

func TestTokenAuth(t *testing.T) {
	t.Parallel()

	env := map[string]string{"GITLAB_TOKEN": "gl", "GIT_TOKEN": "g"}
	auth := tokenAuth(func(k string) string { return env[k] })
	if auth == nil || auth.String() == "" {
		t.Fatal("expected token auth")
	}
	if got := tokenAuth(func(string) string { return "" }); got != nil {
		t.Errorf("tokenAuth without tokens = %v, want nil", got)
	}
}
