// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mkInstall creates the directories of a minimal v6 installation under dir.
func mkInstall(t *testing.T, dir string) {
	t.Helper()
	for _, sub := range []string{"_cfg", "bmm/agents", "bmm/workflows/prd"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// runWatcher starts w and returns a stop function that cancels it and
// asserts a clean shutdown.
func runWatcher(t *testing.T, w *Watcher) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	// Give the event loop time to start.
	time.Sleep(50 * time.Millisecond)
	return func() {
		cancel()
		select {
		case err := <-errCh:
			if err != nil {
				t.Fatalf("Run() error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Run() did not return after context cancellation")
		}
	}
}

func TestWatcherDebounce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mkInstall(t, dir)

	var (
		mu        sync.Mutex
		calls     int
		collected []string
	)
	done := make(chan struct{})

	w, err := New(Config{
		Roots:    []string{dir},
		Debounce: 100 * time.Millisecond,
		Logger:   discardLogger(),
		OnChange: func(_ context.Context, changed []string) error {
			mu.Lock()
			defer mu.Unlock()
			calls++
			collected = append(collected, changed...)
			if calls == 1 {
				close(done)
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := runWatcher(t, w)

	files := []string{
		filepath.Join(dir, "_cfg", "manifest.yaml"),
		filepath.Join(dir, "bmm", "agents", "pm.md"),
		filepath.Join(dir, "bmm", "workflows", "prd", "workflow.yaml"),
	}
	for _, f := range files {
		writeFile(t, f, "x")
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
	time.Sleep(200 * time.Millisecond)
	stop()

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("expected 1 debounced callback, got %d", calls)
	}
	for _, want := range files {
		if !slices.Contains(collected, want) {
			t.Errorf("expected %q in changed files, got %v", want, collected)
		}
	}
	if !slices.IsSorted(collected) {
		t.Errorf("changed paths should be sorted: %v", collected)
	}
}

func TestWatcherDefaultPatternsFilter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mkInstall(t, dir)

	fired := make(chan []string, 10)
	w, err := New(Config{
		Roots:    []string{dir},
		Debounce: 50 * time.Millisecond,
		Logger:   discardLogger(),
		OnChange: func(_ context.Context, changed []string) error {
			fired <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := runWatcher(t, w)
	defer stop()

	// Not a resource or manifest.
	writeFile(t, filepath.Join(dir, "notes.txt"), "x")
	time.Sleep(200 * time.Millisecond)

	agent := filepath.Join(dir, "bmm", "agents", "analyst.md")
	writeFile(t, agent, "x")

	select {
	case changed := <-fired:
		if slices.Contains(changed, filepath.Join(dir, "notes.txt")) {
			t.Error("notes.txt should not trigger a callback")
		}
		if !slices.Contains(changed, agent) {
			t.Errorf("expected %s in changed set, got %v", agent, changed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback on agent file")
	}
}

func TestWatcherIgnorePatterns(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mkInstall(t, dir)

	fired := make(chan []string, 10)
	w, err := New(Config{
		Roots:    []string{dir},
		Patterns: []string{"**/*.md"},
		Ignore:   []string{"**/draft-*.md"},
		Debounce: 50 * time.Millisecond,
		Logger:   discardLogger(),
		OnChange: func(_ context.Context, changed []string) error {
			fired <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := runWatcher(t, w)
	defer stop()

	writeFile(t, filepath.Join(dir, "bmm", "agents", "draft-pm.md"), "x")
	time.Sleep(200 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "bmm", "agents", "pm.md"), "x")

	select {
	case changed := <-fired:
		if len(changed) != 1 || filepath.Base(changed[0]) != "pm.md" {
			t.Errorf("changed = %v, want only pm.md", changed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
}

func TestWatcherMultipleRoots(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	user := t.TempDir()
	mkInstall(t, project)
	mkInstall(t, user)

	fired := make(chan []string, 10)
	w, err := New(Config{
		Roots:    []string{project, user, project},
		Debounce: 50 * time.Millisecond,
		Logger:   discardLogger(),
		OnChange: func(_ context.Context, changed []string) error {
			fired <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if got := w.Roots(); len(got) != 2 {
		t.Errorf("Roots() = %v, want duplicates removed", got)
	}
	stop := runWatcher(t, w)
	defer stop()

	cfg := filepath.Join(user, "bmm", "config.yaml")
	writeFile(t, cfg, "user_name: x")

	select {
	case changed := <-fired:
		if !slices.Contains(changed, cfg) {
			t.Errorf("expected %s in changed set, got %v", cfg, changed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback from second root")
	}
}

func TestWatcherNewDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mkInstall(t, dir)

	fired := make(chan []string, 10)
	w, err := New(Config{
		Roots:    []string{dir},
		Debounce: 50 * time.Millisecond,
		Logger:   discardLogger(),
		OnChange: func(_ context.Context, changed []string) error {
			fired <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := runWatcher(t, w)
	defer stop()

	// One level at a time so each directory is registered before its child
	// is created.
	agents := filepath.Join(dir, "cis", "agents")
	for _, d := range []string{filepath.Dir(agents), agents} {
		if err := os.Mkdir(d, 0o755); err != nil {
			t.Fatal(err)
		}
		time.Sleep(150 * time.Millisecond)
	}
	writeFile(t, filepath.Join(agents, "muse.md"), "x")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case changed := <-fired:
			if slices.Contains(changed, filepath.Join(agents, "muse.md")) {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for callback from a directory created after start")
		}
	}
}

func TestWatcherSkipIfBusy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mkInstall(t, dir)

	var (
		mu         sync.Mutex
		calls      int
		concurrent bool
		active     bool
	)
	firstCallDone := make(chan struct{})

	w, err := New(Config{
		Roots:    []string{dir},
		Patterns: []string{"**/*.md"},
		Debounce: 50 * time.Millisecond,
		Logger:   discardLogger(),
		OnChange: func(_ context.Context, _ []string) error {
			mu.Lock()
			if active {
				concurrent = true
			}
			active = true
			calls++
			callNum := calls
			mu.Unlock()

			if callNum == 1 {
				time.Sleep(300 * time.Millisecond)
				close(firstCallDone)
			}
			mu.Lock()
			active = false
			mu.Unlock()
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := runWatcher(t, w)

	writeFile(t, filepath.Join(dir, "bmm", "agents", "first.md"), "1")
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "bmm", "agents", "second.md"), "2")

	select {
	case <-firstCallDone:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for first callback")
	}
	time.Sleep(200 * time.Millisecond)
	stop()

	mu.Lock()
	defer mu.Unlock()
	if concurrent {
		t.Error("callbacks ran concurrently")
	}
	if calls > 2 {
		t.Errorf("expected at most 2 callback invocations, got %d", calls)
	}
}

func TestWatcherClearScreen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mkInstall(t, dir)

	done := make(chan struct{})
	stdoutBuf := &bytes.Buffer{}

	w, err := New(Config{
		Roots:       []string{dir},
		Debounce:    50 * time.Millisecond,
		ClearScreen: true,
		Stdout:      stdoutBuf,
		Logger:      discardLogger(),
		OnChange: func(_ context.Context, _ []string) error {
			close(done)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := runWatcher(t, w)

	writeFile(t, filepath.Join(dir, "_cfg", "agent-manifest.csv"), "name\n")

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
	stop()

	if out := stdoutBuf.String(); !strings.Contains(out, "\033[2J\033[H") {
		t.Errorf("expected ANSI clear sequence in stdout, got %q", out)
	}
}

func TestWatcherContextCancel(t *testing.T) {
	t.Parallel()

	w, err := New(Config{Roots: []string{t.TempDir()}, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	runWatcher(t, w)()
}

func TestWatcherMissingRootIsSkipped(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	missing := filepath.Join(t.TempDir(), "not-installed")
	w, err := New(Config{
		Roots:  []string{missing},
		Logger: slog.New(slog.NewTextHandler(&logs, nil)),
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	runWatcher(t, w)()
	if !strings.Contains(logs.String(), "not a directory") {
		t.Errorf("expected a warning for the missing root, got %q", logs.String())
	}
}

func TestWatcherDoubleRunError(t *testing.T) {
	t.Parallel()

	w, err := New(Config{Roots: []string{t.TempDir()}, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := runWatcher(t, w)
	defer stop()

	err = w.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "Run called more than once") {
		t.Errorf("second Run() error = %v", err)
	}
}

func TestDefaultPatterns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path  string
		match bool
	}{
		{"_cfg/manifest.yaml", true},
		{"bmad/_cfg/workflow-manifest.csv", true},
		{".bmad-core/install-manifest.yaml", true},
		{"bmm/config.yaml", true},
		{".bmad-core/core-config.yaml", true},
		{"bmm/agents/pm.md", true},
		{"bmm/agents/sub/pm.md", true},
		{"bmm/workflows/prd/workflow.yaml", true},
		{"bmm/workflows/prd/instructions.md", true},
		{"core/tasks/review.xml", true},
		{"README.md", false},
		{"bmm/docs/guide.md", false},
		{"bmm/agents/logo.png", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			if got := matchAny(DefaultPatterns(), tt.path); got != tt.match {
				t.Errorf("matchAny(DefaultPatterns(), %q) = %v, want %v", tt.path, got, tt.match)
			}
		})
	}
}

func TestDefaultIgnores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path    string
		ignored bool
	}{
		{".git/config", true},
		{".git/objects/ab/cd1234", true},
		{"node_modules/bmad-method/index.js", true},
		{"tools/__pycache__/mod.cpython.pyc", true},
		{"pm.md.swp", true},
		{"pm.md.swo", true},
		{"backup~", true},
		{"sub/.DS_Store", true},
		{"bmm/agents/pm.md", false},
		{".gitignore", false},
		{".bmad-core/install-manifest.yaml", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			if got := matchAny(DefaultIgnores(), tt.path); got != tt.ignored {
				t.Errorf("matchAny(DefaultIgnores(), %q) = %v, want %v", tt.path, got, tt.ignored)
			}
		})
	}
}

func TestRelativeUsesDeepestRoot(t *testing.T) {
	t.Parallel()

	outer := filepath.FromSlash("/work/project")
	inner := filepath.Join(outer, "bmad")
	w := &Watcher{roots: []string{outer, inner}}

	rel, ok := w.relative(filepath.Join(inner, "_cfg", "manifest.yaml"))
	if !ok || filepath.ToSlash(rel) != "_cfg/manifest.yaml" {
		t.Errorf("relative() = %q, %v", rel, ok)
	}
	if _, ok := w.relative(filepath.FromSlash("/elsewhere/x.md")); ok {
		t.Error("paths outside every root should not be relative")
	}
}
