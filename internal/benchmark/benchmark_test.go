// SPDX-License-Identifier: MPL-2.0

package benchmark

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/mkellerman/bmad-mcp-server-sub003/internal/catalog"
	"github.com/mkellerman/bmad-mcp-server-sub003/internal/config"
	"github.com/mkellerman/bmad-mcp-server-sub003/internal/detect"
	"github.com/mkellerman/bmad-mcp-server-sub003/internal/discovery"
	"github.com/mkellerman/bmad-mcp-server-sub003/internal/engine"
	"github.com/mkellerman/bmad-mcp-server-sub003/internal/inventory"
	"github.com/mkellerman/bmad-mcp-server-sub003/internal/testutil"
	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/bmadref"
	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/types"
)

// sampleConfig is a representative config.cue exercising every section.
const sampleConfig = `
user_root: "~/.bmad"
search_paths: ["~/work/shared-bmad", "/opt/bmad"]
remotes: ["@bmad", "git+https://github.com/acme/bmad-pack.git#main:bmad"]
precedence: ["project", "cli", "env", "user", "package", "remote"]
source_preference: ["manifest", "filesystem"]
max_depth: 4
log_level: "info"
shortcuts: {
	"acme": "git+https://github.com/acme/bmad-pack.git"
}
cache: {
	refresh_interval: "10m"
}
ui: {
	color_scheme: "dark"
}
`

// largeProject writes a v6 installation with modules*agents agents plus one
// workflow and one task per module.
func largeProject(b *testing.B, dir string, modules, agents int) *testutil.V6Fixture {
	b.Helper()
	names := make([]string, modules)
	for i := range names {
		names[i] = fmt.Sprintf("mod%02d", i)
	}
	f := testutil.NewV6Fixture(b, dir, names...)
	for _, m := range names {
		for a := range agents {
			f.Agent(m, fmt.Sprintf("agent%02d", a), testutil.Both)
		}
		f.Workflow(m, "plan", testutil.Both).Task(m, "review", testutil.Both)
	}
	return f.Write()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// BenchmarkConfigLoading benchmarks CUE parsing, schema validation and the
// viper merge of a full config file.
func BenchmarkConfigLoading(b *testing.B) {
	path := filepath.Join(b.TempDir(), "config.cue")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		b.Fatalf("Failed to write config: %v", err)
	}
	env := map[string]string{"HOME": "/home/bench"}
	opts := config.LoadOptions{ConfigFilePath: path, Getenv: func(k string) string { return env[k] }}

	b.ResetTimer()
	for b.Loop() {
		if _, _, err := config.LoadWithPath(context.Background(), opts); err != nil {
			b.Fatalf("Load failed: %v", err)
		}
	}
}

// BenchmarkDetect benchmarks format and version detection of one root.
func BenchmarkDetect(b *testing.B) {
	f := largeProject(b, b.TempDir(), 2, 2)

	b.ResetTimer()
	for b.Loop() {
		if res := detect.Detect(f.Root); res.Format != types.FormatV6 {
			b.Fatalf("Detect() format = %s", res.Format)
		}
	}
}

// BenchmarkFindRoots benchmarks the bounded directory walk over a project
// with unrelated sibling directories.
func BenchmarkFindRoots(b *testing.B) {
	project := b.TempDir()
	largeProject(b, project, 2, 2)
	for i := range 20 {
		testutil.MustMkdirAll(b, filepath.Join(project, "src", fmt.Sprintf("pkg%02d", i), "internal"), 0o755)
	}

	b.ResetTimer()
	for b.Loop() {
		if roots := discovery.FindRoots(project, discovery.DefaultMaxDepth); len(roots) != 1 {
			b.Fatalf("FindRoots() = %d roots, want 1", len(roots))
		}
	}
}

// BenchmarkInventoryV6 benchmarks manifest parsing, filesystem scanning and
// reconciliation of a large v6 installation.
func BenchmarkInventoryV6(b *testing.B) {
	f := largeProject(b, b.TempDir(), 8, 12)
	origin := &types.Origin{Kind: types.OriginProject, Root: f.Root, Format: types.FormatV6}

	b.ResetTimer()
	for b.Loop() {
		inv, err := inventory.Build(origin)
		if err != nil {
			b.Fatalf("Build failed: %v", err)
		}
		if len(inv.Agents) != 8*12 {
			b.Fatalf("agents = %d", len(inv.Agents))
		}
	}
}

// BenchmarkInventoryV4 benchmarks install-manifest reconciliation of a v4
// installation with an expansion pack.
func BenchmarkInventoryV4(b *testing.B) {
	project := b.TempDir()
	f := testutil.NewV4Fixture(b, project).Pack("infra")
	for i := range 40 {
		f.File(fmt.Sprintf(".bmad-core/agents/agent%02d.md", i), testutil.Both)
		f.File(fmt.Sprintf(".bmad-infra/tasks/task%02d.md", i), testutil.Both)
	}
	f.Write()
	origin := &types.Origin{Kind: types.OriginProject, Root: f.Root, Format: types.FormatV4}

	b.ResetTimer()
	for b.Loop() {
		if _, err := inventory.Build(origin); err != nil {
			b.Fatalf("Build failed: %v", err)
		}
	}
}

// BenchmarkResolve benchmarks grouping and winner selection across three
// overlapping installations.
func BenchmarkResolve(b *testing.B) {
	var origins []*types.Origin
	for i, kind := range []types.OriginKind{types.OriginProject, types.OriginUser, types.OriginPackage} {
		f := largeProject(b, filepath.Join(b.TempDir(), kind.String()), 4, 10)
		origins = append(origins, &types.Origin{Kind: kind, Root: f.Root, Format: types.FormatV6, Priority: i})
	}
	pools := catalog.Aggregate(origins, nil)
	policy := catalog.DefaultPolicy()

	b.ResetTimer()
	for b.Loop() {
		res := catalog.Resolve(pools, policy)
		if len(res.Agents) != 10 {
			b.Fatalf("winners = %d, want 10", len(res.Agents))
		}
	}
}

// BenchmarkFindByName benchmarks hits and misses; a miss computes fuzzy
// suggestions over every name.
func BenchmarkFindByName(b *testing.B) {
	f := largeProject(b, b.TempDir(), 6, 20)
	origin := &types.Origin{Kind: types.OriginProject, Root: f.Root, Format: types.FormatV6}
	cat := catalog.New(catalog.Aggregate([]*types.Origin{origin}, nil), catalog.Policy{})

	b.Run("hit", func(b *testing.B) {
		for b.Loop() {
			if _, err := cat.FindByName(types.ResourceAgent, "mod03/agent07"); err != nil {
				b.Fatalf("FindByName failed: %v", err)
			}
		}
	})
	b.Run("miss", func(b *testing.B) {
		for b.Loop() {
			if _, err := cat.FindByName(types.ResourceAgent, "agnet07"); err == nil {
				b.Fatal("FindByName should miss")
			}
		}
	})
}

// BenchmarkResolveFilePath benchmarks path reference parsing and suffix
// matching.
func BenchmarkResolveFilePath(b *testing.B) {
	f := largeProject(b, b.TempDir(), 6, 20)
	origin := &types.Origin{Kind: types.OriginProject, Root: f.Root, Format: types.FormatV6}
	cat := catalog.New(catalog.Aggregate([]*types.Origin{origin}, nil), catalog.Policy{})

	b.ResetTimer()
	for b.Loop() {
		if _, _, err := cat.ResolveFilePath("{project-root}/bmad/mod05/workflows/plan/workflow.yaml"); err != nil {
			b.Fatalf("ResolveFilePath failed: %v", err)
		}
	}
}

// BenchmarkSuggestions benchmarks Levenshtein ranking over a large name set.
func BenchmarkSuggestions(b *testing.B) {
	names := make([]string, 500)
	for i := range names {
		names[i] = fmt.Sprintf("agent-%03d", i)
	}

	b.ResetTimer()
	for b.Loop() {
		_ = bmadref.Suggestions("agnet-250", names, 3)
	}
}

// BenchmarkFullPipeline benchmarks a complete invocation: discovery over the
// project and user locations, inventory, aggregation and a lookup.
func BenchmarkFullPipeline(b *testing.B) {
	base := b.TempDir()
	project := filepath.Join(base, "project")
	user := filepath.Join(base, "home", ".bmad")
	largeProject(b, project, 4, 10)
	largeProject(b, user, 4, 10)

	cfg := config.DefaultConfig()
	cfg.UserRoot = user
	cfg.PackageRoot = filepath.Join(base, "pkg")
	cfg.Cache.Dir = filepath.Join(base, "cache")
	eng, err := engine.New(engine.Options{
		Config:     cfg,
		ProjectDir: project,
		Getenv:     func(string) string { return "" },
		Logger:     discardLogger(),
		Offline:    true,
	})
	if err != nil {
		b.Fatalf("engine.New failed: %v", err)
	}

	b.ResetTimer()
	for b.Loop() {
		snap, err := eng.Discover(context.Background())
		if err != nil {
			b.Fatalf("Discover failed: %v", err)
		}
		if _, err := snap.FindByName(types.ResourceAgent, "mod01/agent05"); err != nil {
			b.Fatalf("FindByName failed: %v", err)
		}
	}
}
