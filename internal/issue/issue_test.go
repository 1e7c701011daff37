// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func allIds() []Id {
	return []Id{
		NoInstallationFoundId,
		ResourceNotFoundId,
		FileReferenceNotFoundId,
		InvalidReferenceId,
		ManifestUnreadableId,
		RemoteResolveFailedId,
		CacheEntryNotFoundId,
		ConfigLoadFailedId,
		PermissionDeniedId,
	}
}

// mockRender replaces the glamour renderer with the identity function for
// the duration of a test.
func mockRender(t *testing.T) {
	t.Helper()
	original := render
	t.Cleanup(func() { render = original })
	render = func(in string, _ string) (string, error) { return in, nil }
}

func TestId_Constants(t *testing.T) {
	t.Parallel()

	seen := make(map[Id]bool)
	for _, id := range allIds() {
		if seen[id] {
			t.Errorf("duplicate ID: %d", id)
		}
		seen[id] = true
	}
	if NoInstallationFoundId != 1 {
		t.Errorf("NoInstallationFoundId = %d, want 1", NoInstallationFoundId)
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id       Id
		wantNil  bool
		contains string
	}{
		{NoInstallationFoundId, false, "No BMAD installation found"},
		{ResourceNotFoundId, false, "Resource not found"},
		{FileReferenceNotFoundId, false, "File reference not found"},
		{InvalidReferenceId, false, "Invalid reference"},
		{ManifestUnreadableId, false, "Manifest could not be read"},
		{RemoteResolveFailedId, false, "could not be cloned"},
		{CacheEntryNotFoundId, false, "Cache entry not found"},
		{ConfigLoadFailedId, false, "Failed to load configuration"},
		{PermissionDeniedId, false, "Permission denied"},
		{Id(9999), true, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.contains, func(t *testing.T) {
			t.Parallel()
			issue := Get(tt.id)
			if tt.wantNil {
				if issue != nil {
					t.Errorf("Get(%d) should return nil", tt.id)
				}
				return
			}
			if issue == nil {
				t.Fatalf("Get(%d) returned nil", tt.id)
			}
			if issue.Id() != tt.id {
				t.Errorf("Id() = %d, want %d", issue.Id(), tt.id)
			}
			if !strings.Contains(string(issue.MarkdownMsg()), tt.contains) {
				t.Errorf("Get(%d).MarkdownMsg() should contain %q", tt.id, tt.contains)
			}
		})
	}
}

func TestValues(t *testing.T) {
	t.Parallel()

	issues := Values()
	if len(issues) != len(allIds()) {
		t.Fatalf("Values() returned %d issues, want %d", len(issues), len(allIds()))
	}
	for i, issue := range issues {
		if issue.Id() != allIds()[i] {
			t.Errorf("Values()[%d].Id() = %d, want %d (sorted)", i, issue.Id(), allIds()[i])
		}
		if issue.MarkdownMsg() == "" {
			t.Errorf("issue %d has empty MarkdownMsg", issue.Id())
		}
	}
}

func TestIssue_LinksAreCloned(t *testing.T) {
	t.Parallel()

	issue := Get(NoInstallationFoundId)
	links := issue.DocLinks()
	if len(links) == 0 {
		t.Fatal("NoInstallationFound should carry a doc link")
	}
	original := links[0]
	links[0] = "modified"
	if issue.DocLinks()[0] != original {
		t.Error("DocLinks() should return a clone")
	}
	if issue.ExtLinks() != nil {
		t.Error("ExtLinks() should be nil when no links are set")
	}
}

// Tests below swap the package-level renderer and so do not run in parallel.

func TestIssue_Render(t *testing.T) {
	mockRender(t)

	tests := []struct {
		name      string
		issue     *Issue
		wantLinks bool
	}{
		{
			name:      "with links",
			issue:     &Issue{id: Id(9999), mdMsg: "# Test", docLinks: []HttpLink{"https://docs.example.com"}, extLinks: []HttpLink{"https://ext.example.com"}},
			wantLinks: true,
		},
		{
			name:  "without links",
			issue: &Issue{id: Id(9998), mdMsg: "# Test"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rendered, err := tt.issue.Render("")
			if err != nil {
				t.Fatalf("Render() returned error: %v", err)
			}
			if got := strings.Contains(rendered, "See also"); got != tt.wantLinks {
				t.Errorf("contains See also = %v, want %v", got, tt.wantLinks)
			}
			if tt.wantLinks && !strings.Contains(rendered, "https://ext.example.com") {
				t.Error("Render() should list external links")
			}
		})
	}
}

func TestAllIssuesAreRenderable(t *testing.T) {
	mockRender(t)

	for _, issue := range Values() {
		rendered, err := issue.Render("notty")
		if err != nil {
			t.Errorf("issue %d failed to render: %v", issue.Id(), err)
		}
		if rendered == "" {
			t.Errorf("issue %d rendered to empty string", issue.Id())
		}
	}
}

func TestIssue_RenderGlamour(t *testing.T) {
	rendered, err := Get(ResourceNotFoundId).Render("notty")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if !strings.Contains(rendered, "bmad list agents") {
		t.Errorf("rendered output missing command example:\n%s", rendered)
	}
}
