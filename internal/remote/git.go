// SPDX-License-Identifier: MPL-2.0

package remote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

type (
	// Git performs the repository operations the cache needs. Both methods
	// return the commit the working tree ends up at.
	Git interface {
		// Clone makes a shallow clone of ref from url into dest.
		Clone(ctx context.Context, url, ref, dest string) (commit string, err error)
		// Update fetches ref into the repository at dir, hard-resets the
		// working tree to it and removes untracked files.
		Update(ctx context.Context, dir, ref string) (commit string, err error)
	}

	// GoGit implements Git with go-git. SSH URLs authenticate with a key from
	// ~/.ssh; HTTP URLs with GITHUB_TOKEN, GITLAB_TOKEN or GIT_TOKEN.
	GoGit struct {
		sshAuth  transport.AuthMethod
		httpAuth transport.AuthMethod
	}
)

// NewGoGit creates a go-git runner with credentials discovered from the
// environment.
func NewGoGit() *GoGit {
	home, _ := os.UserHomeDir()
	return &GoGit{sshAuth: sshKeyAuth(home), httpAuth: tokenAuth(os.Getenv)}
}

// authFor picks credentials matching the URL's transport. Local paths get none.
func (g *GoGit) authFor(url string) transport.AuthMethod {
	switch {
	case strings.HasPrefix(url, "ssh://"), strings.HasPrefix(url, "git@"):
		return g.sshAuth
	case strings.HasPrefix(url, "https://"), strings.HasPrefix(url, "http://"):
		return g.httpAuth
	default:
		return nil
	}
}

// Clone tries ref as a branch and then as a tag.
func (g *GoGit) Clone(ctx context.Context, url, ref, dest string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("failed to create parent directory: %w", err)
	}

	var lastErr error
	for _, name := range refCandidates(ref) {
		repo, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
			URL:           url,
			Auth:          g.authFor(url),
			ReferenceName: name,
			SingleBranch:  true,
			Depth:         1,
		})
		if err != nil {
			lastErr = err
			_ = os.RemoveAll(dest)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		head, err := repo.Head()
		if err != nil {
			return "", fmt.Errorf("failed to get HEAD: %w", err)
		}
		return head.Hash().String(), nil
	}
	return "", fmt.Errorf("clone %s at %s: %w", url, ref, lastErr)
}

// Update fetches ref with depth 1 and hard-resets the worktree to it.
func (g *GoGit) Update(ctx context.Context, dir, ref string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", dir, err)
	}

	var auth transport.AuthMethod
	if remote, err := repo.Remote("origin"); err == nil && len(remote.Config().URLs) > 0 {
		auth = g.authFor(remote.Config().URLs[0])
	}

	var (
		hash    plumbing.Hash
		lastErr error
	)
	for _, name := range refCandidates(ref) {
		local := localRefName(name)
		err := repo.FetchContext(ctx, &git.FetchOptions{
			RemoteName: "origin",
			Auth:       auth,
			RefSpecs:   []config.RefSpec{config.RefSpec(fmt.Sprintf("+%s:%s", name, local))},
			Depth:      1,
			Force:      true,
			Tags:       git.NoTags,
		})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			lastErr = err
			continue
		}
		r, err := repo.Reference(local, true)
		if err != nil {
			lastErr = err
			continue
		}
		hash = r.Hash()
		lastErr = nil
		break
	}
	if lastErr != nil {
		return "", fmt.Errorf("fetch %s: %w", ref, lastErr)
	}
	if hash.IsZero() {
		return "", fmt.Errorf("fetch %s: ref not found", ref)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: hash, Mode: git.HardReset}); err != nil {
		return "", fmt.Errorf("reset to %s: %w", hash, err)
	}
	if err := wt.Clean(&git.CleanOptions{Dir: true}); err != nil {
		return "", fmt.Errorf("clean worktree: %w", err)
	}
	return hash.String(), nil
}

func refCandidates(ref string) []plumbing.ReferenceName {
	return []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(ref),
		plumbing.NewTagReferenceName(ref),
	}
}

// localRefName maps a remote branch onto its remote-tracking ref; tags map
// onto themselves.
func localRefName(name plumbing.ReferenceName) plumbing.ReferenceName {
	if name.IsBranch() {
		return plumbing.NewRemoteReferenceName("origin", name.Short())
	}
	return name
}

func sshKeyAuth(home string) transport.AuthMethod {
	if home == "" {
		return nil
	}
	for _, key := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
		keyPath := filepath.Join(home, ".ssh", key)
		if _, err := os.Stat(keyPath); err != nil {
			continue
		}
		if auth, err := ssh.NewPublicKeysFromFile("git", keyPath, ""); err == nil {
			return auth
		}
	}
	return nil
}

func tokenAuth(getenv func(string) string) transport.AuthMethod {
	for _, c := range []struct{ env, user string }{
		{"GITHUB_TOKEN", "x-access-token"},
		{"GITLAB_TOKEN", "gitlab-ci-token"},
		{"GIT_TOKEN", "git"},
	} {
		if token := getenv(c.env); token != "" {
			return &http.BasicAuth{Username: c.user, Password: token}
		}
	}
	return nil
}
