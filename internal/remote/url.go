// SPDX-License-Identifier: MPL-2.0

package remote

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// DefaultRef is used when a URL names no ref.
	DefaultRef = "main"

	schemePrefix  = "git+"
	subpathMarker = ":/"
	urlHashLen    = 16
)

// ErrInvalidURL is the sentinel wrapped by InvalidURLError.
var ErrInvalidURL = errors.New("invalid git URL")

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type (
	// Spec is a parsed remote location.
	Spec struct {
		// Raw is the full URL as requested, after shortcut expansion.
		Raw       string
		Transport string
		Host      string
		// Org may contain slashes for nested groups.
		Org     string
		Repo    string
		Ref     string
		Subpath string
		// CloneURL is the transport URL handed to git.
		CloneURL string
	}

	// InvalidURLError describes why a URL was rejected.
	InvalidURLError struct {
		URL    string
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid git URL %q: %s", e.URL, e.Reason)
}

// Unwrap returns ErrInvalidURL for errors.Is compatibility.
func (e *InvalidURLError) Unwrap() error { return ErrInvalidURL }

// IsGitURL reports whether s uses the git+<transport>:// scheme or the
// @shortcut notation. It does not validate the rest of the URL.
func IsGitURL(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, schemePrefix) || strings.HasPrefix(s, "@")
}

// ParseURL parses a git+<transport>:// URL. Shortcuts must be expanded first.
func ParseURL(raw string) (Spec, error) {
	s := strings.TrimSpace(raw)
	fail := func(reason string) (Spec, error) {
		return Spec{}, &InvalidURLError{URL: raw, Reason: reason}
	}

	rest, ok := strings.CutPrefix(s, schemePrefix)
	if !ok {
		return fail("missing git+ scheme prefix")
	}
	transport, rest, ok := strings.Cut(rest, "://")
	if !ok || transport == "" {
		return fail("missing transport")
	}
	switch transport {
	case "https", "http", "ssh", "file":
	default:
		return fail(fmt.Sprintf("unsupported transport %q", transport))
	}

	spec := Spec{Raw: s, Transport: transport, Ref: DefaultRef}

	if i := strings.Index(rest, subpathMarker); i >= 0 {
		spec.Subpath = strings.Trim(rest[i+len(subpathMarker):], "/")
		rest = rest[:i]
		if spec.Subpath == "" {
			return fail("empty subpath")
		}
		for _, seg := range strings.Split(spec.Subpath, "/") {
			if seg == ".." {
				return fail("subpath escapes the repository")
			}
		}
	}
	if i := strings.IndexByte(rest, '#'); i >= 0 {
		spec.Ref = rest[i+1:]
		rest = rest[:i]
		if spec.Ref == "" {
			return fail("empty ref")
		}
	}

	repoPath := strings.TrimSuffix(rest, "/")
	if transport == "file" {
		return parseFileSpec(spec, repoPath, fail)
	}

	segs := strings.Split(repoPath, "/")
	if len(segs) < 3 {
		return fail("want <host>/<org>/<repo>")
	}
	for _, seg := range segs {
		if seg == "" {
			return fail("empty path segment")
		}
	}
	spec.Host = segs[0]
	spec.Org = strings.Join(segs[1:len(segs)-1], "/")
	spec.Repo = strings.TrimSuffix(segs[len(segs)-1], ".git")
	if spec.Repo == "" {
		return fail("empty repository name")
	}
	spec.CloneURL = transport + "://" + repoPath
	return spec, nil
}

func parseFileSpec(spec Spec, repoPath string, fail func(string) (Spec, error)) (Spec, error) {
	if !strings.HasPrefix(repoPath, "/") {
		return fail("file transport needs an absolute path")
	}
	clean := path.Clean(repoPath)
	spec.Host = "local"
	spec.Org = path.Base(path.Dir(clean))
	spec.Repo = strings.TrimSuffix(path.Base(clean), ".git")
	spec.CloneURL = clean
	return spec, nil
}

// Key returns the cache key: <host>-<org>-<repo>-<ref>-<16 hex of sha256(Raw)>.
// The URL hash separates requests for different subpaths of one repository.
func (s Spec) Key() string {
	sum := sha256.Sum256([]byte(s.Raw))
	parts := []string{
		hostName(s.Host),
		strings.ReplaceAll(s.Org, "/", "-"),
		s.Repo,
		s.Ref,
		hex.EncodeToString(sum[:])[:urlHashLen],
	}
	for i, p := range parts {
		parts[i] = sanitize(p)
	}
	return strings.Join(parts, "-")
}

// LocalPath joins the subpath, if any, onto an entry directory.
func (s Spec) LocalPath(entryDir string) string {
	if s.Subpath == "" {
		return entryDir
	}
	return filepath.Join(entryDir, filepath.FromSlash(s.Subpath))
}

// hostName drops user info and port ("git@github.com:22" -> "github.com").
func hostName(h string) string {
	if i := strings.LastIndexByte(h, '@'); i >= 0 {
		h = h[i+1:]
	}
	if i := strings.IndexByte(h, ':'); i >= 0 {
		h = h[:i]
	}
	return h
}

func sanitize(s string) string {
	return strings.Trim(unsafeKeyChars.ReplaceAllString(s, "_"), "_")
}
