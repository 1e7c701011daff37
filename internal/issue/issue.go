// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

const (
	NoInstallationFoundId Id = iota + 1
	ResourceNotFoundId
	FileReferenceNotFoundId
	InvalidReferenceId
	ManifestUnreadableId
	RemoteResolveFailedId
	CacheEntryNotFoundId
	ConfigLoadFailedId
	PermissionDeniedId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	Issue struct {
		id       Id          // ID used to lookup the issue
		mdMsg    MarkdownMsg // Markdown text that will be rendered
		docLinks []HttpLink
		extLinks []HttpLink // external links that might be useful for the user
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue's markdown with the glamour style at stylePath
// ("dark", "light", "notty" or a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
		for _, link := range i.extLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	methodDocs HttpLink = "https://github.com/bmad-code-org/BMAD-METHOD"

	noInstallationFoundIssue = &Issue{
		id: NoInstallationFoundId,
		mdMsg: `
# No BMAD installation found!

Every search location was tried and none of them held an installation.

## Search locations (in order of precedence):
1. The project directory (and bmad/, src/, packages/ below it)
2. Paths given with --root
3. The BMAD_ROOT environment variable (or BMAD_ROOT in the project .env)
4. The user directory (~/.bmad)
5. The package directory from your config file
6. Remote repositories from your config file

## Things you can try:
- Install BMAD into the project:
~~~
$ npx bmad-method install
~~~

- Point at an existing installation:
~~~
$ bmad discover --root /path/to/project/bmad
~~~

- Use a remote repository:
~~~
$ bmad discover --root @bmad
~~~`,
		docLinks: []HttpLink{methodDocs},
	}

	resourceNotFoundIssue = &Issue{
		id: ResourceNotFoundId,
		mdMsg: `
# Resource not found!

No installation provides an agent, workflow or task with that name.

## Things you can try:
- List what is available:
~~~
$ bmad list agents
~~~

- Qualify the name with its module if several modules ship it:
~~~
$ bmad find bmm/analyst
~~~

- Check the spelling; names are case-sensitive`,
	}

	fileReferenceNotFoundIssue = &Issue{
		id: FileReferenceNotFoundId,
		mdMsg: `
# File reference not found!

The path did not match any file present in a discovered installation.

## Accepted path shapes:
- ` + "`{project-root}/bmad/<module>/...`" + `
- ` + "`.bmad-<pack>/...`" + `
- ` + "`<module>/agents/<name>.md`" + ` or ` + "`agents/<name>.md`" + `

## Things you can try:
- Run ` + "`bmad discover`" + ` to see which files are declared but missing on disk`,
	}

	invalidReferenceIssue = &Issue{
		id: InvalidReferenceId,
		mdMsg: `
# Invalid reference!

Names take the form ` + "`name`" + ` or ` + "`module/name`" + `, and paths may not
contain ` + "`..`" + ` segments.

## Things you can try:
- Remove extra slashes from the name
- Use a path relative to the project or to the installation`,
	}

	manifestUnreadableIssue = &Issue{
		id: ManifestUnreadableId,
		mdMsg: `
# Manifest could not be read!

An installation's manifest exists but is not valid. That installation was
skipped; the others are still available.

## Things you can try:
- Check the YAML syntax of ` + "`_cfg/manifest.yaml`" + ` or ` + "`install-manifest.yaml`" + `
- Check the CSV files in ` + "`_cfg/`" + ` for unbalanced quotes
- Reinstall the affected modules`,
	}

	remoteResolveFailedIssue = &Issue{
		id: RemoteResolveFailedId,
		mdMsg: `
# Remote repository could not be cloned!

## Things you can try:
- Check the URL grammar:
~~~
git+https://github.com/<org>/<repo>.git#<ref>:/<subpath>
~~~

- For private repositories set GITHUB_TOKEN, GITLAB_TOKEN or GIT_TOKEN,
  or use an ssh URL with a key in ~/.ssh
- Clear the cache entry and retry:
~~~
$ bmad cache clean
~~~`,
	}

	cacheEntryNotFoundIssue = &Issue{
		id: CacheEntryNotFoundId,
		mdMsg: `
# Cache entry not found!

## Things you can try:
- List the cache entries:
~~~
$ bmad cache list
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be parsed or did not match the schema.

## Things you can try:
- Show where the configuration is read from:
~~~
$ bmad config path
~~~

- Write a fresh default configuration:
~~~
$ bmad config init --force
~~~

## Example configuration:
~~~cue
user_root: "~/.bmad"
max_depth: 3
precedence: ["project", "cli", "env", "user", "package", "remote"]
remotes: ["@bmad"]
cache: {
	refresh_interval: "1h"
}
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

A directory or file could not be read.

## Things you can try:
- Check the permissions of the installation directory
- Set BMAD_CACHE_DIR to a directory you own if the cache is not writable`,
	}

	issues = map[Id]*Issue{
		noInstallationFoundIssue.Id():   noInstallationFoundIssue,
		resourceNotFoundIssue.Id():      resourceNotFoundIssue,
		fileReferenceNotFoundIssue.Id(): fileReferenceNotFoundIssue,
		invalidReferenceIssue.Id():      invalidReferenceIssue,
		manifestUnreadableIssue.Id():    manifestUnreadableIssue,
		remoteResolveFailedIssue.Id():   remoteResolveFailedIssue,
		cacheEntryNotFoundIssue.Id():    cacheEntryNotFoundIssue,
		configLoadFailedIssue.Id():      configLoadFailedIssue,
		permissionDeniedIssue.Id():      permissionDeniedIssue,
	}
)

// Values returns every issue sorted by Id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int { return int(a.id - b.id) })
}

func Get(id Id) *Issue {
	return issues[id]
}
