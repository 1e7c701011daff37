// SPDX-License-Identifier: MPL-2.0

package types

import "fmt"

// Origin is one classified installation source. Origins are built fresh on
// every discovery run and never modified afterwards.
type Origin struct {
	// Kind is where the installation came from.
	Kind OriginKind
	// Root is the absolute installation root directory.
	Root string
	// ManifestDir holds the manifest files: <root>/_cfg for v6, <root> for v4.
	// Empty for custom installations.
	ManifestDir string
	// Format is the detected on-disk layout.
	Format Format
	// DisplayName is a short human label ("project", "user", a repository name).
	DisplayName string
	// Priority orders origins of the same kind. Lower is preferred.
	Priority int
	// InstalledVersion is the version the manifest declares, if any.
	InstalledVersion string
	// Depth is how far below its search location the root was found.
	Depth int
	// Location is the user-facing location the origin was discovered from.
	// For remote origins this is the git URL.
	Location string
}

// String renders the origin as "<kind>:<root>".
func (o *Origin) String() string {
	if o == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s:%s", o.Kind, o.Root)
}
