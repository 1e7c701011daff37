// SPDX-License-Identifier: MPL-2.0

package remote

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const metaSuffix = ".meta.toml"

// Metadata is persisted beside each cache entry.
type Metadata struct {
	SourceURL string    `toml:"source_url"`
	Ref       string    `toml:"ref"`
	Subpath   string    `toml:"subpath"`
	LastPull  time.Time `toml:"last_pull"`
	Commit    string    `toml:"commit"`
}

// matches reports whether m describes the same request as spec.
func (m *Metadata) matches(spec Spec) bool {
	return m.SourceURL == spec.Raw && m.Ref == spec.Ref && m.Subpath == spec.Subpath
}

func readMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Metadata
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if m.SourceURL == "" {
		return nil, fmt.Errorf("parse %s: missing source_url", path)
	}
	return &m, nil
}

func writeMetadata(path string, m *Metadata) error {
	data, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
