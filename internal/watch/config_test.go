// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		cfg        Config
		wantFields int
	}{
		{name: "zero value is valid", cfg: Config{}},
		{
			name: "all valid fields",
			cfg: Config{
				Roots:    []string{"/home/user/project/bmad", "~/.bmad"},
				Patterns: []string{"**/*.md", "**/_cfg/*.csv"},
				Ignore:   []string{"**/.git/**"},
			},
		},
		{name: "non-domain fields do not affect validity", cfg: Config{ClearScreen: true}},
		{name: "empty pattern", cfg: Config{Patterns: []string{""}}, wantFields: 1},
		{name: "empty ignore", cfg: Config{Ignore: []string{" "}}, wantFields: 1},
		{name: "whitespace root", cfg: Config{Roots: []string{"   "}}, wantFields: 1},
		{name: "invalid pattern syntax", cfg: Config{Patterns: []string{"[invalid"}}, wantFields: 1},
		{
			name: "multiple invalid fields",
			cfg: Config{
				Roots:    []string{""},
				Patterns: []string{"", "**/*.md", "{a"},
				Ignore:   []string{""},
			},
			wantFields: 4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantFields == 0 {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			var configErr *InvalidWatchConfigError
			if !errors.As(err, &configErr) {
				t.Fatalf("Validate() error = %v, want *InvalidWatchConfigError", err)
			}
			if len(configErr.FieldErrors) != tt.wantFields {
				t.Errorf("FieldErrors = %v, want %d", configErr.FieldErrors, tt.wantFields)
			}
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Roots: []string{t.TempDir()}, Patterns: []string{"[invalid"}})
	if !errors.Is(err, ErrInvalidWatchConfig) {
		t.Errorf("New() error = %v, want ErrInvalidWatchConfig", err)
	}
}

func TestInvalidWatchConfigError_Unwrap(t *testing.T) {
	t.Parallel()

	err := &InvalidWatchConfigError{FieldErrors: []error{errors.New("test")}}
	if !errors.Is(err, ErrInvalidWatchConfig) {
		t.Error("Unwrap() should return ErrInvalidWatchConfig")
	}
}
