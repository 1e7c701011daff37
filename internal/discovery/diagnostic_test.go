// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"testing"
)

func TestSeverity_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		severity Severity
		want     bool
	}{
		{SeverityWarning, true},
		{SeverityError, true},
		{"", false},
		{"WARNING", false},
	}

	for _, tt := range tests {
		isValid, errs := tt.severity.IsValid()
		if isValid != tt.want {
			t.Errorf("Severity(%q).IsValid() = %v, want %v", tt.severity, isValid, tt.want)
		}
		if !tt.want && (len(errs) == 0 || !errors.Is(errs[0], ErrInvalidSeverity)) {
			t.Errorf("Severity(%q).IsValid() errors = %v, want ErrInvalidSeverity", tt.severity, errs)
		}
	}
}

func TestDiagnosticCode_IsValid(t *testing.T) {
	t.Parallel()

	for code := range validCodes {
		if ok, errs := code.IsValid(); !ok || len(errs) > 0 {
			t.Errorf("DiagnosticCode(%q).IsValid() = %v, %v", code, ok, errs)
		}
	}
	ok, errs := DiagnosticCode("LOCATION_MISSING").IsValid()
	if ok || len(errs) == 0 || !errors.Is(errs[0], ErrInvalidDiagnosticCode) {
		t.Errorf("uppercase code accepted: %v, %v", ok, errs)
	}
}

func TestDiagnostic_String(t *testing.T) {
	t.Parallel()

	d := NewDiagnosticWithCause(SeverityWarning, CodeRemoteFailed, "remote location could not be resolved",
		"git+https://x.io/a/b", errors.New("timeout"))
	want := "warning: remote location could not be resolved (git+https://x.io/a/b): timeout"
	if got := d.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	if got := NewDiagnostic(SeverityError, CodeInventoryFailed, "boom").String(); got != "error: boom" {
		t.Errorf("String() = %q", got)
	}
	if d := NewDiagnosticWithPath(SeverityWarning, CodeLocationMissing, "m", "/p"); d.Path != "/p" || d.Cause != nil {
		t.Errorf("NewDiagnosticWithPath = %+v", d)
	}
}
