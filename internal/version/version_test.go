package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
	// GitCommit and BuildDate are optional
	_ = GitCommit
	_ = BuildDate
}

func TestColored(t *testing.T) {
	origVersion := Version
	origNoColor := color.NoColor
	defer func() {
		Version = origVersion
		color.NoColor = origNoColor
	}()
	color.NoColor = true

	tests := []struct {
		in, want string
	}{
		{"1.2.3", "1.2.3"},
		{"0.1.0-dev", "0.1.0-dev"},
		{"1.2.3-rc.1+build.123", "1.2.3-rc.1+build.123"},
		{"weird", "weird"},
		{"", "dev"},
	}
	for _, tt := range tests {
		Version = tt.in
		if got := Colored(); got != tt.want {
			t.Errorf("Colored() with Version=%q = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestColored_UsesColorWhenEnabled(t *testing.T) {
	origVersion := Version
	origNoColor := color.NoColor
	defer func() {
		Version = origVersion
		color.NoColor = origNoColor
	}()
	color.NoColor = false

	Version = "1.2.3"
	if got := Colored(); got == "1.2.3" {
		t.Errorf("expected escape sequences, got %q", got)
	}
}
