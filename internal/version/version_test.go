package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	tests := []struct {
		name    string
		version string
		prefix  string
	}{
		{"dev build", "dev", "cmdgate dev (" + runtime.Version() + ")"},
		{"release", "v1.2.3", "cmdgate v1.2.3 (" + runtime.Version() + ")"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := Version
			defer func() { Version = original }()
			Version = tt.version

			got := String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("String() = %q, want prefix %q", got, tt.prefix)
			}
		})
	}
}

func TestString_ReleaseOmitsRevision(t *testing.T) {
	original := Version
	defer func() { Version = original }()
	Version = "v1.0.0"

	want := "cmdgate v1.0.0 (" + runtime.Version() + ")"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestRevision_Short(t *testing.T) {
	if rev := strings.TrimSuffix(revision(), "-dirty"); len(rev) > 12 {
		t.Errorf("revision() = %q, want at most 12 characters", rev)
	}
}
