package pathutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("failed to get home dir: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "tilde only",
			input:    "~",
			expected: home,
		},
		{
			name:     "tilde with subpath",
			input:    "~/Documents",
			expected: filepath.Join(home, "Documents"),
		},
		{
			name:     "tilde with nested subpath",
			input:    "~/foo/bar/baz",
			expected: filepath.Join(home, "foo", "bar", "baz"),
		},
		{
			name:     "absolute path unchanged",
			input:    "/usr/local/bin",
			expected: "/usr/local/bin",
		},
		{
			name:     "relative path unchanged",
			input:    "relative/path",
			expected: "relative/path",
		},
		{
			name:     "empty string unchanged",
			input:    "",
			expected: "",
		},
		{
			name:     "tilde in middle unchanged",
			input:    "/path/~/test",
			expected: "/path/~/test",
		},
		{
			name:     "tilde without slash unchanged",
			input:    "~user",
			expected: "~user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExpandHome(tt.input)
			if result != tt.expected {
				t.Errorf("ExpandHome(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestIsWithin(t *testing.T) {
	tests := []struct {
		name string
		path string
		root string
		want bool
	}{
		{"equal", "/etc", "/etc", true},
		{"nested", "/etc/ssh", "/etc", true},
		{"deeply nested", "/etc/ssh/sshd_config.d", "/etc", true},
		{"sibling with shared prefix", "/etcetera", "/etc", false},
		{"parent", "/", "/etc", false},
		{"unrelated", "/home/user", "/etc", false},
		{"filesystem root restricts everything", "/home", "/", true},
		{"empty root", "/etc", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsWithin(tt.path, tt.root); got != tt.want {
				t.Errorf("IsWithin(%q, %q) = %v, want %v", tt.path, tt.root, got, tt.want)
			}
		})
	}
}

func TestCanonical_ResolvesSymlinksAndDots(t *testing.T) {
	dir := t.TempDir()
	realDir := filepath.Join(dir, "real")
	if err := os.Mkdir(realDir, 0o755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}
	link := filepath.Join(dir, "link")
	if err := os.Symlink(realDir, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	want, err := filepath.EvalSymlinks(realDir)
	if err != nil {
		t.Fatalf("EvalSymlinks() error = %v", err)
	}

	for _, input := range []string{link, filepath.Join(link, "..", "real"), realDir + "/."} {
		got, err := Canonical(input)
		if err != nil {
			t.Fatalf("Canonical(%q) error = %v", input, err)
		}
		if got != want {
			t.Errorf("Canonical(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestCanonical_Missing(t *testing.T) {
	if _, err := Canonical(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Canonical() on missing path should fail")
	}
}

func TestCanonicalOrClean_Missing(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "a", "..", "missing")
	got := CanonicalOrClean(input)
	if filepath.Base(got) != "missing" || !filepath.IsAbs(got) {
		t.Errorf("CanonicalOrClean(%q) = %q, want absolute path ending in missing", input, got)
	}
}
