// Package pathutil provides path manipulation utilities.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome replaces a leading ~ in path with the user's home directory.
// If the home directory cannot be determined, the path is returned unchanged.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// Canonical returns the absolute, symlink-free form of path.
// The path must exist.
func Canonical(path string) (string, error) {
	abs, err := filepath.Abs(ExpandHome(path))
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// CanonicalOrClean is like Canonical but falls back to the cleaned absolute
// path when path does not exist. Used for configured roots that may be
// absent on the current host.
func CanonicalOrClean(path string) string {
	if resolved, err := Canonical(path); err == nil {
		return resolved
	}
	abs, err := filepath.Abs(ExpandHome(path))
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// IsWithin reports whether path equals root or is nested under it.
// Both arguments must already be absolute and clean; the comparison is on
// whole path elements, so /etcetera is not within /etc.
func IsWithin(path, root string) bool {
	if root == "" {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
