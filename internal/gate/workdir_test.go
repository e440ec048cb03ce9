package gate

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// restrictedFixture creates <tmp>/restricted/subdir and <tmp>/open and
// returns a policy restricting <tmp>/restricted.
func restrictedFixture(t *testing.T) (*Policy, string) {
	t.Helper()
	base, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(base, "restricted", "subdir"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(base, "restricted-sibling"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(base, "open"), 0o755))

	p := MustPolicy(PolicyConfig{
		Whitelist:      map[string][]string{"ls": nil},
		RestrictedDirs: []string{filepath.Join(base, "restricted")},
	})
	return p, base
}

func TestResolveWorkdir_Empty(t *testing.T) {
	p := MustPolicy(DefaultPolicyConfig())
	cwd, err := os.Getwd()
	require.NoError(t, err)

	got, v := p.ResolveWorkdir("")
	require.Nil(t, v)
	assert.Equal(t, cwd, got)
}

func TestResolveWorkdir_Valid(t *testing.T) {
	p, base := restrictedFixture(t)

	got, v := p.ResolveWorkdir(filepath.Join(base, "open", "..", "open"))
	require.Nil(t, v)
	assert.Equal(t, filepath.Join(base, "open"), got)

	got, v = p.ResolveWorkdir(filepath.Join(base, "restricted-sibling"))
	require.Nil(t, v, "a sibling sharing a name prefix is not nested")
	assert.Equal(t, filepath.Join(base, "restricted-sibling"), got)
}

func TestResolveWorkdir_Restricted(t *testing.T) {
	p, base := restrictedFixture(t)

	tests := map[string]string{
		"root itself": filepath.Join(base, "restricted"),
		"nested":      filepath.Join(base, "restricted", "subdir"),
		"traversal":   filepath.Join(base, "open") + "/../restricted/../restricted/subdir",
	}
	for name, dir := range tests {
		t.Run(name, func(t *testing.T) {
			_, v := p.ResolveWorkdir(dir)
			require.NotNil(t, v)
			assert.Equal(t, KindInvalidWorkdir, v.Kind)
			assert.Contains(t, v.Reason, "restricted location")
			assert.ErrorIs(t, v, ErrInvalidWorkdir)
		})
	}
}

func TestResolveWorkdir_SymlinkIntoRestricted(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	p, base := restrictedFixture(t)
	link := filepath.Join(base, "open", "sneaky")
	require.NoError(t, os.Symlink(filepath.Join(base, "restricted", "subdir"), link))

	_, v := p.ResolveWorkdir(link)
	require.NotNil(t, v)
	assert.Contains(t, v.Reason, "restricted location")
}

func TestResolveWorkdir_RestrictedRootIsSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	base, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	sysDir := filepath.Join(base, "system")
	require.NoError(t, os.MkdirAll(filepath.Join(sysDir, "conf"), 0o755))
	alias := filepath.Join(base, "alias")
	require.NoError(t, os.Symlink(sysDir, alias))

	// The restricted root is configured through the alias; requests through
	// the real path must still be caught.
	p := MustPolicy(PolicyConfig{
		Whitelist:      map[string][]string{"ls": nil},
		RestrictedDirs: []string{alias},
	})
	_, v := p.ResolveWorkdir(filepath.Join(sysDir, "conf"))
	require.NotNil(t, v)
}

func TestResolveWorkdir_Missing(t *testing.T) {
	p := MustPolicy(DefaultPolicyConfig())

	_, v := p.ResolveWorkdir("/nonexistent/path")
	require.NotNil(t, v)
	assert.Equal(t, KindInvalidWorkdir, v.Kind)
	assert.Equal(t, "Working directory does not exist: /nonexistent/path", v.Reason)
}

func TestResolveWorkdir_NotADirectory(t *testing.T) {
	p := MustPolicy(DefaultPolicyConfig())
	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	_, v := p.ResolveWorkdir(file)
	require.NotNil(t, v)
	assert.Contains(t, v.Reason, "is not a directory")
}

func TestResolveWorkdir_DefaultRestrictedDirs(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("uses linux system directories")
	}
	p := MustPolicy(DefaultPolicyConfig())

	for _, dir := range []string{"/etc", "/proc/self", "/tmp/../etc", "/usr/bin"} {
		_, v := p.ResolveWorkdir(dir)
		require.NotNil(t, v, dir)
		assert.Equal(t, KindInvalidWorkdir, v.Kind, dir)
	}
}
