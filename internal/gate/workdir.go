package gate

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/xdg/cmdgate/internal/pathutil"
)

// ResolveWorkdir validates a requested working directory and returns its
// canonical absolute form. An empty dir selects the process working
// directory. The restricted-directory check runs on the resolved path, so
// ../ segments and symlinks cannot route around it.
func (p *Policy) ResolveWorkdir(dir string) (string, *Violation) {
	if strings.TrimSpace(dir) == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", violationf(KindInvalidWorkdir, "Cannot determine current working directory: %v", err)
		}
		return cwd, nil
	}

	resolved, err := pathutil.Canonical(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", violationf(KindInvalidWorkdir, "Working directory does not exist: %s", dir)
		}
		return "", violationf(KindInvalidWorkdir, "Invalid working directory %s: %v", dir, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", violationf(KindInvalidWorkdir, "Working directory does not exist: %s", dir)
	}
	if !info.IsDir() {
		return "", violationf(KindInvalidWorkdir, "Working directory is not a directory: %s", dir)
	}

	for _, root := range p.restricted {
		if pathutil.IsWithin(resolved, root) {
			return "", violationf(KindInvalidWorkdir, "Working directory is in a restricted location: %s", resolved)
		}
	}
	return resolved, nil
}
