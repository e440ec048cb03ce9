// Package version reports the cmdgate build version.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the current version of cmdgate.
// Set at build time via: -ldflags "-X github.com/xdg/cmdgate/internal/version.Version=v1.0.0"
// Defaults to "dev" for development builds.
var Version = "dev"

// String returns the version with the Go toolchain and, for development
// builds, the VCS revision recorded by the go command.
func String() string {
	s := fmt.Sprintf("cmdgate %s (%s)", Version, runtime.Version())
	if rev := revision(); rev != "" && Version == "dev" {
		s += " " + rev
	}
	return s
}

// revision returns the short VCS revision embedded in the binary, if any.
func revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var rev string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if rev != "" && dirty {
		rev += "-dirty"
	}
	return rev
}
