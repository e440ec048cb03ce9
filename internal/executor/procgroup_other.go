//go:build !(darwin || linux || freebsd || netbsd || openbsd)

package executor

import (
	"os/exec"
	"time"
)

// setupProcessGroup relies on the default Cancel, which kills the child.
func setupProcessGroup(cmd *exec.Cmd) {
	cmd.WaitDelay = 2 * time.Second
}
