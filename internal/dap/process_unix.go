//go:build !windows

package dap

import (
	stderrors "errors"
	"os"
	"os/exec"
	"syscall"
)

// killProcessGroup kills an adapter and everything it started. Adapters are
// spawned as session leaders, so the negative pid addresses the whole group.
func killProcessGroup(pid int, cmd *exec.Cmd) error {
	if pid > 0 {
		if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
			return err
		}
		return nil
	}
	if cmd != nil && cmd.Process != nil {
		if err := cmd.Process.Kill(); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
			return err
		}
	}
	return nil
}
