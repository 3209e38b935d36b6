//go:build windows

package dap

import (
	stderrors "errors"
	"os"
	"os/exec"
)

// killProcessGroup kills the adapter process. Windows has no Unix-style
// process groups; the adapter was started in its own group so console
// signals sent to us do not reach it.
func killProcessGroup(_ int, cmd *exec.Cmd) error {
	if cmd != nil && cmd.Process != nil {
		if err := cmd.Process.Kill(); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
			return err
		}
	}
	return nil
}
