//go:build windows

package adapters

import (
	"os/exec"
	"syscall"
)

// setProcAttr starts the debugger in its own process group so console
// interrupts aimed at the server do not reach it.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
