//go:build !windows

package adapters

import (
	"os/exec"
	"syscall"
)

// setProcAttr starts the debugger in a new session so that stopping a debug
// session can kill the debugger together with the program it launched.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
