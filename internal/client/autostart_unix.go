//go:build !windows

package client

import (
	"os/exec"
	"syscall"
)

// The daemon outlives the CLI invocation that spawned it, so it runs
// in its own session and never holds the caller's terminal.
func applyDaemonSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
