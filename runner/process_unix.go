//go:build !windows

package runner

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// setProcessGroup configures the command to run in its own process group.
func setProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// signalProcess sends SIGTERM, or SIGKILL when kill is set. Grouped processes
// are signaled through their group (negative PID); if that fails the direct
// child is signaled instead. Signaling a process that already exited is not an
// error.
func signalProcess(proc *os.Process, group, kill bool) error {
	sig := syscall.SIGTERM
	if kill {
		sig = syscall.SIGKILL
	}

	if group {
		err := syscall.Kill(-proc.Pid, sig)
		if err == nil || errors.Is(err, syscall.ESRCH) {
			return nil
		}
	}

	if err := proc.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
