//go:build windows

package runner

import (
	"errors"
	"os"
	"os/exec"
)

// Windows has no process groups reachable through os/exec; only the direct
// child is managed.
func setProcessGroup(cmd *exec.Cmd) {}

// signalProcess kills the process. Windows cannot deliver SIGTERM, so both
// stages of termination end the process immediately.
func signalProcess(proc *os.Process, group, kill bool) error {
	if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
