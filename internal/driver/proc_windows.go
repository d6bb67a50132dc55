//go:build windows

package driver

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// errorInvalidParameter is returned by OpenProcess for a vanished PID.
const errorInvalidParameter syscall.Errno = 87

func setProcAttr(*exec.Cmd) {}

// terminate has no graceful form on Windows.
func terminate(p *os.Process) error {
	return p.Kill()
}

func forceKill(p *os.Process) error {
	return p.Kill()
}

func exitDetails(state *os.ProcessState) (code int, signal string) {
	if state == nil {
		return -1, ""
	}
	return state.ExitCode(), ""
}

func isNoSuchProcess(err error) bool {
	return errors.Is(err, syscall.ERROR_NOT_FOUND) || errors.Is(err, errorInvalidParameter)
}
