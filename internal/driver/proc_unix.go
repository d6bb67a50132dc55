//go:build unix

package driver

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// setProcAttr puts the driver in its own process group so that Chrome
// instances it launched are signalled with it.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminate asks the driver's process group to exit.
func terminate(p *os.Process) error {
	if err := syscall.Kill(-p.Pid, syscall.SIGTERM); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return p.Signal(syscall.SIGTERM)
		}
		return err
	}
	return nil
}

// forceKill kills the driver's process group.
func forceKill(p *os.Process) error {
	if err := syscall.Kill(-p.Pid, syscall.SIGKILL); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return p.Kill()
		}
		return err
	}
	return nil
}

func exitDetails(state *os.ProcessState) (code int, signal string) {
	if state == nil {
		return -1, ""
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return -1, ws.Signal().String()
	}
	return state.ExitCode(), ""
}

func isNoSuchProcess(err error) bool {
	return errors.Is(err, syscall.ESRCH)
}
