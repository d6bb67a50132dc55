//go:build !unix && !windows

package driver

import (
	"os"
	"os/exec"
)

func setProcAttr(*exec.Cmd) {}

func terminate(p *os.Process) error {
	return p.Signal(os.Interrupt)
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

func isNoSuchProcess(error) bool {
	return false
}
