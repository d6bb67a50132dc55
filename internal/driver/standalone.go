package driver

import (
	"errors"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/smazurov/chromedriverd/internal/logging"
)

// standalone is the single process-wide driver started without a Supervisor.
var standalone struct {
	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

// LaunchStandalone starts binPath with args and no lifecycle machinery:
// no reaping, no startup banner check, no readiness probing.
func LaunchStandalone(binPath string, args ...string) (*os.Process, error) {
	standalone.mu.Lock()
	defer standalone.mu.Unlock()

	if standalone.cmd != nil {
		select {
		case <-standalone.done:
		default:
			return nil, ErrStandaloneRunning
		}
	}

	cmd := exec.Command(binPath, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()

	standalone.cmd = cmd
	standalone.done = done
	logging.GetLogger("driver").Info("Standalone chromedriver started", "pid", cmd.Process.Pid, "bin_path", binPath)
	return cmd.Process, nil
}

// StandaloneDone returns a channel closed when the standalone driver
// exits, or nil when none was launched.
func StandaloneDone() <-chan struct{} {
	standalone.mu.Lock()
	defer standalone.mu.Unlock()
	return standalone.done
}

// StandalonePID returns the standalone driver's PID, 0 when none is alive.
func StandalonePID() int {
	standalone.mu.Lock()
	defer standalone.mu.Unlock()

	if standalone.cmd == nil {
		return 0
	}
	select {
	case <-standalone.done:
		return 0
	default:
		return standalone.cmd.Process.Pid
	}
}

// KillStandalone kills the standalone driver and clears the slot.
// It is a no-op when nothing was launched.
func KillStandalone() error {
	standalone.mu.Lock()
	defer standalone.mu.Unlock()

	if standalone.cmd == nil {
		return nil
	}

	cmd, done := standalone.cmd, standalone.done
	standalone.cmd, standalone.done = nil, nil

	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	select {
	case <-done:
	case <-time.After(killTimeout):
		return errors.New("standalone chromedriver did not exit after kill")
	}

	logging.GetLogger("driver").Info("chromedriver killed", "pid", cmd.Process.Pid)
	return nil
}
