package driver

import (
	"errors"
	"fmt"
)

// Sentinel errors, matched with errors.Is.
var (
	ErrUnsupportedPlatform = errors.New("platform not supported")
	ErrReapFailed          = errors.New("failed to kill stale chromedriver processes")
	ErrSpawnFailed         = errors.New("chromedriver failed to start")
	ErrUnexpectedOutput    = errors.New("chromedriver printed unexpected startup output")
	ErrReadinessTimeout    = errors.New("chromedriver did not become ready")
	ErrNoSessionID         = errors.New("session reply carried no session id")
	ErrStartInProgress     = errors.New("chromedriver start already in progress")
	ErrAlreadyRunning      = errors.New("chromedriver already running")
	ErrProcessExited       = errors.New("chromedriver process exited")
	ErrStopped             = errors.New("chromedriver stopped")
	ErrStandaloneRunning   = errors.New("standalone chromedriver already running")
)

// Probe phases reported by ReadinessError.
const (
	PhaseStatus  = "status"
	PhaseSession = "session"
)

// ReadinessError reports an exhausted probe phase.
type ReadinessError struct {
	Phase    string
	Attempts int
	Err      error
}

func (e *ReadinessError) Error() string {
	return fmt.Sprintf("%s probe failed after %d attempts: %v", e.Phase, e.Attempts, e.Err)
}

// Unwrap exposes both ErrReadinessTimeout and the last attempt's error.
func (e *ReadinessError) Unwrap() []error {
	return []error{ErrReadinessTimeout, e.Err}
}

// ExitError describes how the driver process terminated.
// Signal is empty when the process exited normally.
type ExitError struct {
	Code   int
	Signal string
}

func (e *ExitError) Error() string {
	signal := e.Signal
	if signal == "" {
		signal = "none"
	}
	return fmt.Sprintf("chromedriver exit with code: %d, signal: %s", e.Code, signal)
}
