package driver

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const (
	// outputDrainTimeout bounds how long exit handling waits for buffered
	// output after the process is gone.
	outputDrainTimeout = 250 * time.Millisecond
	killTimeout        = 5 * time.Second
)

// driverProcess is a spawned chromedriver together with its output pumps.
type driverProcess struct {
	cmd       *exec.Cmd
	pid       int
	args      []string
	logger    *slog.Logger
	output    *slog.Logger
	marker    chan markerResult
	markerOut string
	done      chan struct{}
	waitErr   error
}

// startProcess launches binPath with args. It returns once the process
// exists; the startup banner is checked separately by awaitMarker.
func startProcess(binPath string, args []string, logger, output *slog.Logger) (*driverProcess, error) {
	cmd := exec.Command(binPath, args...)
	setProcAttr(cmd)

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %w", ErrSpawnFailed, err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdoutR.Close()
		stdoutW.Close()
		return nil, fmt.Errorf("%w: stderr pipe: %w", ErrSpawnFailed, err)
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		for _, f := range []*os.File{stdoutR, stdoutW, stderrR, stderrW} {
			f.Close()
		}
		logger.Error("Failed to start chromedriver", "error", err, "bin_path", binPath)
		return nil, fmt.Errorf("%w: %w", ErrSpawnFailed, err)
	}
	// The child holds its own copies of the write ends.
	stdoutW.Close()
	stderrW.Close()

	p := &driverProcess{
		cmd:    cmd,
		pid:    cmd.Process.Pid,
		args:   args,
		logger: logger,
		output: output,
		marker: make(chan markerResult, 1),
		done:   make(chan struct{}),
	}
	logger.Info("Process started", "pid", p.pid, "bin_path", binPath, "args", args)

	var pumps sync.WaitGroup
	pumps.Add(2)
	go func() {
		defer pumps.Done()
		p.pumpStdout(stdoutR)
	}()
	go func() {
		defer pumps.Done()
		p.pumpStderr(stderrR)
	}()

	go func() {
		p.waitErr = cmd.Wait()

		drained := make(chan struct{})
		go func() {
			pumps.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-time.After(outputDrainTimeout):
			// Descendants still hold the pipes open.
			stdoutR.Close()
			stderrR.Close()
		}
		close(p.done)
	}()

	return p, nil
}

// awaitMarker blocks until the startup banner settles, the process exits
// or ctx is done.
func (p *driverProcess) awaitMarker(ctx context.Context) error {
	select {
	case res := <-p.marker:
		return p.markerVerdict(res)
	case <-p.done:
		select {
		case res := <-p.marker:
			return p.markerVerdict(res)
		default:
		}
		return fmt.Errorf("%w: %w", ErrSpawnFailed, p.exitError())
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *driverProcess) markerVerdict(res markerResult) error {
	if res == markerMatched {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnexpectedOutput, p.markerOut)
}

func (p *driverProcess) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// exitError describes the exit. Only valid once done is closed.
func (p *driverProcess) exitError() error {
	var exitErr *exec.ExitError
	if p.waitErr != nil && !errors.As(p.waitErr, &exitErr) {
		return p.waitErr
	}
	code, signal := exitDetails(p.cmd.ProcessState)
	return &ExitError{Code: code, Signal: signal}
}

// stop terminates the process gracefully and force-kills it after grace
// or when ctx is done.
func (p *driverProcess) stop(ctx context.Context, grace time.Duration) error {
	if p.exited() {
		return nil
	}

	p.logger.Info("Sending termination signal", "pid", p.pid)
	if err := terminate(p.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Warn("Failed to send termination signal", "pid", p.pid, "error", err)
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-p.done:
		return nil
	case <-timer.C:
		p.logger.Warn("Graceful shutdown timeout, forcing kill", "pid", p.pid, "timeout", grace)
	case <-ctx.Done():
		p.logger.Warn("Stop cancelled, forcing kill", "pid", p.pid)
	}
	return p.kill()
}

// kill force-kills the process and waits for it to be reaped.
func (p *driverProcess) kill() error {
	if p.exited() {
		return nil
	}
	if err := forceKill(p.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Error("Failed to kill process", "pid", p.pid, "error", err)
	}

	select {
	case <-p.done:
		return nil
	case <-time.After(killTimeout):
		p.logger.Error("Process did not exit after kill signal", "pid", p.pid)
		return fmt.Errorf("chromedriver pid %d did not exit after kill", p.pid)
	}
}

// pumpStdout feeds raw chunks to the marker matcher until it settles and
// logs the rest line by line.
func (p *driverProcess) pumpStdout(r io.ReadCloser) {
	defer r.Close()

	matcher := newMarkerMatcher(startupMarker)
	lines := &lineSplitter{emit: p.logLine}
	settled := false
	buf := make([]byte, 4096)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if settled {
				lines.Write(chunk)
			} else {
				p.output.Info(strings.TrimRight(string(chunk), "\r\n"))
				if res := matcher.Feed(chunk); res != markerPending {
					settled = true
					p.markerOut = matcher.Output()
					p.marker <- res
				}
			}
		}
		if err != nil {
			lines.Flush()
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				p.logger.Warn("Error reading output", "source", "stdout", "error", err)
			}
			return
		}
	}
}

func (p *driverProcess) pumpStderr(r io.ReadCloser) {
	defer r.Close()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		p.logLine(scanner.Text())
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		p.logger.Warn("Error reading output", "source", "stderr", "error", err)
	}
}

func (p *driverProcess) logLine(line string) {
	level, msg := ParseLogLevel(line)
	switch level {
	case "fatal", "error":
		p.output.Error(msg)
	case "warning":
		p.output.Warn(msg)
	case "debug", "trace":
		p.output.Debug(msg)
	default:
		p.output.Info(msg)
	}
}

// lineSplitter turns arbitrary chunks into complete lines.
type lineSplitter struct {
	pending []byte
	emit    func(string)
}

func (l *lineSplitter) Write(chunk []byte) {
	l.pending = append(l.pending, chunk...)
	for {
		i := bytes.IndexByte(l.pending, '\n')
		if i < 0 {
			return
		}
		line := strings.TrimRight(string(l.pending[:i]), "\r")
		l.pending = l.pending[i+1:]
		if line != "" {
			l.emit(line)
		}
	}
}

func (l *lineSplitter) Flush() {
	if line := strings.TrimRight(string(l.pending), "\r\n"); line != "" {
		l.emit(line)
	}
	l.pending = nil
}
