package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/chromedriverd/internal/events"
	"github.com/smazurov/chromedriverd/internal/logging"
	"github.com/smazurov/chromedriverd/internal/metrics"
	"github.com/smazurov/chromedriverd/internal/proxy"
)

// Supervisor owns one chromedriver process and drives it to readiness.
type Supervisor struct {
	cfg       Config
	bus       *events.Bus
	commander Commander
	reaper    Reaper
	prober    *Prober
	logger    *slog.Logger
	output    *slog.Logger

	mu            sync.Mutex
	state         State
	caps          Capabilities
	proc          *driverProcess
	session       *Session
	startedAt     time.Time
	lastErr       error
	cancelStart   context.CancelFunc
	startDone     chan struct{}
	stopRequested bool
}

// NewSupervisor creates a supervisor. It never spawns a process; a missing
// binary is only logged so that BinPath can be fixed before Start.
func NewSupervisor(opts *Options) *Supervisor {
	if opts == nil {
		opts = &Options{}
	}
	cfg := opts.Config
	cfg.applyDefaults()

	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger("driver")
	}
	output := opts.ProcessLogger
	if output == nil {
		output = logging.GetLogger("chromedriver")
	}

	commander := opts.Commander
	if commander == nil {
		commander = proxy.New(proxy.Config{
			Host:    cfg.ProxyHost,
			Port:    cfg.ProxyPort,
			URLBase: cfg.URLBase,
			Timeout: cfg.RequestTimeout,
		})
	}
	reaper := opts.Reaper
	if reaper == nil {
		reaper = NewProcessReaper(FileName(), logger)
	}

	if binaryExists(cfg.BinPath) {
		logger.Info("chromedriver bin path", "bin_path", cfg.BinPath)
	} else {
		logger.Error("chromedriver bin path not found", "bin_path", cfg.BinPath)
	}

	return &Supervisor{
		cfg:       cfg,
		bus:       opts.Bus,
		commander: commander,
		reaper:    reaper,
		prober:    NewProber(commander, cfg.ReadyInterval, cfg.ReadyAttempts, logger),
		logger:    logger,
		output:    output,
		state:     StateIdle,
	}
}

// Config returns the effective configuration after defaults.
func (s *Supervisor) Config() Config {
	return s.cfg
}

// Start reaps stale drivers, spawns a new one and waits until it accepts a
// session created with caps. It returns nil once the driver is ready. Any
// failure is logged, recorded, published and returned; the spawned process
// is killed and nothing is retried.
func (s *Supervisor) Start(ctx context.Context, caps Capabilities) error {
	s.mu.Lock()
	switch {
	case s.state.Starting():
		s.mu.Unlock()
		return ErrStartInProgress
	case s.state == StateReady && s.proc != nil:
		s.mu.Unlock()
		return ErrAlreadyRunning
	}

	attemptCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.caps = caps
	s.session = nil
	s.lastErr = nil
	s.stopRequested = false
	s.cancelStart = cancel
	s.startDone = done
	s.setStateLocked(StateReaping, nil)
	s.mu.Unlock()
	defer close(done)
	defer cancel()

	began := time.Now()
	session, proc, err := s.run(attemptCtx, caps)
	if err == nil && attemptCtx.Err() != nil {
		err = attemptCtx.Err()
	}
	if err != nil {
		s.fail(proc, err)
		metrics.RecordStart("failed", time.Since(began))
		return s.LastError()
	}

	s.mu.Lock()
	s.cancelStart = nil
	s.session = session
	s.startedAt = time.Now()
	s.setStateLocked(StateReady, nil)
	s.mu.Unlock()

	go s.monitor(proc)

	metrics.RecordStart("ready", time.Since(began))
	metrics.SetDriverUp(true)
	s.logger.Info("chromedriver ready", "pid", proc.pid, "session_id", session.ID, "elapsed", time.Since(began))
	s.bus.Publish(events.DriverReadyEvent{
		SessionID:    session.ID,
		Capabilities: caps,
		Payload:      session.Raw,
		Timestamp:    time.Now().Format(time.RFC3339),
	})
	return nil
}

// run performs one start attempt. The returned process is non-nil once
// spawning succeeded, so that failure handling can kill it.
func (s *Supervisor) run(ctx context.Context, caps Capabilities) (*Session, *driverProcess, error) {
	n, err := s.reaper.Reap(ctx)
	metrics.AddReaped(n)
	if err != nil {
		s.logger.Warn("Kill all chromedriver process failed", "error", err)
		return nil, nil, err
	}
	s.logger.Info("Kill all chromedriver process success", "reaped", n)

	if err := s.transition(ctx, StateSpawning); err != nil {
		return nil, nil, err
	}
	proc, err := startProcess(s.cfg.BinPath, s.cfg.Args(), s.logger, s.output)
	if err != nil {
		s.publishError(StateSpawning, 0, err)
		return nil, nil, err
	}

	s.mu.Lock()
	s.proc = proc
	s.setStateLocked(StateAwaitingMarker, nil)
	s.mu.Unlock()

	if err := proc.awaitMarker(ctx); err != nil {
		if errors.Is(err, ErrSpawnFailed) {
			s.logger.Warn("chromedriver exited before startup", "pid", proc.pid, "error", err)
			s.publishError(StateAwaitingMarker, proc.pid, err)
		}
		return nil, proc, err
	}
	s.logger.Info("chromedriver starting success", "pid", proc.pid)

	// Probing stops early when the driver dies underneath it.
	probeCtx, cancelProbe := context.WithCancel(ctx)
	defer cancelProbe()
	go func() {
		select {
		case <-proc.done:
			cancelProbe()
		case <-probeCtx.Done():
		}
	}()

	if err := s.transition(ctx, StatePollingStatus); err != nil {
		return nil, proc, err
	}
	if err := s.prober.WaitStatus(probeCtx); err != nil {
		s.logger.Error("Get chromedriver ready status failed", "error", err)
		return nil, proc, s.probeError(ctx, proc, err)
	}

	if err := s.transition(ctx, StateNegotiatingSession); err != nil {
		return nil, proc, err
	}
	session, err := s.prober.NegotiateSession(probeCtx, caps)
	if err != nil {
		s.logger.Error("Create chromedriver session failed", "error", err)
		return nil, proc, s.probeError(ctx, proc, err)
	}
	return session, proc, nil
}

// probeError explains a probe aborted by the driver's own exit.
func (s *Supervisor) probeError(ctx context.Context, proc *driverProcess, err error) error {
	if ctx.Err() == nil && proc.exited() {
		return fmt.Errorf("%w: %w", ErrProcessExited, proc.exitError())
	}
	return err
}

// transition moves to next unless the attempt was cancelled.
func (s *Supervisor) transition(ctx context.Context, next State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.setStateLocked(next, nil)
	s.mu.Unlock()
	return nil
}

// fail kills the attempt's process and records err. A Stop during the
// attempt ends in idle instead of failed.
func (s *Supervisor) fail(proc *driverProcess, err error) {
	if proc != nil {
		if killErr := proc.kill(); killErr != nil {
			s.logger.Error("Failed to kill chromedriver after failed start", "pid", proc.pid, "error", killErr)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc == proc {
		s.proc = nil
	}
	s.cancelStart = nil

	if s.stopRequested {
		s.lastErr = fmt.Errorf("%w during %s: %w", ErrStopped, s.state, err)
		s.logger.Info("chromedriver start aborted", "state", s.state)
		s.setStateLocked(StateIdle, nil)
		return
	}

	s.lastErr = err
	s.logger.Warn("chromedriver starting failed", "state", s.state, "error", err)
	s.setStateLocked(StateFailed, err)
}

// monitor watches a ready driver until it exits.
func (s *Supervisor) monitor(proc *driverProcess) {
	<-proc.done

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc != proc {
		return
	}
	s.proc = nil
	metrics.SetDriverUp(false)

	if s.stopRequested {
		s.setStateLocked(StateIdle, nil)
		return
	}

	err := fmt.Errorf("%w: %w", ErrProcessExited, proc.exitError())
	s.lastErr = err
	s.logger.Warn("chromedriver exited", "pid", proc.pid, "error", err)
	s.setStateLocked(StateFailed, err)
	s.publishError(StateReady, proc.pid, err)
}

// Stop terminates the driver, aborting a Start in progress and waiting for
// it to settle. It is a no-op when no process exists and safe to call
// repeatedly.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	proc := s.proc
	cancel := s.cancelStart
	startDone := s.startDone
	if proc == nil && cancel == nil {
		s.mu.Unlock()
		return nil
	}
	s.stopRequested = true
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	var err error
	if proc != nil {
		err = proc.stop(ctx, s.cfg.GracefulTimeout)

		s.mu.Lock()
		if s.proc == proc {
			s.proc = nil
			if s.state == StateReady {
				s.setStateLocked(StateIdle, nil)
			}
			metrics.SetDriverUp(false)
		}
		s.mu.Unlock()

		s.logger.Info("chromedriver stopped", "pid", proc.pid)
	}

	// A process spawned by the aborted attempt is killed before Start returns.
	if cancel != nil {
		select {
		case <-startDone:
		case <-ctx.Done():
			if err == nil {
				err = ctx.Err()
			}
		}
	}
	return err
}

// SendCommand forwards a command to the driver. It does not retry.
func (s *Supervisor) SendCommand(ctx context.Context, path, method string, body any) (*proxy.Response, error) {
	return s.commander.Send(ctx, path, method, body)
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Session returns the session created by the last successful Start.
func (s *Supervisor) Session() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Capabilities returns the capabilities of the last Start.
func (s *Supervisor) Capabilities() Capabilities {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps
}

// LastError returns the error that ended the last Start or ready period.
func (s *Supervisor) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// PID returns the driver's PID, 0 when no process exists.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil {
		return 0
	}
	return s.proc.pid
}

// Info returns a snapshot of the supervisor.
func (s *Supervisor) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := Info{
		State:     s.state,
		BinPath:   s.cfg.BinPath,
		Args:      s.cfg.Args(),
		Session:   s.session,
		LastError: s.lastErr,
		Extra:     s.cfg.Extra,
	}
	if s.proc != nil {
		info.PID = s.proc.pid
		info.StartedAt = s.startedAt
	}
	return info
}

func (s *Supervisor) setStateLocked(next State, err error) {
	prev := s.state
	if prev == next {
		return
	}
	s.state = next
	metrics.RecordStateTransition(string(prev), string(next))
	s.logger.Debug("State changed", "from", prev, "to", next)

	ev := events.DriverStateChangedEvent{
		From:      string(prev),
		To:        string(next),
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	s.bus.Publish(ev)
}

func (s *Supervisor) publishError(stage State, pid int, err error) {
	s.bus.Publish(events.DriverErrorEvent{
		Stage:     string(stage),
		Error:     err.Error(),
		PID:       pid,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
