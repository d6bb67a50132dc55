package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// Reaper kills driver processes left over from earlier runs.
type Reaper interface {
	// Reap returns the number of processes it terminated.
	Reap(ctx context.Context) (int, error)
}

// candidate is the subset of a gopsutil process the reaper needs.
type candidate interface {
	PID() int
	Name(ctx context.Context) (string, error)
	Cmdline(ctx context.Context) ([]string, error)
	Terminate(ctx context.Context) error
	Kill(ctx context.Context) error
}

type psProcess struct {
	p *process.Process
}

func (c psProcess) PID() int { return int(c.p.Pid) }

func (c psProcess) Name(ctx context.Context) (string, error) { return c.p.NameWithContext(ctx) }

func (c psProcess) Cmdline(ctx context.Context) ([]string, error) {
	return c.p.CmdlineSliceWithContext(ctx)
}

func (c psProcess) Terminate(ctx context.Context) error { return c.p.TerminateWithContext(ctx) }

func (c psProcess) Kill(ctx context.Context) error { return c.p.KillWithContext(ctx) }

func listProcesses(ctx context.Context) ([]candidate, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]candidate, 0, len(procs))
	for _, p := range procs {
		out = append(out, psProcess{p: p})
	}
	return out, nil
}

// unixLike lists the platforms where stale drivers get SIGTERM.
var unixLike = map[string]bool{
	"linux": true, "darwin": true, "freebsd": true, "netbsd": true, "openbsd": true,
	"dragonfly": true, "solaris": true, "illumos": true, "aix": true,
}

// ProcessReaper finds stale drivers by executable name and a --port=
// argument and terminates them.
type ProcessReaper struct {
	name    string
	goos    string
	selfPID int
	list    func(ctx context.Context) ([]candidate, error)
	logger  *slog.Logger
}

// NewProcessReaper creates a reaper for executables called name.
func NewProcessReaper(name string, logger *slog.Logger) *ProcessReaper {
	return &ProcessReaper{
		name:    name,
		goos:    runtime.GOOS,
		selfPID: os.Getpid(),
		list:    listProcesses,
		logger:  logger,
	}
}

// Reap terminates every matching process. Zero matches is success.
// Processes that disappear before they are signalled are ignored.
func (r *ProcessReaper) Reap(ctx context.Context) (int, error) {
	forceful := r.goos == "windows"
	if !forceful && !unixLike[r.goos] {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, r.goos)
	}

	procs, err := r.list(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: list processes: %w", ErrReapFailed, err)
	}

	var (
		reaped int
		errs   []error
	)
	for _, p := range procs {
		if !r.matches(ctx, p) {
			continue
		}

		method := "terminate"
		kill := p.Terminate
		if forceful {
			method = "kill"
			kill = p.Kill
		}

		r.logger.Info("Killing stale chromedriver", "pid", p.PID(), "method", method)
		if err := kill(ctx); err != nil {
			if isProcessGone(err) {
				r.logger.Debug("Stale chromedriver already gone", "pid", p.PID())
				continue
			}
			errs = append(errs, fmt.Errorf("pid %d: %w", p.PID(), err))
			continue
		}
		reaped++
	}

	if len(errs) > 0 {
		return reaped, fmt.Errorf("%w: %w", ErrReapFailed, errors.Join(errs...))
	}
	if reaped == 0 {
		r.logger.Debug("Nothing to kill")
	}
	return reaped, nil
}

func (r *ProcessReaper) matches(ctx context.Context, p candidate) bool {
	if p.PID() == r.selfPID {
		return false
	}

	args, err := p.Cmdline(ctx)
	if err != nil || len(args) == 0 {
		return false
	}

	// Name is truncated by some kernels, so argv[0] counts as well.
	name, _ := p.Name(ctx)
	if name != r.name && filepath.Base(args[0]) != r.name {
		return false
	}

	for _, arg := range args[1:] {
		if strings.HasPrefix(arg, "--port=") {
			return true
		}
	}
	return false
}

func isProcessGone(err error) bool {
	return errors.Is(err, process.ErrorProcessNotRunning) ||
		errors.Is(err, os.ErrProcessDone) ||
		isNoSuchProcess(err)
}
