package driver

import (
	"context"
	"errors"
	"os"
	"sort"
	"testing"

	"github.com/shirou/gopsutil/v3/process"
)

type fakeProc struct {
	pid        int
	name       string
	args       []string
	err        error
	terminated bool
	killed     bool
}

func (p *fakeProc) PID() int                                  { return p.pid }
func (p *fakeProc) Name(context.Context) (string, error)      { return p.name, nil }
func (p *fakeProc) Cmdline(context.Context) ([]string, error) { return p.args, nil }

func (p *fakeProc) Terminate(context.Context) error {
	if p.err != nil {
		return p.err
	}
	p.terminated = true
	return nil
}

func (p *fakeProc) Kill(context.Context) error {
	if p.err != nil {
		return p.err
	}
	p.killed = true
	return nil
}

func newFakeReaper(goos string, procs ...*fakeProc) *ProcessReaper {
	r := NewProcessReaper("chromedriver", testLogger())
	r.goos = goos
	r.selfPID = 1
	r.list = func(context.Context) ([]candidate, error) {
		out := make([]candidate, len(procs))
		for i, p := range procs {
			out[i] = p
		}
		return out, nil
	}
	return r
}

func TestReaperUnixTerminatesOnlyPortedDrivers(t *testing.T) {
	stale := &fakeProc{pid: 100, name: "chromedriver", args: []string{"/opt/exec/chromedriver", "--url-base=wd/hub", "--port=9515"}}
	noPort := &fakeProc{pid: 101, name: "chromedriver", args: []string{"chromedriver", "--version"}}
	other := &fakeProc{pid: 102, name: "chrome", args: []string{"chrome", "--port=9222"}}
	truncated := &fakeProc{pid: 103, name: "chromedrive", args: []string{"/usr/bin/chromedriver", "--port=1"}}
	self := &fakeProc{pid: 1, name: "chromedriver", args: []string{"chromedriver", "--port=2"}}

	r := newFakeReaper("linux", stale, noPort, other, truncated, self)
	n, err := r.Reap(context.Background())
	if err != nil {
		t.Fatalf("Reap: %v", err)
	}
	if n != 2 {
		t.Errorf("reaped = %d, want 2", n)
	}

	var hit []int
	for _, p := range []*fakeProc{stale, noPort, other, truncated, self} {
		if p.killed {
			t.Errorf("pid %d killed forcefully on linux", p.pid)
		}
		if p.terminated {
			hit = append(hit, p.pid)
		}
	}
	sort.Ints(hit)
	if len(hit) != 2 || hit[0] != 100 || hit[1] != 103 {
		t.Errorf("terminated = %v, want [100 103]", hit)
	}
}

func TestReaperWindowsKillsAndSwallowsNotFound(t *testing.T) {
	r := NewProcessReaper("chromedriver.exe", testLogger())
	r.goos = "windows"
	r.selfPID = 1
	live := &fakeProc{pid: 10, name: "chromedriver.exe", args: []string{`C:\exec\chromedriver.exe`, "--port=9515"}}
	gone := &fakeProc{pid: 11, name: "chromedriver.exe", args: []string{"chromedriver.exe", "--port=9516"}, err: process.ErrorProcessNotRunning}
	r.list = func(context.Context) ([]candidate, error) { return []candidate{live, gone}, nil }

	n, err := r.Reap(context.Background())
	if err != nil {
		t.Fatalf("Reap: %v", err)
	}
	if n != 1 || !live.killed || live.terminated {
		t.Errorf("n = %d killed = %v terminated = %v", n, live.killed, live.terminated)
	}
}

func TestReaperNoMatchesIsSuccess(t *testing.T) {
	r := newFakeReaper("darwin")
	if n, err := r.Reap(context.Background()); err != nil || n != 0 {
		t.Errorf("Reap = (%d, %v), want (0, nil)", n, err)
	}
}

func TestReaperVanishedProcessTolerated(t *testing.T) {
	p := &fakeProc{pid: 5, name: "chromedriver", args: []string{"chromedriver", "--port=1"}, err: os.ErrProcessDone}
	r := newFakeReaper("linux", p)
	if _, err := r.Reap(context.Background()); err != nil {
		t.Errorf("Reap: %v", err)
	}
}

func TestReaperJoinsKillErrors(t *testing.T) {
	denied := errors.New("operation not permitted")
	p := &fakeProc{pid: 5, name: "chromedriver", args: []string{"chromedriver", "--port=1"}, err: denied}
	r := newFakeReaper("linux", p)

	_, err := r.Reap(context.Background())
	if !errors.Is(err, ErrReapFailed) || !errors.Is(err, denied) {
		t.Errorf("err = %v, want ErrReapFailed wrapping the kill error", err)
	}
}

func TestReaperUnsupportedPlatform(t *testing.T) {
	listed := false
	r := newFakeReaper("plan9")
	r.list = func(context.Context) ([]candidate, error) {
		listed = true
		return nil, nil
	}

	_, err := r.Reap(context.Background())
	if !errors.Is(err, ErrUnsupportedPlatform) {
		t.Errorf("err = %v, want ErrUnsupportedPlatform", err)
	}
	if listed {
		t.Error("processes listed on an unsupported platform")
	}
}

func TestReaperListError(t *testing.T) {
	r := newFakeReaper("linux")
	r.list = func(context.Context) ([]candidate, error) { return nil, errors.New("no /proc") }
	if _, err := r.Reap(context.Background()); !errors.Is(err, ErrReapFailed) {
		t.Errorf("err = %v, want ErrReapFailed", err)
	}
}

func TestReaperRealProcessTable(t *testing.T) {
	r := NewProcessReaper("chromedriverd-test-no-such-binary", testLogger())
	if !unixLike[r.goos] && r.goos != "windows" {
		t.Skip("unsupported platform")
	}
	n, err := r.Reap(context.Background())
	if err != nil || n != 0 {
		t.Errorf("Reap = (%d, %v), want (0, nil)", n, err)
	}
}
