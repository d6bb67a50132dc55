package driver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/chromedriverd/internal/proxy"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeCommander answers probes from a script of failures.
type fakeCommander struct {
	mu              sync.Mutex
	statusFailures  int // failures before success, -1 fails forever
	sessionFailures int
	sessionBody     string
	calls           []call
}

type call struct {
	path   string
	method string
	body   any
	at     time.Time
}

var errNotReady = errors.New("connection refused")

func (f *fakeCommander) Send(_ context.Context, path, method string, body any) (*proxy.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call{path: path, method: method, body: body, at: time.Now()})

	failures := &f.statusFailures
	respBody := `{"status":0,"value":{}}`
	if path == "/session" {
		failures = &f.sessionFailures
		respBody = f.sessionBody
	}

	if *failures != 0 {
		if *failures > 0 {
			*failures--
		}
		return nil, errNotReady
	}
	return &proxy.Response{StatusCode: http.StatusOK, Body: []byte(respBody)}, nil
}

func (f *fakeCommander) callsTo(path string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.path == path {
			out = append(out, c)
		}
	}
	return out
}

// reaperFunc adapts a function to the Reaper interface.
type reaperFunc func(ctx context.Context) (int, error)

func (f reaperFunc) Reap(ctx context.Context) (int, error) { return f(ctx) }

func noopReaper() Reaper {
	return reaperFunc(func(context.Context) (int, error) { return 0, nil })
}

func waitForState(t *testing.T, s *Supervisor, want State, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %s, want %s", s.State(), want)
}
