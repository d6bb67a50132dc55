package driver

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetrySucceedsOnNthAttempt(t *testing.T) {
	const interval = 30 * time.Millisecond
	var calls []time.Time

	n, err := Retry(context.Background(), interval, 5, func(context.Context) error {
		calls = append(calls, time.Now())
		if len(calls) < 3 {
			return errNotReady
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if n != 3 || len(calls) != 3 {
		t.Fatalf("attempts = %d (calls %d), want 3", n, len(calls))
	}
	for i := 1; i < len(calls); i++ {
		if gap := calls[i].Sub(calls[i-1]); gap < interval {
			t.Errorf("gap %d = %v, want >= %v", i, gap, interval)
		}
	}
}

func TestRetryFirstAttemptImmediate(t *testing.T) {
	start := time.Now()
	n, err := Retry(context.Background(), time.Hour, 3, func(context.Context) error { return nil })
	if err != nil || n != 1 {
		t.Fatalf("Retry = (%d, %v)", n, err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("first attempt should not wait for the interval")
	}
}

func TestRetryExhausted(t *testing.T) {
	calls := 0
	n, err := Retry(context.Background(), time.Millisecond, 4, func(context.Context) error {
		calls++
		return errNotReady
	})
	if !errors.Is(err, errNotReady) {
		t.Errorf("err = %v, want last attempt error", err)
	}
	if n != 4 || calls != 4 {
		t.Errorf("attempts = %d, calls = %d, want 4", n, calls)
	}
}

func TestRetryNonPositiveAttempts(t *testing.T) {
	calls := 0
	_, _ = Retry(context.Background(), time.Millisecond, 0, func(context.Context) error {
		calls++
		return errNotReady
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := Retry(ctx, time.Hour, 10, func(context.Context) error {
		calls++
		return errNotReady
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if time.Since(start) > time.Second {
		t.Error("cancellation did not interrupt the wait")
	}
}

func TestAwaitReadyStatusExhaustedSkipsSession(t *testing.T) {
	cmd := &fakeCommander{statusFailures: -1}
	p := NewProber(cmd, time.Millisecond, 3, testLogger())

	_, err := p.AwaitReady(context.Background(), Capabilities{"browserName": "chrome"})

	var re *ReadinessError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want *ReadinessError", err)
	}
	if re.Phase != PhaseStatus || re.Attempts != 3 {
		t.Errorf("phase = %s attempts = %d", re.Phase, re.Attempts)
	}
	if !errors.Is(err, ErrReadinessTimeout) || !errors.Is(err, errNotReady) {
		t.Errorf("err should wrap ErrReadinessTimeout and the last error: %v", err)
	}
	if got := len(cmd.callsTo("/session")); got != 0 {
		t.Errorf("session requests = %d, want 0", got)
	}
	if got := len(cmd.callsTo("/status")); got != 3 {
		t.Errorf("status requests = %d, want 3", got)
	}
}

func TestAwaitReadySessionRetried(t *testing.T) {
	cmd := &fakeCommander{sessionFailures: 1, sessionBody: `{"sessionId":"abc123","status":0,"value":{}}`}
	p := NewProber(cmd, 5*time.Millisecond, 20, testLogger())

	caps := Capabilities{"browserName": "chrome"}
	session, err := p.AwaitReady(context.Background(), caps)
	if err != nil {
		t.Fatalf("AwaitReady: %v", err)
	}
	if session.ID != "abc123" {
		t.Errorf("session ID = %q", session.ID)
	}
	if string(session.Raw) != cmd.sessionBody {
		t.Errorf("raw payload = %s", session.Raw)
	}

	posts := cmd.callsTo("/session")
	if len(posts) != 2 {
		t.Fatalf("session requests = %d, want 2", len(posts))
	}
	body, ok := posts[0].body.(map[string]any)
	if !ok || body["desiredCapabilities"].(Capabilities)["browserName"] != "chrome" {
		t.Errorf("session body = %#v", posts[0].body)
	}
	if posts[0].method != "POST" {
		t.Errorf("method = %s", posts[0].method)
	}
}

func TestAwaitReadySessionExhausted(t *testing.T) {
	cmd := &fakeCommander{sessionFailures: -1}
	p := NewProber(cmd, time.Millisecond, 2, testLogger())

	_, err := p.AwaitReady(context.Background(), nil)
	var re *ReadinessError
	if !errors.As(err, &re) || re.Phase != PhaseSession {
		t.Fatalf("err = %v, want session ReadinessError", err)
	}
}

func TestAwaitReadySessionWithoutIDRetried(t *testing.T) {
	cmd := &fakeCommander{sessionBody: `{"status":13,"value":{"message":"unknown error: cannot find Chrome binary"}}`}
	p := NewProber(cmd, time.Millisecond, 3, testLogger())

	session, err := p.AwaitReady(context.Background(), Capabilities{"browserName": "chrome"})
	if session != nil {
		t.Errorf("session = %+v, want nil", session)
	}
	var re *ReadinessError
	if !errors.As(err, &re) || re.Phase != PhaseSession || re.Attempts != 3 {
		t.Fatalf("err = %v, want session ReadinessError after 3 attempts", err)
	}
	if !errors.Is(err, ErrNoSessionID) {
		t.Errorf("err = %v, want ErrNoSessionID", err)
	}
	if got := len(cmd.callsTo("/session")); got != 3 {
		t.Errorf("session requests = %d, want 3", got)
	}
}

func TestAwaitReadyCancelledIsNotTimeout(t *testing.T) {
	cmd := &fakeCommander{statusFailures: -1}
	p := NewProber(cmd, time.Hour, 5, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.AwaitReady(ctx, nil)
	if errors.Is(err, ErrReadinessTimeout) {
		t.Errorf("cancellation reported as readiness timeout: %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}
}
