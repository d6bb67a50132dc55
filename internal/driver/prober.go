package driver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/smazurov/chromedriverd/internal/metrics"
	"github.com/smazurov/chromedriverd/internal/proxy"
)

// Commander forwards a command to the running driver.
type Commander interface {
	Send(ctx context.Context, path, method string, body any) (*proxy.Response, error)
}

// Prober decides when a freshly spawned driver can serve sessions.
type Prober struct {
	cmd      Commander
	interval time.Duration
	attempts int
	logger   *slog.Logger
}

// NewProber creates a prober retrying each phase attempts times, interval apart.
func NewProber(cmd Commander, interval time.Duration, attempts int, logger *slog.Logger) *Prober {
	if attempts <= 0 {
		attempts = 1
	}
	return &Prober{cmd: cmd, interval: interval, attempts: attempts, logger: logger}
}

// AwaitReady polls the status endpoint and then creates a session. The
// session phase never runs when the status phase is exhausted.
func (p *Prober) AwaitReady(ctx context.Context, caps Capabilities) (*Session, error) {
	if err := p.WaitStatus(ctx); err != nil {
		return nil, err
	}
	return p.NegotiateSession(ctx, caps)
}

// WaitStatus polls GET /status until one request succeeds.
func (p *Prober) WaitStatus(ctx context.Context) error {
	n, err := Retry(ctx, p.interval, p.attempts, func(ctx context.Context) error {
		_, err := p.cmd.Send(ctx, "/status", http.MethodGet, nil)
		metrics.RecordProbeAttempt(PhaseStatus, err == nil)
		if err != nil {
			p.logger.Debug("Status probe failed", "error", err)
		}
		return err
	})
	if err != nil {
		return p.phaseError(ctx, PhaseStatus, n, err)
	}
	p.logger.Debug("Status probe succeeded", "attempts", n)
	return nil
}

// NegotiateSession posts {"desiredCapabilities": caps} to /session until
// one reply carries a session id, returning the created session.
func (p *Prober) NegotiateSession(ctx context.Context, caps Capabilities) (*Session, error) {
	body := map[string]any{"desiredCapabilities": caps}

	var resp *proxy.Response
	n, err := Retry(ctx, p.interval, p.attempts, func(ctx context.Context) error {
		r, err := p.cmd.Send(ctx, "/session", http.MethodPost, body)
		if err != nil {
			metrics.RecordProbeAttempt(PhaseSession, false)
			p.logger.Debug("Session request failed", "error", err)
			return err
		}
		if r.SessionID() == "" {
			metrics.RecordProbeAttempt(PhaseSession, false)
			p.logger.Debug("Session reply has no session id", "body", string(r.Body))
			return ErrNoSessionID
		}
		metrics.RecordProbeAttempt(PhaseSession, true)
		resp = r
		return nil
	})
	if err != nil {
		return nil, p.phaseError(ctx, PhaseSession, n, err)
	}

	session := &Session{
		ID:           resp.SessionID(),
		Capabilities: caps,
		Raw:          resp.JSON(),
		CreatedAt:    time.Now(),
	}
	p.logger.Debug("Session created", "session_id", session.ID, "attempts", n)
	return session, nil
}

func (p *Prober) phaseError(ctx context.Context, phase string, attempts int, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &ReadinessError{Phase: phase, Attempts: attempts, Err: err}
}

// Retry calls fn until it succeeds or attempts calls have failed. The
// first call is immediate and later calls are spaced by exactly interval.
// It returns the number of calls made and the last error, or ctx's error
// once ctx is done.
func Retry(ctx context.Context, interval time.Duration, attempts int, fn func(context.Context) error) (int, error) {
	if attempts <= 0 {
		attempts = 1
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), uint64(attempts-1)),
		ctx,
	)

	calls := 0
	err := backoff.Retry(func() error {
		calls++
		return fn(ctx)
	}, policy)
	return calls, err
}
