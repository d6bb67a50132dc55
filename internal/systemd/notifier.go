// Package systemd reports daemon and driver status to the service manager
// through the sd_notify protocol.
package systemd

import (
	"context"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/smazurov/chromedriverd/internal/events"
	"github.com/smazurov/chromedriverd/internal/logging"
)

// Notifier sends sd_notify messages. Without NOTIFY_SOCKET every call is a
// silent no-op.
type Notifier struct {
	notify func(unsetEnvironment bool, state string) (bool, error)
	logger *slog.Logger
}

// NewNotifier creates a notifier using the process's NOTIFY_SOCKET.
func NewNotifier() *Notifier {
	return &Notifier{
		notify: daemon.SdNotify,
		logger: logging.GetLogger("systemd"),
	}
}

func (n *Notifier) send(state string) {
	sent, err := n.notify(false, state)
	if err != nil {
		n.logger.Warn("sd_notify failed", "state", state, "error", err)
		return
	}
	if sent {
		n.logger.Debug("sd_notify sent", "state", state)
	}
}

// Ready tells the service manager that startup finished.
func (n *Notifier) Ready() {
	n.send(daemon.SdNotifyReady)
}

// Stopping announces shutdown.
func (n *Notifier) Stopping() {
	n.send(daemon.SdNotifyStopping)
}

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(msg string) {
	n.send("STATUS=" + msg)
}

// TrackDriver mirrors driver state changes into the status line.
// Returns an unsubscribe function.
func (n *Notifier) TrackDriver(bus *events.Bus) func() {
	return bus.Subscribe(func(e events.DriverStateChangedEvent) {
		msg := "chromedriver " + e.To
		if e.Error != "" {
			msg += ": " + e.Error
		}
		n.Status(msg)
	})
}

// RunWatchdog pings the watchdog at half the configured interval until ctx
// is done. It returns immediately when no watchdog is configured.
func (n *Notifier) RunWatchdog(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		n.logger.Warn("Failed to read watchdog settings", "error", err)
		return
	}
	if interval <= 0 {
		return
	}
	n.runWatchdog(ctx, interval/2)
}

func (n *Notifier) runWatchdog(ctx context.Context, every time.Duration) {
	n.logger.Info("Watchdog enabled", "interval", every)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.send(daemon.SdNotifyWatchdog)
		}
	}
}
