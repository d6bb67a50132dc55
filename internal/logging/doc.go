// Package logging provides structured logging with per-module log levels.
//
// # Overview
//
// Loggers are log/slog loggers tagged with a "module" attribute. Output is
// routed automatically:
//   - stdout as text, json, or colored "tint" output
//   - the systemd journal when journald is reachable
//   - an in-memory history consumed by the /api/logs endpoint
//
// # Usage
//
// Initialize once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "tint",
//		Modules: map[string]string{
//			"driver": "debug",
//			"api":    "warn",
//		},
//	})
//
// Then fetch a module logger:
//
//	logger := logging.GetLogger("driver")
//	logger.Info("Driver ready", "session_id", id)
//
// Driver stdout and stderr are logged under the "chromedriver" module so
// their verbosity can be tuned separately from the supervisor itself.
//
// Levels can be changed at runtime with [SetLevels]; the config watcher
// calls it whenever the [logging] table of the config file changes.
//
// # Journal
//
// Records are sent with SYSLOG_IDENTIFIER=chromedriverd:
//
//	journalctl -t chromedriverd -f
//	journalctl -t chromedriverd MODULE=driver
//	journalctl -t chromedriverd SESSION_ID=abc123
//
// # Configuration
//
//	[logging]
//	level = "info"
//	format = "text"
//	driver = "debug"
//	chromedriver = "warn"
package logging
