// Package driver supervises a local chromedriver process.
//
// A Supervisor owns at most one driver process. Start runs the whole
// lifecycle in order:
//   - reap stale chromedriver processes left behind by earlier runs
//   - spawn the binary with --url-base and --port
//   - wait for the "Starting" banner on stdout
//   - poll GET /status, then POST /session with the desired capabilities
//
// Each step is an explicit State, and every transition is published on the
// events bus. The ready event fires only after both probes succeed. A failed
// Start leaves no child process behind and is never retried automatically.
//
// Example:
//
//	sup := driver.NewSupervisor(&driver.Options{
//	    Config: driver.Config{ProxyPort: 9515, URLBase: "wd/hub"},
//	    Bus:    bus,
//	})
//	if err := sup.Start(ctx, driver.Capabilities{"browserName": "chrome"}); err != nil {
//	    return err
//	}
//	defer sup.Stop(context.Background())
//
// LaunchStandalone and KillStandalone bypass the Supervisor entirely and
// manage a single process-wide driver without readiness checks.
package driver
