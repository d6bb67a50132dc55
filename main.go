package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/chromedriverd/cmd"
	"github.com/smazurov/chromedriverd/internal/api"
	"github.com/smazurov/chromedriverd/internal/config"
	"github.com/smazurov/chromedriverd/internal/driver"
	"github.com/smazurov/chromedriverd/internal/events"
	"github.com/smazurov/chromedriverd/internal/logging"
	"github.com/smazurov/chromedriverd/internal/metrics/collectors"
	"github.com/smazurov/chromedriverd/internal/metrics/exporters"
	"github.com/smazurov/chromedriverd/internal/systemd"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Address the API listens on" short:"p" default:":9600" toml:"server.port" env:"SERVER_PORT"`

	// Driver settings
	DriverBinPath           string `help:"chromedriver executable, empty for the bundled one" toml:"driver.bin_path" env:"DRIVER_BIN_PATH"`
	DriverProxyHost         string `help:"Host the driver is reached on" default:"localhost" toml:"driver.proxy_host" env:"DRIVER_PROXY_HOST"`
	DriverProxyPort         int    `help:"Port the driver listens on" default:"9515" toml:"driver.proxy_port" env:"DRIVER_PROXY_PORT"`
	DriverURLBase           string `help:"URL base path of the driver" default:"wd/hub" toml:"driver.url_base" env:"DRIVER_URL_BASE"`
	DriverReadyIntervalMs   int    `help:"Delay between readiness probes in milliseconds" default:"1000" toml:"driver.ready_interval_ms" env:"DRIVER_READY_INTERVAL_MS"`
	DriverReadyAttempts     int    `help:"Readiness probe attempts per phase" default:"20" toml:"driver.ready_attempts" env:"DRIVER_READY_ATTEMPTS"`
	DriverGracefulTimeoutMs int    `help:"Time to wait after SIGTERM before killing the driver" default:"5000" toml:"driver.graceful_timeout_ms" env:"DRIVER_GRACEFUL_TIMEOUT_MS"`
	DriverRequestTimeoutMs  int    `help:"Timeout of a single request to the driver" default:"30000" toml:"driver.request_timeout_ms" env:"DRIVER_REQUEST_TIMEOUT_MS"`
	DriverAutostart         bool   `help:"Start the driver with the configured capabilities on boot" default:"false" toml:"driver.autostart" env:"DRIVER_AUTOSTART"`
	MetricsSampleIntervalMs int    `help:"Driver process sampling interval in milliseconds" default:"5000" toml:"metrics.sample_interval_ms" env:"METRICS_SAMPLE_INTERVAL_MS"`
	ShutdownTimeoutMs       int    `help:"Time allowed for a graceful shutdown" default:"10000" toml:"server.shutdown_timeout_ms" env:"SHUTDOWN_TIMEOUT_MS"`

	// Auth settings
	AuthUsername string `help:"Basic auth username, empty disables auth" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel        string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat       string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingDriver       string `help:"Supervisor logging level" default:"info" toml:"logging.driver" env:"LOGGING_DRIVER"`
	LoggingChromedriver string `help:"Driver process output logging level" default:"info" toml:"logging.chromedriver" env:"LOGGING_CHROMEDRIVER"`
	LoggingAPI          string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP         string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
}

func (o *Options) loggingConfig() logging.Config {
	return logging.Config{
		Level:  o.LoggingLevel,
		Format: o.LoggingFormat,
		Modules: map[string]string{
			"driver":       o.LoggingDriver,
			"chromedriver": o.LoggingChromedriver,
			"api":          o.LoggingAPI,
			"http":         o.LoggingHTTP,
		},
	}
}

func (o *Options) driverConfig() driver.Config {
	return driver.Config{
		ProxyHost:       o.DriverProxyHost,
		ProxyPort:       o.DriverProxyPort,
		URLBase:         o.DriverURLBase,
		BinPath:         o.DriverBinPath,
		ReadyInterval:   ms(o.DriverReadyIntervalMs),
		ReadyAttempts:   o.DriverReadyAttempts,
		GracefulTimeout: ms(o.DriverGracefulTimeoutMs),
		RequestTimeout:  ms(o.DriverRequestTimeoutMs),
	}
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(opts.loggingConfig())
		logger := logging.GetLogger("main")

		var (
			ctx        context.Context
			cancel     context.CancelFunc
			supervisor *driver.Supervisor
			server     *api.Server
			collector  *collectors.ProcessCollector
			watcher    *config.Watcher[logging.Config]
			notifier   *systemd.Notifier
			untrack    func()
		)

		hooks.OnStart(func() {
			ctx, cancel = context.WithCancel(context.Background())

			eventBus := events.New()
			logging.GetHistory().OnEntry(func(e logging.Entry) {
				eventBus.Publish(api.LogEntryEvent(e))
			})

			driverCfg := opts.driverConfig()
			extra, extraErr := config.LoadDriverExtra(opts.Config)
			if extraErr != nil {
				logger.Warn("Failed to load driver extra options", "error", extraErr)
			}
			driverCfg.Extra = extra

			caps, capsErr := config.LoadCapabilities(opts.Config)
			if capsErr != nil {
				logger.Warn("Failed to load driver capabilities", "error", capsErr)
			}

			supervisor = driver.NewSupervisor(&driver.Options{
				Config: driverCfg,
				Bus:    eventBus,
			})

			collector = collectors.NewProcessCollector(supervisor.PID, ms(opts.MetricsSampleIntervalMs))
			if startErr := collector.Start(ctx); startErr != nil {
				logger.Warn("Failed to start process collector", "error", startErr)
			}

			notifier = systemd.NewNotifier()
			untrack = notifier.TrackDriver(eventBus)
			go notifier.RunWatchdog(ctx)

			if opts.Config != "" {
				watcher = config.NewConfigWatcher(opts.Config, config.LoadLoggingConfigStrict, logger)
				watcher.OnReload(logging.SetLevels)
				if watchErr := watcher.Start(); watchErr != nil {
					logger.Warn("Failed to watch config file", "path", opts.Config, "error", watchErr)
					watcher = nil
				}
			}

			server = api.NewServer(&api.Options{
				AuthUsername:      opts.AuthUsername,
				AuthPassword:      opts.AuthPassword,
				Driver:            supervisor,
				EventBus:          eventBus,
				History:           logging.GetHistory(),
				Capabilities:      caps,
				PrometheusHandler: exporters.HTTPHandler(),
			})

			if opts.DriverAutostart {
				go func() {
					if startErr := supervisor.Start(ctx, caps); startErr != nil {
						logger.Error("Driver autostart failed", "error", startErr)
					}
				}()
			}

			notifier.Ready()
			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			if notifier != nil {
				notifier.Stopping()
			}

			shutdownCtx, done := context.WithTimeout(context.Background(), ms(opts.ShutdownTimeoutMs))
			defer done()

			if server != nil {
				if stopErr := server.Stop(shutdownCtx); stopErr != nil {
					logger.Error("Error stopping HTTP server", "error", stopErr)
				}
			}

			// The driver goes after the API so no new start can race the stop.
			if supervisor != nil {
				if stopErr := supervisor.Stop(shutdownCtx); stopErr != nil {
					logger.Error("Error stopping chromedriver", "error", stopErr)
				}
			}

			if collector != nil {
				_ = collector.Stop()
			}
			if watcher != nil {
				_ = watcher.Stop()
			}
			if untrack != nil {
				untrack()
			}
			if cancel != nil {
				cancel()
			}
		})
	})

	cli.Root().Use = "chromedriverd"
	cli.Root().Short = "Supervisor for a local chromedriver process"

	cli.Root().AddCommand(cmd.CreateLaunchCmd())
	cli.Root().AddCommand(cmd.CreateReapCmd())
	cli.Root().AddCommand(cmd.CreateVersionCmd())

	cli.Run()
}
