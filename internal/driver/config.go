package driver

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/smazurov/chromedriverd/internal/events"
)

// Defaults applied by NewSupervisor.
const (
	DefaultProxyHost       = "localhost"
	DefaultProxyPort       = 9515
	DefaultURLBase         = "wd/hub"
	DefaultReadyInterval   = time.Second
	DefaultReadyAttempts   = 20
	DefaultGracefulTimeout = 5 * time.Second
	DefaultRequestTimeout  = 30 * time.Second
)

// Config describes how the driver is launched and reached.
type Config struct {
	ProxyHost       string
	ProxyPort       int
	URLBase         string
	BinPath         string
	ReadyInterval   time.Duration
	ReadyAttempts   int
	GracefulTimeout time.Duration
	RequestTimeout  time.Duration
	// Extra holds caller-defined options. It is carried verbatim and only
	// reported back through Info.
	Extra map[string]any
}

func (c *Config) applyDefaults() {
	if c.ProxyHost == "" {
		c.ProxyHost = DefaultProxyHost
	}
	if c.ProxyPort <= 0 {
		c.ProxyPort = DefaultProxyPort
	}
	if c.URLBase == "" {
		c.URLBase = DefaultURLBase
	}
	if c.BinPath == "" {
		c.BinPath = DefaultBinPath()
	}
	if c.ReadyInterval <= 0 {
		c.ReadyInterval = DefaultReadyInterval
	}
	if c.ReadyAttempts <= 0 {
		c.ReadyAttempts = DefaultReadyAttempts
	}
	if c.GracefulTimeout <= 0 {
		c.GracefulTimeout = DefaultGracefulTimeout
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
}

// Args returns the command-line arguments the driver is spawned with.
func (c Config) Args() []string {
	return []string{
		"--url-base=" + c.URLBase,
		"--port=" + strconv.Itoa(c.ProxyPort),
	}
}

// Options configures a Supervisor. Nil collaborators get defaults: a proxy
// client for Commander, a ProcessReaper for Reaper and the "driver" and
// "chromedriver" module loggers.
type Options struct {
	Config        Config
	Bus           *events.Bus
	Commander     Commander
	Reaper        Reaper
	Logger        *slog.Logger
	ProcessLogger *slog.Logger
}
