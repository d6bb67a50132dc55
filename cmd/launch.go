package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/smazurov/chromedriverd/internal/driver"
	"github.com/spf13/cobra"
)

// CreateLaunchCmd creates the launch command.
func CreateLaunchCmd() *cobra.Command {
	var binPath string
	var port int
	var urlBase string

	cmd := &cobra.Command{
		Use:   "launch [-- driver-args...]",
		Short: "Run chromedriver without supervision",
		Long: `Starts chromedriver directly, without reaping stale drivers, checking its startup banner or probing readiness. ` +
			`Driver output goes to the terminal. The driver is killed on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := driver.Config{BinPath: binPath, ProxyPort: port, URLBase: urlBase}
			if cfg.BinPath == "" {
				cfg.BinPath = driver.DefaultBinPath()
			}
			if cfg.ProxyPort <= 0 {
				cfg.ProxyPort = driver.DefaultProxyPort
			}
			if cfg.URLBase == "" {
				cfg.URLBase = driver.DefaultURLBase
			}
			return runLaunch(ctx, cfg.BinPath, append(cfg.Args(), args...), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&binPath, "bin", "", "chromedriver executable, empty for the bundled one")
	cmd.Flags().IntVar(&port, "port", driver.DefaultProxyPort, "Port the driver listens on")
	cmd.Flags().StringVar(&urlBase, "url-base", driver.DefaultURLBase, "URL base path of the driver")
	return cmd
}

// runLaunch starts the standalone driver and blocks until ctx ends or the
// driver exits on its own.
func runLaunch(ctx context.Context, binPath string, args []string, out io.Writer) error {
	proc, err := driver.LaunchStandalone(binPath, args...)
	if err != nil {
		return fmt.Errorf("launch %s: %w", binPath, err)
	}
	fmt.Fprintf(out, "chromedriver running with pid %d\n", proc.Pid)

	select {
	case <-ctx.Done():
		fmt.Fprintln(out, "stopping chromedriver")
		return driver.KillStandalone()
	case <-driver.StandaloneDone():
		fmt.Fprintln(out, "chromedriver exited")
		return driver.KillStandalone()
	}
}
