package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/smazurov/chromedriverd/internal/driver"
	"github.com/smazurov/chromedriverd/internal/logging"
	"github.com/spf13/cobra"
)

// CreateReapCmd creates the reap command.
func CreateReapCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "reap",
		Short: "Kill stale chromedriver processes",
		Long:  `Terminates every running chromedriver that was started with a --port= argument, the same pass the daemon runs before each start.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reaper := driver.NewProcessReaper(name, logging.GetLogger("driver"))
			return runReap(cmd.Context(), reaper, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&name, "name", driver.FileName(), "Executable name to match")
	return cmd
}

func runReap(ctx context.Context, reaper driver.Reaper, out io.Writer) error {
	n, err := reaper.Reap(ctx)
	fmt.Fprintf(out, "reaped %d chromedriver process(es)\n", n)
	return err
}
