// Package collectors samples resource usage of the supervised driver.
package collectors

import (
	"context"
	"log/slog"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/smazurov/chromedriverd/internal/logging"
	"github.com/smazurov/chromedriverd/internal/metrics"
)

// PIDSource reports the current driver PID, 0 when none is running.
type PIDSource func() int

// ProcessCollector periodically samples RSS and CPU of the driver process.
type ProcessCollector struct {
	logger   *slog.Logger
	pid      PIDSource
	interval time.Duration
	current  *process.Process
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewProcessCollector creates a collector sampling every interval.
func NewProcessCollector(pid PIDSource, interval time.Duration) *ProcessCollector {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &ProcessCollector{
		logger:   logging.GetLogger("metrics"),
		pid:      pid,
		interval: interval,
	}
}

// Start begins collecting.
func (c *ProcessCollector) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go c.run()
	return nil
}

// Stop stops the collector and waits for the loop to exit.
func (c *ProcessCollector) Stop() error {
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
	return nil
}

func (c *ProcessCollector) run() {
	defer close(c.done)
	c.logger.Debug("Starting driver process sampling", "interval", c.interval)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collect()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

func (c *ProcessCollector) collect() {
	pid := c.pid()
	if pid <= 0 {
		if c.current != nil {
			c.current = nil
			metrics.ClearProcessStats()
		}
		return
	}

	// CPUPercent is measured since the previous call on the same handle.
	if c.current == nil || int(c.current.Pid) != pid {
		p, err := process.NewProcessWithContext(c.ctx, int32(pid))
		if err != nil {
			c.logger.Debug("Driver process not found", "pid", pid, "error", err)
			metrics.ClearProcessStats()
			c.current = nil
			return
		}
		c.current = p
	}

	stats, err := Sample(c.ctx, c.current)
	if err != nil {
		c.logger.Debug("Failed to sample driver process", "pid", pid, "error", err)
		return
	}
	metrics.SetProcessStats(stats)
}

// Sample reads memory and CPU usage of p.
func Sample(ctx context.Context, p *process.Process) (metrics.ProcessStats, error) {
	mem, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return metrics.ProcessStats{}, err
	}
	cpu, err := p.PercentWithContext(ctx, 0)
	if err != nil {
		return metrics.ProcessStats{}, err
	}
	return metrics.ProcessStats{
		PID:        int(p.Pid),
		RSSBytes:   mem.RSS,
		CPUPercent: cpu,
		SampledAt:  time.Now(),
	}, nil
}
