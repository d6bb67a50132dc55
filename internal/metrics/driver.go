// Package metrics provides Prometheus metrics for the supervised driver.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chromedriverd"

var (
	driverUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "driver",
		Name:      "up",
		Help:      "1 when the driver is ready to serve sessions",
	})

	stateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "driver",
		Name:      "state_transitions_total",
		Help:      "Supervisor state transitions",
	}, []string{"from", "to"})

	startsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "driver",
		Name:      "starts_total",
		Help:      "Start attempts by result",
	}, []string{"result"})

	startDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "driver",
		Name:      "start_duration_seconds",
		Help:      "Time from start request to ready or failure",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"result"})

	probeAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "driver",
		Name:      "probe_attempts_total",
		Help:      "Readiness probe attempts by phase and outcome",
	}, []string{"phase", "outcome"})

	reapedProcesses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "driver",
		Name:      "reaped_processes_total",
		Help:      "Stale driver processes terminated before spawning",
	})

	residentMemory = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "driver",
		Name:      "resident_memory_bytes",
		Help:      "Resident set size of the driver process",
	})

	cpuPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "driver",
		Name:      "cpu_percent",
		Help:      "CPU usage of the driver process",
	})

	// Local cache for the status API.
	processCache   *ProcessStats
	processCacheMu sync.RWMutex
)

// ProcessStats holds the last sampled resource usage of the driver.
type ProcessStats struct {
	PID        int
	RSSBytes   uint64
	CPUPercent float64
	SampledAt  time.Time
}

// SetDriverUp records whether the driver is ready.
func SetDriverUp(up bool) {
	if up {
		driverUp.Set(1)
		return
	}
	driverUp.Set(0)
}

// RecordStateTransition counts a supervisor state change.
func RecordStateTransition(from, to string) {
	stateTransitions.WithLabelValues(from, to).Inc()
}

// RecordStart records the outcome and duration of one start attempt.
// result is "ready" or "failed".
func RecordStart(result string, d time.Duration) {
	startsTotal.WithLabelValues(result).Inc()
	startDuration.WithLabelValues(result).Observe(d.Seconds())
}

// RecordProbeAttempt counts one readiness probe attempt.
func RecordProbeAttempt(phase string, ok bool) {
	outcome := "error"
	if ok {
		outcome = "ok"
	}
	probeAttempts.WithLabelValues(phase, outcome).Inc()
}

// AddReaped counts stale processes terminated by the reaper.
func AddReaped(n int) {
	if n > 0 {
		reapedProcesses.Add(float64(n))
	}
}

// SetProcessStats publishes a resource sample of the driver process.
func SetProcessStats(s ProcessStats) {
	residentMemory.Set(float64(s.RSSBytes))
	cpuPercent.Set(s.CPUPercent)

	processCacheMu.Lock()
	processCache = &s
	processCacheMu.Unlock()
}

// ClearProcessStats resets resource gauges once the driver is gone.
func ClearProcessStats() {
	residentMemory.Set(0)
	cpuPercent.Set(0)

	processCacheMu.Lock()
	processCache = nil
	processCacheMu.Unlock()
}

// GetProcessStats returns the last sample, or nil when none is current.
func GetProcessStats() *ProcessStats {
	processCacheMu.RLock()
	defer processCacheMu.RUnlock()
	if processCache == nil {
		return nil
	}
	dup := *processCache
	return &dup
}
