package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSetDriverUp(t *testing.T) {
	SetDriverUp(true)
	if got := testutil.ToFloat64(driverUp); got != 1 {
		t.Errorf("driver up = %v, want 1", got)
	}
	SetDriverUp(false)
	if got := testutil.ToFloat64(driverUp); got != 0 {
		t.Errorf("driver up = %v, want 0", got)
	}
}

func TestRecordStateTransition(t *testing.T) {
	before := testutil.ToFloat64(stateTransitions.WithLabelValues("spawning", "failed"))
	RecordStateTransition("spawning", "failed")
	RecordStateTransition("spawning", "failed")
	after := testutil.ToFloat64(stateTransitions.WithLabelValues("spawning", "failed"))
	if after-before != 2 {
		t.Errorf("transitions delta = %v, want 2", after-before)
	}
}

func TestRecordStartAndProbes(t *testing.T) {
	before := testutil.ToFloat64(startsTotal.WithLabelValues("ready"))
	RecordStart("ready", 1500*time.Millisecond)
	if got := testutil.ToFloat64(startsTotal.WithLabelValues("ready")); got-before != 1 {
		t.Errorf("starts delta = %v, want 1", got-before)
	}

	okBefore := testutil.ToFloat64(probeAttempts.WithLabelValues("session", "ok"))
	errBefore := testutil.ToFloat64(probeAttempts.WithLabelValues("session", "error"))
	RecordProbeAttempt("session", false)
	RecordProbeAttempt("session", true)
	if got := testutil.ToFloat64(probeAttempts.WithLabelValues("session", "ok")); got-okBefore != 1 {
		t.Errorf("ok delta = %v", got-okBefore)
	}
	if got := testutil.ToFloat64(probeAttempts.WithLabelValues("session", "error")); got-errBefore != 1 {
		t.Errorf("error delta = %v", got-errBefore)
	}
}

func TestAddReapedIgnoresZero(t *testing.T) {
	before := testutil.ToFloat64(reapedProcesses)
	AddReaped(0)
	AddReaped(3)
	if got := testutil.ToFloat64(reapedProcesses); got-before != 3 {
		t.Errorf("reaped delta = %v, want 3", got-before)
	}
}

func TestProcessStatsCache(t *testing.T) {
	ClearProcessStats()
	if GetProcessStats() != nil {
		t.Fatal("expected no stats after clear")
	}

	SetProcessStats(ProcessStats{PID: 42, RSSBytes: 1024, CPUPercent: 12.5})
	got := GetProcessStats()
	if got == nil || got.PID != 42 || got.RSSBytes != 1024 {
		t.Fatalf("stats = %+v", got)
	}
	if v := testutil.ToFloat64(residentMemory); v != 1024 {
		t.Errorf("rss gauge = %v", v)
	}

	got.PID = 7
	if GetProcessStats().PID != 42 {
		t.Error("GetProcessStats must return a copy")
	}

	ClearProcessStats()
	if v := testutil.ToFloat64(cpuPercent); v != 0 {
		t.Errorf("cpu gauge = %v after clear", v)
	}
}
