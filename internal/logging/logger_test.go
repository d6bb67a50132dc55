package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
)

// resetLogging clears package state so tests don't leak levels into each other.
func resetLogging(t *testing.T) {
	t.Helper()
	mutex.Lock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	isInitialized = false
	globalConfig = Config{}
	stdout = io.Discard
	mutex.Unlock()
}

func TestModuleLevelOverride(t *testing.T) {
	resetLogging(t)

	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"driver": "debug",
			"api":    "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"driver", true, true, true},
		{"api", false, false, true},
		{"proxy", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			handler := GetLogger(tt.module).Handler()
			ctx := context.Background()

			if got := handler.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("module %q: Debug enabled = %v, want %v", tt.module, got, tt.wantDebug)
			}
			if got := handler.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("module %q: Info enabled = %v, want %v", tt.module, got, tt.wantInfo)
			}
			if got := handler.Enabled(ctx, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("module %q: Warn enabled = %v, want %v", tt.module, got, tt.wantWarn)
			}
		})
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetLogging(t)

	before := GetLogger("chromedriver")
	if before.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("logger created before Initialize should default to info")
	}

	Initialize(Config{
		Level:   "info",
		Format:  "text",
		Modules: map[string]string{"chromedriver": "debug"},
	})

	if !GetLogger("chromedriver").Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("logger should have debug enabled after Initialize")
	}
}

func TestSetLevels(t *testing.T) {
	resetLogging(t)
	Initialize(Config{Level: "info", Format: "text"})

	handler := GetLogger("driver").Handler()
	if handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug should be disabled initially")
	}

	SetLevels(Config{Level: "warn", Modules: map[string]string{"driver": "debug"}})

	if !handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("driver handler should accept debug after SetLevels")
	}
	if GetLogger("api").Handler().Enabled(context.Background(), slog.LevelInfo) {
		t.Error("api logger should follow the new global warn level")
	}
}

func TestFanoutHandlerWritesOnce(t *testing.T) {
	var buf bytes.Buffer

	debugHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	infoHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(NewFanoutHandler(debugHandler, infoHandler)).With("module", "test")
	logger.Debug("debug only message")

	if count := strings.Count(buf.String(), "debug only message"); count != 1 {
		t.Errorf("expected 1 debug message, got %d. Output: %s", count, buf.String())
	}
}

func TestHistoryHandlerCapturesModule(t *testing.T) {
	h := NewHistory(10)
	logger := slog.New(NewHistoryHandler(h, slog.LevelDebug)).With("module", "driver")

	logger.Info("Driver process started", "pid", 42, slog.Group("session", "id", "abc123"))

	entries := h.Since(0)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Module != "driver" {
		t.Errorf("Module = %q, want driver", e.Module)
	}
	if e.Level != "info" {
		t.Errorf("Level = %q, want info", e.Level)
	}
	if e.Attributes["pid"] != int64(42) {
		t.Errorf("pid = %v, want 42", e.Attributes["pid"])
	}
	if e.Attributes["session.id"] != "abc123" {
		t.Errorf("session.id = %v, want abc123", e.Attributes["session.id"])
	}
}

func TestHistoryWrapsAndSince(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Append(Entry{Message: string(rune('a' + i))})
	}

	if h.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", h.Len())
	}

	all := h.Since(0)
	var got []string
	for _, e := range all {
		got = append(got, e.Message)
	}
	if strings.Join(got, "") != "cde" {
		t.Errorf("Since(0) = %v, want [c d e]", got)
	}

	newer := h.Since(4)
	if len(newer) != 1 || newer[0].Seq != 5 {
		t.Errorf("Since(4) = %+v, want only seq 5", newer)
	}
}

func TestHistoryListener(t *testing.T) {
	h := NewHistory(2)
	var seen []uint64
	h.OnEntry(func(e Entry) { seen = append(seen, e.Seq) })

	h.Append(Entry{Message: "one"})
	h.Append(Entry{Message: "two"})
	h.OnEntry(nil)
	h.Append(Entry{Message: "three"})

	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("listener saw %v, want [1 2]", seen)
	}
}

func TestParseLevelValues(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
		isNil bool
	}{
		{"debug", slog.LevelDebug, false},
		{"TRACE", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"invalid", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input)
			switch {
			case tt.isNil && got != nil:
				t.Errorf("parseLevel(%q) = %v, want nil", tt.input, *got)
			case !tt.isNil && got == nil:
				t.Errorf("parseLevel(%q) = nil, want %v", tt.input, tt.want)
			case !tt.isNil && *got != tt.want:
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, *got, tt.want)
			}
		})
	}
}
