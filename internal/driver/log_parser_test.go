package driver

import "testing"

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		line      string
		wantLevel string
		wantMsg   string
	}{
		{"[1578328372.123][SEVERE]: Timed out receiving message", "error", "Timed out receiving message"},
		{"[1578328372.123][WARNING]: This version of ChromeDriver has not been tested", "warning", "This version of ChromeDriver has not been tested"},
		{"[1578328372.123][INFO]: COMMAND InitSession", "info", "COMMAND InitSession"},
		{"[1578328372.123][DEBUG]: DevTools request", "debug", "DevTools request"},
		{"[1578328372.123][BOGUS]: x", "info", "[1578328372.123][BOGUS]: x"},
		{"Only local connections are allowed.", "info", "Only local connections are allowed."},
		{"[unterminated", "info", "[unterminated"},
		{"", "info", ""},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			level, msg := ParseLogLevel(tt.line)
			if level != tt.wantLevel || msg != tt.wantMsg {
				t.Errorf("ParseLogLevel(%q) = (%q, %q), want (%q, %q)", tt.line, level, msg, tt.wantLevel, tt.wantMsg)
			}
		})
	}
}

func TestLineSplitter(t *testing.T) {
	var lines []string
	l := &lineSplitter{emit: func(s string) { lines = append(lines, s) }}

	l.Write([]byte("first\r\nsec"))
	l.Write([]byte("ond\n\nthi"))
	l.Flush()

	want := []string{"first", "second", "thi"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}
