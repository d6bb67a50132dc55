package driver

import "strings"

// ParseLogLevel extracts the level from chromedriver's log format:
// "[1578328372.123][SEVERE]: message". Lines without a recognized level
// are reported as info.
func ParseLogLevel(line string) (level, msg string) {
	if len(line) < 3 || line[0] != '[' {
		return "info", line
	}

	end := strings.Index(line, "][")
	if end == -1 {
		return "info", line
	}

	rest := line[end+2:]
	closing := strings.Index(rest, "]")
	if closing == -1 {
		return "info", line
	}

	level, ok := mapLevel(rest[:closing])
	if !ok {
		return "info", line
	}

	msg = strings.TrimPrefix(rest[closing+1:], ":")
	return level, strings.TrimSpace(msg)
}

func mapLevel(s string) (string, bool) {
	switch s {
	case "SEVERE":
		return "error", true
	case "WARNING":
		return "warning", true
	case "INFO":
		return "info", true
	case "DEBUG", "ALL", "FINE", "FINER", "FINEST":
		return "debug", true
	}
	return "", false
}
