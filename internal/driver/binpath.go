package driver

import (
	"os"
	"path/filepath"
	"runtime"
)

// DriverVersion is the chromedriver release this daemon is built around.
const DriverVersion = "2.20"

// FileName returns the platform's chromedriver executable name.
func FileName() string {
	return fileNameFor(runtime.GOOS)
}

func fileNameFor(goos string) string {
	if goos == "windows" {
		return "chromedriver.exe"
	}
	return "chromedriver"
}

// DefaultBinPath resolves <dir of this executable>/../exec/<FileName()>.
func DefaultBinPath() string {
	self, err := os.Executable()
	if err != nil {
		return filepath.Join("exec", FileName())
	}
	if resolved, err := filepath.EvalSymlinks(self); err == nil {
		self = resolved
	}
	return filepath.Join(filepath.Dir(self), "..", "exec", FileName())
}

// binaryExists reports whether path names an existing regular file.
func binaryExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
