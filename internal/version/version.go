// Package version exposes build metadata of the daemon and the driver
// release it manages.
package version

import (
	"fmt"
	"runtime"

	"github.com/smazurov/chromedriverd/internal/driver"
)

var (
	// Version is the application version, set via ldflags during build.
	Version = "dev"
	// GitCommit is the git commit hash, set via ldflags during build.
	GitCommit = "unknown"
	// BuildDate is the build timestamp, set via ldflags during build.
	BuildDate = "unknown"
)

// Info contains version and build metadata.
type Info struct {
	Version       string `json:"version"`
	GitCommit     string `json:"git_commit"`
	BuildDate     string `json:"build_date"`
	DriverVersion string `json:"driver_version"`
	DriverFile    string `json:"driver_file"`
	GoVersion     string `json:"go_version"`
	Platform      string `json:"platform"`
}

// Get returns version and build information.
func Get() Info {
	return Info{
		Version:       Version,
		GitCommit:     GitCommit,
		BuildDate:     BuildDate,
		DriverVersion: driver.DriverVersion,
		DriverFile:    driver.FileName(),
		GoVersion:     runtime.Version(),
		Platform:      fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns a one-line version summary.
func String() string {
	return fmt.Sprintf("chromedriverd %s (%s) chromedriver %s", Version, GitCommit, driver.DriverVersion)
}
