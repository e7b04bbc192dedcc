// Package version provides build-time version information for the weather tracker.
// Values are injected at build time with -ldflags "-X".
package version

import (
	"runtime"
	"time"
)

// Service is the name reported by /version and used as the telemetry service name.
const Service = "weather-tracker"

// Build-time variables set via ldflags.
var (
	// Version is the current version of the application
	Version = "1.0.0"

	// BuildTime is when the binary was built (RFC3339 format)
	BuildTime = "unknown"

	GitCommit = "unknown"
	GitBranch = "unknown"
)

// Info contains version and build information.
type Info struct {
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	BuildTime string    `json:"build_time"`
	GitCommit string    `json:"git_commit"`
	GitBranch string    `json:"git_branch"`
	GoVersion string    `json:"go_version"`
	Platform  string    `json:"platform"`
	BuildDate time.Time `json:"build_date"`
}

// Get returns version and build information.
func Get() Info {
	var buildDate time.Time

	// "unknown" in development builds
	if t, err := time.Parse(time.RFC3339, BuildTime); err == nil {
		buildDate = t
	}

	return Info{
		Service:   Service,
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
		GitBranch: GitBranch,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		BuildDate: buildDate,
	}
}

// Short returns "service/version", suitable for a User-Agent.
func Short() string {
	return Service + "/" + Version
}
