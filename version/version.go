// Package version provides version information for the freshrss-mcp server.
package version

import (
	"runtime"
	"runtime/debug"
	"strings"
)

const unknownValue = "unknown"

// These variables can be set at build time using -ldflags
var (
	// Version is the version of the binary, set at build time
	Version = "dev"
	// GitCommit is the git commit hash, set at build time
	GitCommit = unknownValue
	// BuildDate is the build date, set at build time
	BuildDate = unknownValue
)

// Info contains version information
type Info struct {
	Version   string
	GitCommit string
	BuildDate string
	GoVersion string
}

// Get returns version information, falling back to VCS build metadata
// when nothing was injected at build time.
func Get() Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}

	if info.Version == "dev" {
		if buildInfo, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range buildInfo.Settings {
				switch setting.Key {
				case "vcs.revision":
					if info.GitCommit == unknownValue {
						info.GitCommit = shortCommit(setting.Value)
					}
				case "vcs.time":
					if info.BuildDate == unknownValue {
						info.BuildDate = setting.Value
					}
				}
			}
		}
	}

	info.Version = strings.TrimPrefix(info.Version, "v")

	return info
}

func shortCommit(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}

// GetVersion returns just the version string
func GetVersion() string {
	return Get().Version
}
