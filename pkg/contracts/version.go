package contracts

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

const (
	// Version is the release of drtbatch
	Version = "0.3.0"

	// DataFormatVersion versions the stage file layouts (trimmed series,
	// DRT results, matrix). Bump it when any of them changes.
	DataFormatVersion = "v1"
)

// Set with -ldflags "-X drtbatch/pkg/contracts.GitCommit=..."; when left
// empty they are read from the module build info.
var (
	BuildTime = ""
	GitCommit = ""
)

// VersionInfo identifies the binary that produced a run. It is recorded in
// the run manifest.
type VersionInfo struct {
	Version    string `json:"version"`
	DataFormat string `json:"data_format"`
	Commit     string `json:"commit,omitempty"`
	BuildTime  string `json:"build_time,omitempty"`
	Modified   bool   `json:"modified,omitempty"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// GetVersionInfo describes the running binary
func GetVersionInfo() VersionInfo {
	info := VersionInfo{
		Version:    Version,
		DataFormat: DataFormatVersion,
		Commit:     GitCommit,
		BuildTime:  BuildTime,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.BuildTime == "" {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

// GetVersionString returns "drtbatch v<version>"
func GetVersionString() string {
	return "drtbatch v" + Version
}

// GetFullVersionString returns the version with build details, for -version
func GetFullVersionString() string {
	info := GetVersionInfo()
	commit := info.Commit
	if commit == "" {
		commit = "unknown"
	} else if len(commit) > 12 {
		commit = commit[:12]
	}
	if info.Modified {
		commit += "+dirty"
	}
	return fmt.Sprintf("%s (data format %s, commit %s, %s %s)",
		GetVersionString(), info.DataFormat, commit, info.GoVersion, info.Platform)
}
