// Package version exposes the build identity stamped into the binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set at build time via
// -ldflags "-X github.com/mirrordex/mirrordex/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Info is the build identity in a JSON-friendly shape.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Date      string `json:"date,omitempty"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// Get assembles the build identity, filling commit and date from the
// module's embedded VCS metadata when ldflags left them blank.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.Date == "" {
					info.Date = s.Value
				}
			}
		}
	}
	return info
}

// String renders the identity as a single human-readable line.
func (i Info) String() string {
	line := fmt.Sprintf("mirrordex %s (%s, %s)", i.Version, i.GoVersion, i.Platform)
	if i.Commit != "" {
		line += " commit " + i.Commit
	}
	if i.Date != "" {
		line += " built " + i.Date
	}
	return line
}
