// Package version reports the agrovihan build version.
package version

import "runtime/debug"

// Set at build time with -ldflags "-X github.com/agrovihan/agrovihan/pkg/version.version=...".
//
//nolint:gochecknoglobals // Populated by the linker.
var (
	version = ""
	commit  = ""
)

const devVersion = "dev"

// GetVersion returns the linker-provided version, the module version when
// installed with go install, or "dev".
func GetVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return devVersion
}

// GetCommit returns the linker-provided commit, or the VCS revision recorded
// in the build info.
func GetCommit() string {
	if commit != "" {
		return commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return ""
}
