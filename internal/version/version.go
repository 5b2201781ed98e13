// Package version carries build metadata set through ldflags.
package version

import (
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is the released version, overridden at build time:
//
//	go build -ldflags "-X github.com/hrygo/automl/internal/version.Version=0.3.0"
var Version = "0.1.0-dev"

// GitCommit is the commit hash at build time.
var GitCommit = "unknown"

// BuildTime is the build timestamp in RFC3339 format.
var BuildTime = "unknown"

// Info is the version payload served by the status endpoint.
type Info struct {
	Version   string `json:"version"`
	Minor     string `json:"minor,omitempty"`
	Commit    string `json:"commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
}

// Get returns the current build info.
func Get() Info {
	info := Info{
		Version:   Version,
		Minor:     MinorVersion(Version),
		GoVersion: runtime.Version(),
	}
	if known(GitCommit) {
		info.Commit = shortCommit(GitCommit)
	}
	if known(BuildTime) {
		info.BuildTime = BuildTime
	}
	return info
}

// MinorVersion returns "major.minor" of v, or "" when v is not a semantic version.
func MinorVersion(v string) string {
	return strings.TrimPrefix(semver.MajorMinor(canonical(v)), "v")
}

// IsValid reports whether v is a semantic version, with or without the leading "v".
func IsValid(v string) bool {
	return semver.IsValid(canonical(v))
}

// AtLeast reports whether v is greater than or equal to target.
func AtLeast(v, target string) bool {
	return semver.Compare(canonical(v), canonical(target)) >= 0
}

// String returns the version with the short commit hash appended when known.
func String() string {
	if known(GitCommit) {
		return fmt.Sprintf("%s-%s", Version, shortCommit(GitCommit))
	}
	return Version
}

func canonical(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

func known(s string) bool {
	return s != "" && s != "unknown"
}

func shortCommit(c string) string {
	if len(c) > 8 {
		return c[:8]
	}
	return c
}
