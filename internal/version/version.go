package version

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is the released version, overridden at build time:
//
//	go build -ldflags "-X github.com/hrygo/polyglot/internal/version.Version=0.3.0"
var Version = "0.0.0-dev"

// GitCommit is the git commit hash at build time.
var GitCommit = "unknown"

// BuildTime is the build timestamp in RFC3339 format.
var BuildTime = "unknown"

// IsRelease reports whether Version is a valid semantic version without a prerelease suffix.
func IsRelease() bool {
	v := "v" + Version
	return semver.IsValid(v) && semver.Prerelease(v) == ""
}

// IsVersionGreaterOrEqualThan returns true if version is greater than or equal to target.
func IsVersionGreaterOrEqualThan(version, target string) bool {
	return semver.Compare(fmt.Sprintf("v%s", version), fmt.Sprintf("v%s", target)) > -1
}

func shortCommit() string {
	if GitCommit == "" || GitCommit == "unknown" {
		return ""
	}
	if len(GitCommit) > 8 {
		return GitCommit[:8]
	}
	return GitCommit
}

// String returns the version string with optional commit hash.
func String() string {
	if c := shortCommit(); c != "" {
		return Version + "-" + c
	}
	return Version
}

// StringFull returns the complete version information including build metadata.
func StringFull() string {
	parts := []string{"Version=" + Version}
	if c := shortCommit(); c != "" {
		parts = append(parts, "Commit="+c)
	}
	if BuildTime != "" && BuildTime != "unknown" {
		parts = append(parts, "BuildTime="+BuildTime)
	}
	return strings.Join(parts, " ")
}
