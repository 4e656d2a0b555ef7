package planeio

import "github.com/blang/semver"

//go:generate go run ../cmd/gen-version -o version_git.go

// Version is the semantic version of this library.
var Version = semver.MustParse("0.4.1")

// gitVersion is set by the generated version_git.go, if present.
var gitVersion string

// GitVersion returns the git description of the source the library was built from, or
// "unknown" if version code was not generated.
func GitVersion() string {
	if gitVersion == "" {
		return "unknown"
	}
	return gitVersion
}
