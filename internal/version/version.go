// Package version carries build identification, injected at link time
// via -ldflags "-X".
package version

import "fmt"

var (
	// Version is the release version.
	Version = "dev"
	// GitSHA is the git commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// String formats the build identification for -version output.
func String() string {
	return fmt.Sprintf("fluxnorm %s (%s, built %s)", Version, GitSHA, BuildTime)
}
