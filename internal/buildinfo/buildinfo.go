package buildinfo

import "runtime/debug"

// These values are injected by GoReleaser via ldflags for release binaries.
// They default to empty for local/dev builds.
var (
	Version = ""
	Commit  = ""
	Date    = ""
)

// cacheFormat is bumped whenever the persisted cache record layout changes.
const cacheFormat = "1"

var readBuildInfo = debug.ReadBuildInfo

// ResolvedVersion returns the ldflags version, falling back to the module
// version recorded by the Go toolchain, then "devel".
func ResolvedVersion() string {
	if Version != "" {
		return Version
	}
	if bi, ok := readBuildInfo(); ok && bi != nil {
		if v := bi.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return "devel"
}

// CacheVersion tags the persisted data cache. A cache written by any other
// version is discarded on load.
func CacheVersion() string {
	return ResolvedVersion() + "+cache" + cacheFormat
}
