package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are set via ldflags during build.
var (
	Version   = "dev"
	Commit    = "none"
	Date      = "unknown"
	GoVersion = runtime.Version()
)

// Platform returns GOOS/GOARCH.
func Platform() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}

// Summary returns the version with a short commit, e.g. "v1.2.0 (abc1234)".
func Summary() string {
	v := Version
	if v == "" {
		v = "dev"
	}
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
	}
	if Commit != "" && Commit != "none" {
		short := Commit
		if len(short) > 7 {
			short = short[:7]
		}
		return fmt.Sprintf("%s (%s)", v, short)
	}
	return v
}

// Details returns the multi-line output of `bioask version`.
func Details() string {
	return fmt.Sprintf("bioask %s\ncommit: %s\nbuilt: %s\ngo: %s\nplatform: %s",
		Summary(), Commit, Date, GoVersion, Platform())
}
