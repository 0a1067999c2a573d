package version

import (
	"runtime/debug"
	"strings"
)

// Default is the default version value used when none was found.
const Default = "dev"

// version holds the current version from the go.mod of downstream users or set by ldflag for velower CLI.
var version string

// GetVelowerVersion returns the current version of velower either in the go.mod or set by ldflag for velower CLI.
//
// If this is not CLI, this assumes that downstream users of velower imports velower as "github.com/tetratelabs/velower".
func GetVelowerVersion() (ret string) {
	if len(version) != 0 {
		return version
	}

	info, ok := debug.ReadBuildInfo()
	if ok {
		for _, dep := range info.Deps {
			// Note: here's the assumption that modules imported as velower would have "github.com/tetratelabs/velower" in its path.
			if strings.Contains(dep.Path, "github.com/tetratelabs/velower") {
				ret = dep.Version
			}
		}

		// In velower CLI, velower is a main module, so we have to get the version info from info.Main.
		if versionMissing(ret) {
			ret = info.Main.Version
		}
	}
	if versionMissing(ret) {
		return Default // don't return parens
	}
	return ret
}

func versionMissing(ret string) bool {
	return ret == "" || ret == "(devel)" // pkg.go for the latter
}
