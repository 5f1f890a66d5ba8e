// SPDX-License-Identifier: MIT
//
// Package build manages the build information embedded into the binary at
// compile time with linker flags:
//
//	go build -ldflags "-X spectra/pkg/build.buildName=spectra \
//	    -X spectra/pkg/build.buildVersion=v0.3.0 ..."
//
// Development builds carry no flags; their information falls back to the
// module data recorded by the Go toolchain.
package build

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// Description is the one-line summary shown by the CLI.
const Description = "Live audio spectrum analyser"

const defaultName = "spectra"

// Info is the build information of the running binary.
type Info struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// String formats the information for version output.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

// Package-level variables for build information. These are populated by -ldflags
// during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &Info{
		Name:    defaultName,
		Time:    "unknown",
		Commit:  "unknown",
		Version: "dev",
	}
)

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// Initialize copies build information from the ldflags variables into the
// package state. Every missing flag is reported in the returned error; the
// corresponding field keeps its fallback so callers may log and continue.
func Initialize() error {
	fallback(buildFlags)

	var errs []error
	set := func(dst *string, value, flag string) {
		if value == "" {
			errs = append(errs, fmt.Errorf("%s is required", flag))
			return
		}
		*dst = value
	}

	set(&buildFlags.Name, buildName, "BuildName")
	set(&buildFlags.Time, buildTime, "BuildTime")
	set(&buildFlags.Commit, buildCommit, "BuildCommit")
	set(&buildFlags.Version, buildVersion, "BuildVersion")

	return errors.Join(errs...)
}

// fallback fills info from the toolchain's module and VCS data.
func fallback(info *Info) {
	bi, ok := readBuildInfo()
	if !ok {
		return
	}
	if v := bi.Main.Version; v != "" && v != "(devel)" {
		info.Version = v
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Commit = s.Value
		case "vcs.time":
			info.Time = s.Value
		}
	}
}

// GetBuildFlags returns the current build information. Initialize should be
// called first so that linker flags are applied.
func GetBuildFlags() *Info {
	return buildFlags
}
