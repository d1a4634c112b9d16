// Package version exposes build metadata injected at link time.
//
// The release pipeline sets the variables below with -ldflags, for example:
//
//	go build -ldflags "-X github.com/Maverick-D-Aece/dirstat-pro/internal/version.Version=1.2.0 \
//	  -X github.com/Maverick-D-Aece/dirstat-pro/internal/version.GitCommit=$(git rev-parse --short HEAD)"
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Set via -ldflags at build time. Defaults describe a local dev build.
var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

// BuildInfo collects everything the version command reports.
type BuildInfo struct {
	Version   string
	BuildDate string
	GitCommit string
	GitBranch string

	GoVersion string
	Platform  string

	NumCPU     int
	GOMAXPROCS int

	Deps []Dependency
}

// Dependency identifies a module compiled into the binary.
type Dependency struct {
	Path    string
	Version string
}

// Get assembles a BuildInfo from the linker variables and the runtime.
func Get() BuildInfo {
	info := BuildInfo{
		Version:    Version,
		BuildDate:  BuildDate,
		GitCommit:  GitCommit,
		GitBranch:  GitBranch,
		GoVersion:  runtime.Version(),
		Platform:   fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		NumCPU:     runtime.NumCPU(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range bi.Deps {
			info.Deps = append(info.Deps, Dependency{Path: dep.Path, Version: dep.Version})
		}
		// Prefer VCS metadata stamped by the toolchain when ldflags were not set.
		if info.GitCommit == "unknown" {
			for _, s := range bi.Settings {
				if s.Key == "vcs.revision" && len(s.Value) >= 7 {
					info.GitCommit = s.Value[:7]
				}
			}
		}
	}

	return info
}

// Short returns the single-line form used by --version.
func Short() string {
	info := Get()
	return fmt.Sprintf("dirstat %s (%s, %s)", info.Version, info.GitCommit, info.GoVersion)
}

// Full returns the multi-line report printed by the version command.
func Full() string {
	info := Get()

	var b strings.Builder
	fmt.Fprintf(&b, "dirstat %s\n\n", info.Version)

	fmt.Fprintf(&b, "Build:\n")
	fmt.Fprintf(&b, "  Date:       %s\n", info.BuildDate)
	fmt.Fprintf(&b, "  Commit:     %s\n", info.GitCommit)
	fmt.Fprintf(&b, "  Branch:     %s\n", info.GitBranch)
	fmt.Fprintf(&b, "  Go:         %s\n", info.GoVersion)
	fmt.Fprintf(&b, "  Platform:   %s\n\n", info.Platform)

	fmt.Fprintf(&b, "Runtime:\n")
	fmt.Fprintf(&b, "  CPUs:       %d\n", info.NumCPU)
	fmt.Fprintf(&b, "  GOMAXPROCS: %d\n", info.GOMAXPROCS)

	if len(info.Deps) > 0 {
		fmt.Fprintf(&b, "\nDependencies:\n")
		shown := info.Deps
		if len(shown) > 8 {
			shown = shown[:8]
		}
		for _, dep := range shown {
			fmt.Fprintf(&b, "  %s %s\n", dep.Path, dep.Version)
		}
		if len(info.Deps) > len(shown) {
			fmt.Fprintf(&b, "  ... and %d more\n", len(info.Deps)-len(shown))
		}
	}

	return b.String()
}
