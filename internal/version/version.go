package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// Version and Commit are normally stamped by the release build:
//
//	go build -ldflags="-X github.com/plantmeet/modelserve/internal/version.Version=v1.2.3 \
//	                   -X github.com/plantmeet/modelserve/internal/version.Commit=abc123"
//
// Unstamped builds derive both from the VCS settings Go embeds in the binary.
var (
	Version = ""
	Commit  = ""
)

const shortHashLen = 7

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		Version, Commit = resolve(Version, Commit, info.Settings, time.Now())
	} else {
		Version, Commit = resolve(Version, Commit, nil, time.Now())
	}
}

// resolve fills whichever of version and commit is empty from the embedded
// VCS settings. A commit from a dirty tree gets a "-dirty" suffix. Without
// VCS data the version becomes "dev-<build time>" and the commit "unknown".
func resolve(version, commit string, settings []debug.BuildSetting, now time.Time) (string, string) {
	vcs := make(map[string]string, len(settings))
	for _, s := range settings {
		vcs[s.Key] = s.Value
	}

	if commit == "" {
		if rev := vcs["vcs.revision"]; rev != "" {
			commit = rev[:min(len(rev), shortHashLen)]
			if vcs["vcs.modified"] == "true" {
				commit += "-dirty"
			}
		}
	}
	if version == "" {
		if t, err := time.Parse(time.RFC3339, vcs["vcs.time"]); err == nil {
			version = "dev-" + t.Format("20060102")
		}
	}

	if version == "" {
		version = "dev-" + now.Format("20060102-150405")
	}
	if commit == "" {
		commit = "unknown"
	}
	return version, commit
}

// Full returns the version with its commit, e.g. "v1.2.3 (commit: abc1234)".
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// Platform describes the runtime the binary was built for.
func Platform() string {
	return fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// UserAgent identifies modelserve tools in outgoing HTTP requests.
func UserAgent(program string) string {
	return fmt.Sprintf("%s/%s (%s/%s)", program, Version, runtime.GOOS, runtime.GOARCH)
}
