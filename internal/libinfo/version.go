/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package libinfo

import (
	"debug/buildinfo"
	"regexp"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	libShortName = "go-asyncrest"
	moduleName   = "github.com/acronis/" + libShortName
)

// PrometheusLibVersionLabel is the name of the const label that carries the library version.
const PrometheusLibVersionLabel = "go_asyncrest_version"

const unknownVersion = "v0.0.0"

var (
	libVersion     string
	libVersionOnce sync.Once
)

// LibVersion returns the version of the library, or "v0.0.0" if it can't be determined
// (e.g. in tests or in a binary built from a working copy).
func LibVersion() string {
	libVersionOnce.Do(func() {
		if info, ok := debug.ReadBuildInfo(); ok {
			libVersion = extractLibVersion(info, moduleName)
		}
		if libVersion == "" {
			libVersion = unknownVersion
		}
	})
	return libVersion
}

// UserAgent returns the default User-Agent of outgoing requests, "go-asyncrest/<version>".
func UserAgent() string {
	return libShortName + "/" + LibVersion()
}

// AddPrometheusLibVersionLabel returns a copy of labels with the library version label added.
func AddPrometheusLibVersionLabel(labels prometheus.Labels) prometheus.Labels {
	res := make(prometheus.Labels, len(labels)+1)
	for k, v := range labels {
		res[k] = v
	}
	res[PrometheusLibVersionLabel] = LibVersion()
	return res
}

// extractLibVersion looks for modName (optionally with a "/vN" major version suffix)
// among the main module and dependencies of the build.
func extractLibVersion(info *buildinfo.BuildInfo, modName string) string {
	if info == nil {
		return ""
	}
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(modName) + `(/v[0-9]+)?$`)
	if re.MatchString(info.Main.Path) && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	for _, dep := range info.Deps {
		if !re.MatchString(dep.Path) {
			continue
		}
		if dep.Replace != nil && dep.Replace.Version != "" {
			return dep.Replace.Version
		}
		return dep.Version
	}
	return ""
}
