package common

import "runtime/debug"

// ModuleVersion returns the version of a dependency linked into the binary,
// or "unknown" when build information is unavailable (e.g. in tests).
func ModuleVersion(path string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, dep := range info.Deps {
		if dep.Path != path {
			continue
		}
		if dep.Replace != nil {
			return dep.Replace.Version
		}
		return dep.Version
	}
	return "unknown"
}
