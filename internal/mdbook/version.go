package mdbook

import (
	"strings"

	"golang.org/x/mod/semver"
)

// SupportedVersion is the mdbook release this preprocessor is built against.
const SupportedVersion = "0.4.40"

// Supports reports whether the preprocessor works with renderer. Only the
// "not-supported" renderer is refused.
func Supports(renderer string) bool {
	return renderer != "not-supported"
}

// CompatibleVersion reports whether version shares the major and minor
// version of SupportedVersion. Unparseable versions are incompatible.
func CompatibleVersion(version string) bool {
	v := canonical(version)
	if !semver.IsValid(v) {
		return false
	}
	return semver.MajorMinor(v) == semver.MajorMinor(canonical(SupportedVersion))
}

func canonical(version string) string {
	version = strings.TrimSpace(version)
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	return version
}
