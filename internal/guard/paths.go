package guard

import "strings"

// skippedPrefixes bypass the guard entirely: static assets and
// infrastructure endpoints never need a session.
var skippedPrefixes = []string{
	"/_next",
	"/static",
	"/assets",
	"/favicon.ico",
	"/health",
	"/metrics",
}

// publicPrefixes never redirect, but a present session is still attached.
var publicPrefixes = []string{
	"/auth",
}

// IsSkipped reports whether the guard ignores path.
func IsSkipped(path string) bool {
	return matchesAny(path, skippedPrefixes)
}

// IsPublic reports whether path is reachable without a session.
func IsPublic(path string) bool {
	if path == "/" || IsSkipped(path) {
		return true
	}
	return matchesAny(path, publicPrefixes)
}

// matchesAny matches whole path segments, so "/auth" covers "/auth/login"
// but not "/authority".
func matchesAny(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
