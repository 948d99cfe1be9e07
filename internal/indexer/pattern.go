package indexer

import (
	"path"
	"strings"
)

// MatchPattern reports whether relPath (slash-separated) matches a glob
// pattern, supporting the subset of glob syntax collection configs
// actually use: "**/*.ext" (any depth), "dir/**" (subtree), "*.ext"
// (top-level only), and plain path.Match patterns otherwise.
func MatchPattern(relPath, pattern string) bool {
	base := path.Base(relPath)

	switch {
	case strings.HasPrefix(pattern, "**/"):
		suffix := strings.TrimPrefix(pattern, "**/")
		if !strings.Contains(suffix, "/") {
			ok, _ := path.Match(suffix, base)
			return ok
		}
		// "**/dir/*.ext" style: match the suffix against any trailing
		// slice of the path's segments.
		segs := strings.Split(relPath, "/")
		sufSegs := strings.Split(suffix, "/")
		if len(sufSegs) > len(segs) {
			return false
		}
		tail := strings.Join(segs[len(segs)-len(sufSegs):], "/")
		ok, _ := path.Match(suffix, tail)
		return ok

	case strings.HasSuffix(pattern, "/**"):
		prefix := strings.TrimSuffix(pattern, "/**")
		return relPath == prefix || strings.HasPrefix(relPath, prefix+"/")

	case strings.Contains(pattern, "/"):
		ok, _ := path.Match(pattern, relPath)
		return ok

	default:
		ok, _ := path.Match(pattern, relPath)
		return ok
	}
}
