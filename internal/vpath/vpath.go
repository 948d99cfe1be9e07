// Package vpath implements the qmd:// virtual path scheme that gives a
// document its external identity: the pair (collection, path) rendered as
// qmd://collection/path.
package vpath

import "strings"

// Path is a parsed virtual path.
type Path struct {
	Collection string
	Path       string
}

// Normalize collapses qmd: plus any number of slashes, and a bare //
// prefix, down to exactly qmd://. Anything else (bare collection/path,
// filesystem paths, doc ids) passes through unchanged. Normalize is
// idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(input string) string {
	s := strings.TrimSpace(input)

	if strings.HasPrefix(s, "qmd:") {
		rest := strings.TrimLeft(s[len("qmd:"):], "/")
		return "qmd://" + rest
	}

	if strings.HasPrefix(s, "//") {
		rest := strings.TrimLeft(s, "/")
		return "qmd://" + rest
	}

	return s
}

// IsVirtual reports whether s is an explicit virtual path, i.e. it starts
// with "qmd:" or "//". A bare "collection/path" is never virtual — callers
// must distinguish that case themselves.
func IsVirtual(s string) bool {
	trimmed := strings.TrimSpace(s)
	return strings.HasPrefix(trimmed, "qmd:") || strings.HasPrefix(trimmed, "//")
}

// Parse parses a virtual path into its (collection, path) components.
// Accepts qmd://C/P, qmd:////C/P, //C/P, and bare collection-root forms
// C and C/ (a lone component with no embedded slash). A bare multi-segment
// path such as "collection/path" is not a recognized virtual-path form and
// returns ok=false; such strings are not virtual (see IsVirtual) and
// callers must disambiguate them on their own.
func Parse(s string) (Path, bool) {
	normalized := Normalize(s)

	if rest, ok := strings.CutPrefix(normalized, "qmd://"); ok {
		if collection, path, found := strings.Cut(rest, "/"); found {
			return Path{Collection: collection, Path: path}, true
		}
		return Path{Collection: rest, Path: ""}, true
	}

	// Bare collection-root form: "C" or "C/", no embedded slash.
	bare := strings.TrimSuffix(normalized, "/")
	if bare != "" && !strings.Contains(bare, "/") {
		return Path{Collection: bare, Path: ""}, true
	}

	return Path{}, false
}

// Build renders (collection, path) as its canonical wire form. An empty
// path renders as the collection root, qmd://collection/.
func Build(collection, path string) string {
	if path == "" {
		return "qmd://" + collection + "/"
	}
	return "qmd://" + collection + "/" + path
}
