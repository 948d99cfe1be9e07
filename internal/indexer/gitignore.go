package indexer

import (
	"bufio"
	"os"
	"path"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// gitignoreCacheSize bounds the number of per-directory matchers a scan
// keeps compiled at once, the same bound the teacher's scanner uses for
// its own gitignore cache.
const gitignoreCacheSize = 1000

// gitignoreMatcher holds one directory's compiled .gitignore rules.
// Matching is a reduced subset of the gitignore grammar: literal and
// glob (path.Match) patterns, directory-only ("/" suffix) and negated
// ("!" prefix) rules. It does not support "**" double-star segments.
type gitignoreMatcher struct {
	rules []gitignoreRule
}

type gitignoreRule struct {
	pattern  string
	negation bool
	dirOnly  bool
	anchored bool
}

func parseGitignore(data []byte) *gitignoreMatcher {
	m := &gitignoreMatcher{}
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r := gitignoreRule{pattern: line}
		if strings.HasPrefix(r.pattern, "!") {
			r.negation = true
			r.pattern = strings.TrimPrefix(r.pattern, "!")
		}
		if strings.HasSuffix(r.pattern, "/") {
			r.dirOnly = true
			r.pattern = strings.TrimSuffix(r.pattern, "/")
		}
		if strings.HasPrefix(r.pattern, "/") {
			r.anchored = true
			r.pattern = strings.TrimPrefix(r.pattern, "/")
		}
		m.rules = append(m.rules, r)
	}
	return m
}

// match reports whether relPath (slash-separated, relative to the
// directory the matcher was parsed for) is ignored. Rules are applied
// in file order, so a later negation can override an earlier match, the
// same precedence git itself uses.
func (m *gitignoreMatcher) match(relPath string, isDir bool) bool {
	ignored := false
	base := path.Base(relPath)
	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		var hit bool
		if r.anchored {
			hit, _ = path.Match(r.pattern, relPath)
		} else {
			hit, _ = path.Match(r.pattern, base)
			if !hit {
				hit, _ = path.Match(r.pattern, relPath)
			}
		}
		if hit {
			ignored = !r.negation
		}
	}
	return ignored
}

// gitignoreCache resolves the matcher for a directory, parsing and
// caching its .gitignore file on first use. A directory with no
// .gitignore caches a nil matcher so repeated lookups stay O(1).
type gitignoreCache struct {
	cache *lru.Cache[string, *gitignoreMatcher]
}

func newGitignoreCache() (*gitignoreCache, error) {
	c, err := lru.New[string, *gitignoreMatcher](gitignoreCacheSize)
	if err != nil {
		return nil, err
	}
	return &gitignoreCache{cache: c}, nil
}

// isIgnored reports whether absPath (a file or directory under root) is
// ignored by any .gitignore from absPath's own directory up to root. A
// negation in a nearer .gitignore does not un-ignore a path that an
// ancestor .gitignore ignores.
func (g *gitignoreCache) isIgnored(root, absPath string, isDir bool) bool {
	dir := filepath.Dir(absPath)
	for {
		if m := g.matcherFor(dir); m != nil {
			rel, err := filepath.Rel(dir, absPath)
			if err == nil && m.match(filepath.ToSlash(rel), isDir) {
				return true
			}
		}
		if dir == root {
			return false
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}
		dir = parent
	}
}

func (g *gitignoreCache) matcherFor(dir string) *gitignoreMatcher {
	if m, ok := g.cache.Get(dir); ok {
		return m
	}

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		g.cache.Add(dir, nil)
		return nil
	}

	m := parseGitignore(data)
	g.cache.Add(dir, m)
	return m
}
