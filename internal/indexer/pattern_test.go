package indexer

import "testing"

func TestMatchPattern(t *testing.T) {
	cases := []struct {
		path, pattern string
		want          bool
	}{
		{"notes/a.md", "**/*.md", true},
		{"a.md", "**/*.md", true},
		{"a.txt", "**/*.md", false},
		{"archive/deep/file.md", "archive/**", true},
		{"other/file.md", "archive/**", false},
		{"a.md", "*.md", true},
		{"sub/a.md", "*.md", false},
		{"docs/bugs/BUG-001.md", "docs/bugs/BUG-*.md", true},
		{"docs/bugs/other.md", "docs/bugs/BUG-*.md", false},
	}
	for _, c := range cases {
		got := MatchPattern(c.path, c.pattern)
		if got != c.want {
			t.Errorf("MatchPattern(%q, %q) = %v, want %v", c.path, c.pattern, got, c.want)
		}
	}
}
