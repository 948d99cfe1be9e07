package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitignoreMatcher_BasicPatterns(t *testing.T) {
	m := parseGitignore([]byte("*.log\n/build\nnode_modules/\n!keep.log\n"))

	assert.True(t, m.match("debug.log", false))
	assert.False(t, m.match("keep.log", false))
	assert.True(t, m.match("build", false))
	assert.False(t, m.match("src/build", false))
	assert.True(t, m.match("node_modules", true))
	assert.False(t, m.match("node_modules", false))
}

func TestScanWithOptions_RespectsGitignore(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("ignored.md\nvendor/\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.md"), []byte("keep"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "ignored.md"), []byte("skip"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vendor"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "vendor", "dep.md"), []byte("skip"), 0o644))

	results, err := ScanWithOptions(context.Background(), root, "**/*.md", ScanOptions{RespectGitignore: true})
	require.NoError(t, err)

	paths := make([]string, len(results))
	for i, r := range results {
		paths[i] = r.RelPath
	}
	assert.Equal(t, []string{"a.md"}, paths)
}

func TestScanWithOptions_GitignoreOffByDefault(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("ignored.md\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "ignored.md"), []byte("skip"), 0o644))

	results, err := Scan(context.Background(), root, "**/*.md")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
