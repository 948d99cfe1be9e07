package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, BM25BackendSQLiteFTS5, cfg.BM25.Backend)
	assert.Equal(t, VectorBackendBuiltin, cfg.Vector.Backend)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, BM25BackendSQLiteFTS5, cfg.BM25.Backend)
}

func TestLoad_ParsesYAMLAndMerges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.yaml")
	content := `
cache_path: /tmp/qmd-cache
bm25:
  backend: sqlite_fts5
vector:
  backend: qmd_builtin
  model: custom-model
collections:
  - name: docs
    path: /home/user/docs
    pattern: "**/*.md"
models:
  embed:
    local: "local-embedder"
    remote: "https://api.example.com/embed"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/qmd-cache", cfg.CachePath)
	assert.Equal(t, "custom-model", cfg.Vector.Model)
	require.Len(t, cfg.Collections, 1)
	assert.Equal(t, "docs", cfg.Collections[0].Name)
	assert.Equal(t, "local-embedder", cfg.Models.Embed.Local)
	assert.Equal(t, "https://api.example.com/embed", cfg.Models.Embed.Remote)
}

func TestValidate_RejectsDuplicateCollectionNames(t *testing.T) {
	cfg := Default()
	cfg.Collections = []CollectionConfig{
		{Name: "docs", Path: "/a"},
		{Name: "docs", Path: "/b"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestValidate_RejectsSlashInCollectionName(t *testing.T) {
	cfg := Default()
	cfg.Collections = []CollectionConfig{{Name: "a/b", Path: "/a"}}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidate_RejectsUnknownBackend(t *testing.T) {
	cfg := Default()
	cfg.BM25.Backend = "bogus"
	require.Error(t, cfg.Validate())
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "index.yaml")

	cfg := Default()
	cfg.Collections = []CollectionConfig{{Name: "notes", Path: "/x"}}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded.Collections, 1)
	assert.Equal(t, "notes", loaded.Collections[0].Name)
}

func TestCacheDirFor_And_DBPathFor(t *testing.T) {
	cfg := Default()
	cfg.CachePath = "/cache"
	assert.Equal(t, "/cache/docs", cfg.CacheDirFor("docs"))
	assert.Equal(t, "/cache/docs/index.db", cfg.DBPathFor("docs"))
}

func TestExpandPath_Tilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, home, expandPath("~"))
	assert.Equal(t, filepath.Join(home, "x"), expandPath("~/x"))
	assert.Equal(t, "/abs/path", expandPath("/abs/path"))
}
