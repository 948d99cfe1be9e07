package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uukuguy/qmd/internal/config"
)

func testConfig(t *testing.T, collections ...config.CollectionConfig) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.CachePath = t.TempDir()
	cfg.Vector.Dimension = 3
	cfg.Collections = collections
	return cfg
}

func writeFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestNew_OpensConfiguredCollections(t *testing.T) {
	root := t.TempDir()
	cfg := testConfig(t, config.CollectionConfig{Name: "docs", Path: root, Pattern: "**/*.md"})

	e, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer e.Close()

	cols := e.ListCollections()
	require.Len(t, cols, 1)
	assert.Equal(t, "docs", cols[0].Name)
}

func TestUpdateIndexAndBM25Search(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", "Rust is a systems programming language")
	cfg := testConfig(t, config.CollectionConfig{Name: "docs", Path: root, Pattern: "**/*.md"})

	e, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer e.Close()

	stats, err := e.UpdateIndex(context.Background(), "docs")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Upserted)

	hits, err := e.BM25Search(context.Background(), "docs", "Rust", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "qmd://docs/a.md", hits[0].VirtualPath)
}

func TestBM25Search_AllCollectionsFanOut(t *testing.T) {
	rootA, rootB := t.TempDir(), t.TempDir()
	// alpha's document mentions the query term once, diluted among
	// unrelated filler words; beta's repeats it densely in a short
	// document. BM25 scores beta's document as the stronger match (more
	// negative), even though "alpha" sorts first alphabetically, so the
	// merged order only matches if searchAll sorts ascending by score
	// instead of falling back to collection-name order.
	writeFile(t, rootA, "a.md", "Rust is mentioned here among many other unrelated filler words about gardening")
	writeFile(t, rootB, "b.md", "Rust Rust Rust")
	cfg := testConfig(t,
		config.CollectionConfig{Name: "alpha", Path: rootA, Pattern: "**/*.md"},
		config.CollectionConfig{Name: "beta", Path: rootB, Pattern: "**/*.md"},
	)

	e, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer e.Close()

	_, err = e.UpdateIndex(context.Background(), "alpha")
	require.NoError(t, err)
	_, err = e.UpdateIndex(context.Background(), "beta")
	require.NoError(t, err)

	hits, err := e.BM25Search(context.Background(), "", "Rust", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Less(t, hits[0].Score, hits[1].Score, "BM25 scores must be ascending (lower is better)")
	assert.Equal(t, "beta", hits[0].Collection)
	assert.Equal(t, "alpha", hits[1].Collection)
}

func TestRenameCollection(t *testing.T) {
	root := t.TempDir()
	cfg := testConfig(t, config.CollectionConfig{Name: "docs", Path: root, Pattern: "**/*.md"})

	e, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.RenameCollection("docs", "notes"))
	cols := e.ListCollections()
	require.Len(t, cols, 1)
	assert.Equal(t, "notes", cols[0].Name)

	_, err = e.handle("docs")
	assert.Error(t, err)
}

func TestRemoveCollection_DestroysDatabase(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", "Rust programming")
	cfg := testConfig(t, config.CollectionConfig{Name: "docs", Path: root, Pattern: "**/*.md"})

	e, err := New(context.Background(), cfg)
	require.NoError(t, err)

	_, err = e.UpdateIndex(context.Background(), "docs")
	require.NoError(t, err)

	cacheDir := cfg.CacheDirFor("docs")
	_, err = os.Stat(cacheDir)
	require.NoError(t, err)

	require.NoError(t, e.RemoveCollection("docs"))
	defer e.Close()

	_, err = os.Stat(cacheDir)
	assert.True(t, os.IsNotExist(err))

	_, err = e.handle("docs")
	assert.Error(t, err)
}

func TestNew_SecondProcessRejectedByCollectionLock(t *testing.T) {
	root := t.TempDir()
	cfg := testConfig(t, config.CollectionConfig{Name: "docs", Path: root, Pattern: "**/*.md"})

	e, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer e.Close()

	_, err = New(context.Background(), cfg)
	require.Error(t, err)
}

func TestNew_LoggingEnabledWritesRotatingFile(t *testing.T) {
	root := t.TempDir()
	logDir := t.TempDir()
	logPath := filepath.Join(logDir, "qmd.log")

	cfg := testConfig(t, config.CollectionConfig{Name: "docs", Path: root, Pattern: "**/*.md"})
	cfg.Logging = config.LoggingConfig{Enabled: true, FilePath: logPath, WriteToStderr: false}

	e, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer e.Close()

	_, err = e.UpdateIndex(context.Background(), "docs")
	require.NoError(t, err)

	_, statErr := os.Stat(logPath)
	assert.NoError(t, statErr)
}

func TestWatch_TriggersUpdateIndexOnFileCreate(t *testing.T) {
	root := t.TempDir()
	cfg := testConfig(t, config.CollectionConfig{Name: "docs", Path: root, Pattern: "**/*.md"})

	e, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer e.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	statsCh, err := e.Watch(ctx, "docs", 50*time.Millisecond)
	require.NoError(t, err)

	writeFile(t, root, "a.md", "Rust programming")

	select {
	case stats, ok := <-statsCh:
		require.True(t, ok)
		assert.Equal(t, 1, stats.Upserted)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watch-triggered update")
	}
}

func TestGetStats_ReportsActiveCount(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", "content")
	cfg := testConfig(t, config.CollectionConfig{Name: "docs", Path: root, Pattern: "**/*.md"})

	e, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer e.Close()

	_, err = e.UpdateIndex(context.Background(), "docs")
	require.NoError(t, err)

	stats, err := e.GetStats(context.Background(), "docs")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 0, stats.Embedded)
	assert.Equal(t, 1, stats.Unembedded)
}
