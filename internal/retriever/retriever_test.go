package retriever

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uukuguy/qmd/internal/config"
	"github.com/uukuguy/qmd/internal/modelrouter"
	"github.com/uukuguy/qmd/internal/storage"
	"github.com/uukuguy/qmd/internal/vectorindex"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedDocument(t *testing.T, s *storage.Store, collection, path, title, content string) {
	t.Helper()
	// Real hashes (sha256 hex) never contain a colon; mimic that here
	// since vector ids join a hash and chunk seq on ":".
	hash := "hash-" + strings.ReplaceAll(path, "/", "-")
	require.NoError(t, s.UpsertContent(context.Background(), hash, content))
	_, _, err := s.UpsertDocument(context.Background(), collection, path, title, hash, time.Now())
	require.NoError(t, err)
}

func TestBM25Search_ReturnsMatchingDocument(t *testing.T) {
	s := newTestStore(t)
	seedDocument(t, s, "docs", "rust.md", "Rust", "Rust is a systems programming language")
	seedDocument(t, s, "docs", "go.md", "Go", "Go is a statically typed compiled language")

	r := &Retriever{Collection: "docs", Store: s}
	hits, err := r.BM25Search(context.Background(), "Rust", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "qmd://docs/rust.md", hits[0].VirtualPath)
}

func TestVectorSearch_JoinsBackToDocument(t *testing.T) {
	s := newTestStore(t)
	seedDocument(t, s, "docs", "a.md", "A", "content a")

	vecs, err := vectorindex.NewHNSWStore(vectorindex.DefaultConfig(3))
	require.NoError(t, err)
	defer vecs.Close()
	require.NoError(t, vecs.Add(context.Background(), []string{"hash-a.md:0"}, [][]float32{{1, 0, 0}}))

	embedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{{1, 0, 0}}})
	}))
	defer embedSrv.Close()

	router := modelrouter.New(modelrouter.Config{
		Models:     config.ModelsConfig{Embed: config.ModelEndpoint{Local: embedSrv.URL}},
		Dimensions: 3,
	})
	defer router.Close()

	r := &Retriever{Collection: "docs", Store: s, Vectors: vecs, Router: router}
	hits, err := r.VectorSearch(context.Background(), "find content a", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "qmd://docs/a.md", hits[0].VirtualPath)
}

// Invariant 8 from spec.md: if the embedder is removed from
// configuration, hybrid_search returns a non-empty result set equal to
// the BM25 lane alone for a matching query.
func TestHybridSearch_DegradesToBM25WhenNoEmbedderConfigured(t *testing.T) {
	s := newTestStore(t)
	seedDocument(t, s, "docs", "rust.md", "Rust", "Rust is a systems programming language")

	r := &Retriever{Collection: "docs", Store: s}
	hits, err := r.HybridSearch(context.Background(), "Rust", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "qmd://docs/rust.md", hits[0].VirtualPath)
}

func TestHybridSearch_NoResultsFromEitherLane(t *testing.T) {
	s := newTestStore(t)
	r := &Retriever{Collection: "docs", Store: s}
	hits, err := r.HybridSearch(context.Background(), "nothing indexed", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
