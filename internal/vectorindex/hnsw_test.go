package vectorindex

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHNSWStore_AddAndSearch(t *testing.T) {
	s, err := NewHNSWStore(DefaultConfig(3))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Add(ctx, []string{"a:0", "b:0"}, [][]float32{
		{1, 0, 0},
		{0, 1, 0},
	}))

	results, err := s.Search(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a:0", results[0].ID)
}

func TestHNSWStore_DimensionMismatch(t *testing.T) {
	s, err := NewHNSWStore(DefaultConfig(3))
	require.NoError(t, err)
	defer s.Close()

	err = s.Add(context.Background(), []string{"a:0"}, [][]float32{{1, 0}})
	var dimErr ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 3, dimErr.Expected)
	assert.Equal(t, 2, dimErr.Got)
}

func TestHNSWStore_LazyDelete(t *testing.T) {
	s, err := NewHNSWStore(DefaultConfig(2))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Add(ctx, []string{"a:0"}, [][]float32{{1, 1}}))
	assert.True(t, s.Contains("a:0"))
	assert.Equal(t, 1, s.Count())

	require.NoError(t, s.Delete(ctx, []string{"a:0"}))
	assert.False(t, s.Contains("a:0"))
	assert.Equal(t, 0, s.Count())

	stats := s.Stats()
	assert.Equal(t, 0, stats.Live)
	assert.Equal(t, 1, stats.Orphans)
}

func TestHNSWStore_SaveAndLoad(t *testing.T) {
	s, err := NewHNSWStore(DefaultConfig(2))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Add(ctx, []string{"a:0", "b:0"}, [][]float32{{1, 0}, {0, 1}}))

	path := filepath.Join(t.TempDir(), "vectors.hnsw")
	require.NoError(t, s.Save(path))
	require.NoError(t, s.Close())

	loaded, err := NewHNSWStore(DefaultConfig(2))
	require.NoError(t, err)
	defer loaded.Close()

	require.NoError(t, loaded.Load(path))
	assert.Equal(t, 2, loaded.Count())
	assert.True(t, loaded.Contains("a:0"))
}

func TestHNSWStore_EmptyGraphSearch(t *testing.T) {
	s, err := NewHNSWStore(DefaultConfig(2))
	require.NoError(t, err)
	defer s.Close()

	results, err := s.Search(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}
