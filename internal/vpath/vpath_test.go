package vpath

import (
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_FullPath(t *testing.T) {
	p, ok := Parse("qmd://collection/path/to/file.md")
	require.True(t, ok)
	assert.Equal(t, "collection", p.Collection)
	assert.Equal(t, "path/to/file.md", p.Path)
}

func TestParse_CollectionRootWithTrailingSlash(t *testing.T) {
	p, ok := Parse("qmd://collection/")
	require.True(t, ok)
	assert.Equal(t, "collection", p.Collection)
	assert.Equal(t, "", p.Path)
}

func TestParse_CollectionRootWithoutTrailingSlash(t *testing.T) {
	p, ok := Parse("qmd://collection")
	require.True(t, ok)
	assert.Equal(t, "collection", p.Collection)
	assert.Equal(t, "", p.Path)
}

func TestParse_ExtraSlashesCollapse(t *testing.T) {
	p, ok := Parse("qmd:////my-col/sub/doc.md")
	require.True(t, ok)
	assert.Equal(t, "my-col", p.Collection)
	assert.Equal(t, "sub/doc.md", p.Path)
}

func TestParse_ImpliedScheme(t *testing.T) {
	p, ok := Parse("//collection/path")
	require.True(t, ok)
	assert.Equal(t, "collection", p.Collection)
	assert.Equal(t, "path", p.Path)
}

func TestParse_BareCollectionRoot(t *testing.T) {
	p, ok := Parse("docs")
	require.True(t, ok)
	assert.Equal(t, "docs", p.Collection)
	assert.Equal(t, "", p.Path)

	p, ok = Parse("docs/")
	require.True(t, ok)
	assert.Equal(t, "docs", p.Collection)
	assert.Equal(t, "", p.Path)
}

func TestParse_BareMultiSegmentIsNotRecognized(t *testing.T) {
	_, ok := Parse("collection/path")
	assert.False(t, ok)
}

func TestBuild(t *testing.T) {
	assert.Equal(t, "qmd://collection/path/to/file.md", Build("collection", "path/to/file.md"))
	assert.Equal(t, "qmd://collection/", Build("collection", ""))
}

func TestIsVirtual(t *testing.T) {
	assert.True(t, IsVirtual("qmd://collection/path"))
	assert.True(t, IsVirtual("qmd://collection/"))
	assert.True(t, IsVirtual("//collection/path"))
	assert.True(t, IsVirtual("qmd:///collection/path"))

	assert.False(t, IsVirtual("collection/path"))
	assert.False(t, IsVirtual("/absolute/path"))
	assert.False(t, IsVirtual("file.md"))
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"qmd:////collection/path",
		"//collection/path",
		"collection/path",
		"qmd://collection/",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		assert.Equal(t, once, twice, "Normalize should be idempotent for %q", in)
	}
}

// S6 from spec.md.
func TestParse_S6Scenario(t *testing.T) {
	p, ok := Parse("qmd:////my-col/sub/doc.md")
	require.True(t, ok)
	assert.Equal(t, "my-col", p.Collection)
	assert.Equal(t, "sub/doc.md", p.Path)
	assert.Equal(t, "qmd://my-col/sub/doc.md", Build("my-col", "sub/doc.md"))
}

// Property 1: round trip for any (collection, path) with collection
// non-empty and containing no slash.
func TestRoundTrip_Property(t *testing.T) {
	f := func(collection, path string) bool {
		if collection == "" || containsSlash(collection) {
			return true // not applicable, skip
		}
		built := Build(collection, path)
		parsed, ok := Parse(built)
		return ok && parsed.Collection == collection && parsed.Path == path
	}

	cfg := &quick.Config{MaxCount: 200}
	require.NoError(t, quick.Check(f, cfg))
}

func containsSlash(s string) bool {
	for _, r := range s {
		if r == '/' {
			return true
		}
	}
	return false
}
