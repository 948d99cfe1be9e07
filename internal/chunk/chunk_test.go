package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_EmptyDocument(t *testing.T) {
	chunks := Split("", DefaultSize, DefaultOverlap)
	assert.Empty(t, chunks)
}

func TestSplit_ShortDocument(t *testing.T) {
	text := "This is a short document that fits in one chunk."
	chunks := Split(text, DefaultSize, DefaultOverlap)

	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Seq)
	assert.Equal(t, 0, chunks[0].Pos)
	assert.Equal(t, text, chunks[0].Text)
}

func TestSplit_LongDocument(t *testing.T) {
	paragraph := "This is a test paragraph with enough words to fill space. "
	text := strings.Repeat(paragraph, 200) // ~11800 chars
	require.Greater(t, len(text), DefaultSize*2)

	chunks := Split(text, DefaultSize, DefaultOverlap)
	require.GreaterOrEqual(t, len(chunks), 3)

	for i, c := range chunks {
		assert.Equal(t, i, c.Seq)
	}
	assert.Equal(t, 0, chunks[0].Pos)
}

func TestSplit_Overlap(t *testing.T) {
	sentence := "The quick brown fox jumps over the lazy dog. "
	text := strings.Repeat(sentence, 200) // ~9000 chars

	chunks := Split(text, DefaultSize, DefaultOverlap)
	require.GreaterOrEqual(t, len(chunks), 2)

	for i := 0; i < len(chunks)-1; i++ {
		tail := chunks[i].Text
		head := chunks[i+1].Text
		tailWindow := tail[max(0, len(tail)-DefaultOverlap):]
		headWindow := head[:min(len(head), DefaultOverlap)]

		shared := false
		for n := min(len(tailWindow), len(headWindow)); n >= 1; n-- {
			if strings.Contains(tailWindow, headWindow[:n]) {
				shared = true
				break
			}
		}
		assert.True(t, shared, "chunk %d and %d should share overlapping text", i, i+1)
	}
}

func TestSplit_ParagraphBoundary(t *testing.T) {
	para1 := strings.Repeat("a", 2000)
	para2 := strings.Repeat("b", 2000)
	para3 := strings.Repeat("c", 2000)
	text := para1 + "\n\n" + para2 + "\n\n" + para3

	chunks := Split(text, DefaultSize, DefaultOverlap)
	require.GreaterOrEqual(t, len(chunks), 2)

	firstEnd := chunks[0].Pos + len(chunks[0].Text)
	assert.LessOrEqual(t, firstEnd, DefaultSize+100)
}

func TestSplit_PositionsMonotonicallyIncrease(t *testing.T) {
	sentence := "Hello world this is a test sentence for chunking. "
	text := strings.Repeat(sentence, 150)

	chunks := Split(text, DefaultSize, DefaultOverlap)
	require.GreaterOrEqual(t, len(chunks), 2)

	assert.Equal(t, 0, chunks[0].Pos)
	for i := 1; i < len(chunks); i++ {
		assert.Greater(t, chunks[i].Pos, chunks[i-1].Pos)
	}
}

// S3 from spec.md: a 9600-char document is covered end to end by its
// chunks, starting at offset 0.
func TestSplit_CoversEntireDocument(t *testing.T) {
	sentence := "Testing full coverage of document content here. "
	text := strings.Repeat(sentence, 200)

	chunks := Split(text, DefaultSize, DefaultOverlap)
	require.NotEmpty(t, chunks)

	last := chunks[len(chunks)-1]
	assert.Equal(t, len(text), last.Pos+len(last.Text))
	assert.Equal(t, 0, chunks[0].Pos)
}

func TestSplit_AlwaysMakesForwardProgress(t *testing.T) {
	// A document with no good boundaries anywhere, to exercise the hard-cut
	// and forward-progress guarantee.
	text := strings.Repeat("x", 50000)

	chunks := Split(text, DefaultSize, DefaultOverlap)
	require.NotEmpty(t, chunks)

	seen := map[int]bool{}
	for _, c := range chunks {
		assert.False(t, seen[c.Pos], "pos %d repeated, no forward progress", c.Pos)
		seen[c.Pos] = true
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
