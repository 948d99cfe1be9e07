// Package chunk splits document content into overlapping semantic windows
// so that each chunk's embedding captures focused content rather than a
// diluted average over an entire document.
package chunk

import "strings"

// Default sizing, in characters (~4 chars/token): target 3200 chars
// (~800 tokens), overlap 480 chars (~120 tokens).
const (
	DefaultSize    = 3200
	DefaultOverlap = 480

	// shortDocumentFactor: documents shorter than Size * shortDocumentFactor
	// are returned as a single chunk.
	shortDocumentFactor = 1.2

	// boundarySearchWindow is how far back from the target split point we
	// search for a paragraph/sentence/word boundary.
	boundarySearchWindow = 640
)

// Chunk is a single overlapping window of a document's content.
type Chunk struct {
	// Seq is the 0-based chunk index.
	Seq int
	// Pos is the character offset of the chunk's first character in the
	// original text.
	Pos int
	// Text is the chunk's content.
	Text string
}

// Split divides text into overlapping chunks of approximately size
// characters, with the given overlap between adjacent chunks. A document
// shorter than size*1.2 is returned as a single chunk at offset 0.
func Split(text string, size, overlap int) []Chunk {
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}

	if len(text) < int(float64(size)*shortDocumentFactor) {
		return []Chunk{{Seq: 0, Pos: 0, Text: text}}
	}

	var chunks []Chunk
	start := 0

	for start < len(text) {
		end := start + size
		if end >= len(text) {
			chunks = append(chunks, Chunk{Seq: len(chunks), Pos: start, Text: text[start:]})
			break
		}

		split := findSplitPoint(text, end, start)
		chunks = append(chunks, Chunk{Seq: len(chunks), Pos: start, Text: text[start:split]})

		next := split - overlap
		if next <= start {
			// Guarantee forward progress.
			next = split
		}
		start = next
	}

	return chunks
}

// findSplitPoint searches backward from target, within a fixed window and
// never before minPos, for the best available boundary: paragraph break,
// then sentence break, then word break. Falls back to a hard cut at target.
func findSplitPoint(text string, target, minPos int) int {
	searchStart := target - boundarySearchWindow
	if searchStart < minPos {
		searchStart = minPos
	}
	region := text[searchStart:target]

	if idx := strings.LastIndex(region, "\n\n"); idx >= 0 {
		if split := searchStart + idx + 2; split > minPos {
			return split
		}
	}
	if idx := strings.LastIndex(region, ". "); idx >= 0 {
		if split := searchStart + idx + 2; split > minPos {
			return split
		}
	}
	if idx := strings.LastIndex(region, ".\n"); idx >= 0 {
		if split := searchStart + idx + 2; split > minPos {
			return split
		}
	}
	if idx := strings.LastIndex(region, " "); idx >= 0 {
		if split := searchStart + idx + 1; split > minPos {
			return split
		}
	}

	return target
}
