// Package retriever implements BM25, vector, and hybrid search over a
// single collection: lexical scan via FTS5, dense k-NN via the vector
// index, reciprocal-rank fusion across ranked lists, and optional
// reranking of the fused top candidates.
package retriever

import (
	"github.com/uukuguy/qmd/internal/modelrouter"
	"github.com/uukuguy/qmd/internal/storage"
	"github.com/uukuguy/qmd/internal/vectorindex"
	"github.com/uukuguy/qmd/internal/vpath"
)

// Hit is one search result, identified by its virtual path.
type Hit struct {
	VirtualPath string
	Collection  string
	Path        string
	Title       string
	// Score's meaning depends on the lane: BM25's raw bm25() value
	// (lower is better), vector search's cosine distance (lower is
	// better), or a fused/reranked score (higher is better).
	Score float64
}

// Retriever runs lexical, vector, and hybrid search against one
// collection's store, vector index, and model router.
type Retriever struct {
	Collection string
	Store      *storage.Store
	Vectors    vectorindex.Store
	Router     *modelrouter.Router

	// RRFK overrides the RRF fusion constant (default 60).
	RRFK int
	// HybridCandidates bounds how many fused results are considered for
	// reranking before truncation to the caller's limit (default 30).
	HybridCandidates int
}

func (r *Retriever) rrfK() int {
	if r.RRFK > 0 {
		return r.RRFK
	}
	return defaultRRFK
}

func (r *Retriever) hybridCandidates() int {
	if r.HybridCandidates > 0 {
		return r.HybridCandidates
	}
	return defaultHybridCandidates
}

func (r *Retriever) hitFromDocument(doc storage.Document, score float64) Hit {
	return Hit{
		VirtualPath: vpath.Build(doc.Collection, doc.Path),
		Collection:  doc.Collection,
		Path:        doc.Path,
		Title:       doc.Title,
		Score:       score,
	}
}
