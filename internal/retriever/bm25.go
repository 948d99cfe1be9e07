package retriever

import (
	"context"

	"github.com/uukuguy/qmd/internal/vpath"
)

// BM25Search runs a lexical query against the collection's FTS index,
// restricted to active documents, ordered ascending by raw BM25 score
// (best match first per spec.md §4.8), limited by limit.
func (r *Retriever) BM25Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	hits, err := r.Store.BM25Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	results := make([]Hit, 0, len(hits))
	for _, h := range hits {
		results = append(results, Hit{
			VirtualPath: vpath.Build(r.Collection, h.Path),
			Collection:  r.Collection,
			Path:        h.Path,
			Title:       h.Title,
			Score:       h.Score,
		})
	}
	return results, nil
}
