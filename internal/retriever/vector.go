package retriever

import (
	"context"
	"strings"

	"github.com/uukuguy/qmd/internal/qerrors"
)

// VectorSearch embeds query via the model router, runs a k-NN query
// against the collection's vector index, and joins each hit back to its
// document by content hash. Score is the raw distance (lower is
// better), per spec.md §4.8.
func (r *Retriever) VectorSearch(ctx context.Context, query string, limit int) ([]Hit, error) {
	if r.Router == nil || r.Vectors == nil {
		return nil, nil
	}

	vectors, _, err := r.Router.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, qerrors.New(qerrors.KindEmbeddingFailed, "query embedding returned no vector", nil)
	}

	raw, err := r.Vectors.Search(ctx, vectors[0], limit)
	if err != nil {
		return nil, err
	}

	var results []Hit
	seen := make(map[string]bool, len(raw))
	for _, hit := range raw {
		hash, _, ok := strings.Cut(hit.ID, ":")
		if !ok {
			hash = hit.ID
		}

		docs, err := r.Store.GetDocumentByHash(ctx, hash)
		if err != nil || len(docs) == 0 {
			continue
		}
		for _, doc := range docs {
			if seen[doc.Path] {
				continue
			}
			seen[doc.Path] = true
			results = append(results, r.hitFromDocument(doc, float64(hit.Distance)))
			if len(results) >= limit {
				return results, nil
			}
		}
	}
	return results, nil
}
