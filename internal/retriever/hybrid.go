package retriever

import (
	"context"
	"log/slog"
	"sort"
)

// hybridLaneLimit bounds how many results each lane (per BM25 variant,
// and vector search) contributes to the fusion step, generous enough to
// give RRF a meaningful candidate pool ahead of the top-30 cut.
const hybridLaneLimit = 50

// HybridSearch expands the query, runs BM25 for each variant and vector
// search on the original query, fuses the ranked lists with RRF, and, if
// a reranker is configured, rescoring the fused top candidates before
// truncating to limit. Implements spec.md §4.8's five-step algorithm.
func (r *Retriever) HybridSearch(ctx context.Context, query string, limit int) ([]Hit, error) {
	variants := []string{query}
	if r.Router != nil {
		variants = r.Router.ExpandQuery(ctx, query)
	}

	byPath := make(map[string]Hit)
	var lists []rankedList

	for _, v := range variants {
		hits, err := r.BM25Search(ctx, v, hybridLaneLimit)
		if err != nil {
			slog.Warn("hybrid_bm25_lane_failed", slog.String("variant", v), slog.String("error", err.Error()))
			continue
		}
		lists = append(lists, toRankedList(hits, byPath))
	}

	vecHits, err := r.VectorSearch(ctx, query, hybridLaneLimit)
	if err != nil {
		slog.Warn("hybrid_vector_lane_failed", slog.String("error", err.Error()))
	} else if len(vecHits) > 0 {
		lists = append(lists, toRankedList(vecHits, byPath))
	}

	if len(lists) == 0 {
		return nil, nil
	}

	fusedResults := rrfFuse(lists, r.rrfK())
	if len(fusedResults) > r.hybridCandidates() {
		fusedResults = fusedResults[:r.hybridCandidates()]
	}

	candidates := make([]Hit, 0, len(fusedResults))
	for _, f := range fusedResults {
		hit, ok := byPath[f.id]
		if !ok {
			continue
		}
		hit.Score = f.score
		candidates = append(candidates, hit)
	}

	candidates = r.maybeRerank(ctx, query, candidates)

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func toRankedList(hits []Hit, byPath map[string]Hit) rankedList {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.VirtualPath
		if _, exists := byPath[h.VirtualPath]; !exists {
			byPath[h.VirtualPath] = h
		}
	}
	return rankedList{ids: ids, weight: 1}
}

// maybeRerank obtains reranker scores for candidates' content and
// re-sorts descending. A reranking failure is logged and the fused
// order is kept, per spec.md's failure policy.
func (r *Retriever) maybeRerank(ctx context.Context, query string, candidates []Hit) []Hit {
	if r.Router == nil || !r.Router.HasReranker() || len(candidates) == 0 {
		return candidates
	}

	docs := make([]string, len(candidates))
	for i, c := range candidates {
		text, err := r.documentText(ctx, c)
		if err != nil {
			text = c.Title
		}
		docs[i] = text
	}

	scores, _, err := r.Router.Rerank(ctx, query, docs)
	if err != nil || len(scores) != len(candidates) {
		slog.Warn("hybrid_rerank_failed", slog.String("error", errString(err)))
		return candidates
	}

	for i := range candidates {
		candidates[i].Score = scores[i]
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

func (r *Retriever) documentText(ctx context.Context, h Hit) (string, error) {
	doc, found, err := r.Store.GetDocumentByPath(ctx, h.Collection, h.Path)
	if err != nil || !found {
		return "", err
	}
	return r.Store.GetContent(ctx, doc.Hash)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
