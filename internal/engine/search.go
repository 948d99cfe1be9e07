package engine

import (
	"context"
	"sort"

	"github.com/uukuguy/qmd/internal/retriever"
)

// lane is which retriever method a search call runs.
type lane int

const (
	laneBM25 lane = iota
	laneVector
	laneHybrid
)

func (e *Engine) retrieverFor(h *collectionHandle) *retriever.Retriever {
	return &retriever.Retriever{
		Collection: h.cfg.Name,
		Store:      h.store,
		Vectors:    h.vectors,
		Router:     e.router,
	}
}

// BM25Search runs a lexical query against one named collection, or
// every collection if collection is empty (spec.md §4.8: "one, named,
// or all").
func (e *Engine) BM25Search(ctx context.Context, collection, query string, limit int) ([]retriever.Hit, error) {
	return e.search(ctx, collection, query, limit, laneBM25)
}

// VectorSearch runs a dense k-NN query against one named collection, or
// every collection if collection is empty.
func (e *Engine) VectorSearch(ctx context.Context, collection, query string, limit int) ([]retriever.Hit, error) {
	return e.search(ctx, collection, query, limit, laneVector)
}

// HybridSearch runs expand+BM25+vector+RRF fusion against one named
// collection, or every collection if collection is empty.
func (e *Engine) HybridSearch(ctx context.Context, collection, query string, limit int) ([]retriever.Hit, error) {
	return e.search(ctx, collection, query, limit, laneHybrid)
}

func (e *Engine) search(ctx context.Context, collection, query string, limit int, l lane) ([]retriever.Hit, error) {
	if collection != "" {
		h, err := e.handle(collection)
		if err != nil {
			return nil, err
		}
		return e.runLane(ctx, h, query, limit, l)
	}
	return e.searchAll(ctx, query, limit, l)
}

// searchAll fans out across every collection in lexicographic order
// (spec.md §5's stable lock-acquisition order) and merges results, then
// collection, then path ascending (DESIGN.md's open-question decision
// for search-all ordering). Score direction depends on the lane: BM25
// and vector scores are ascending (lower is better, per Hit.Score and
// spec.md §4.8's "ordered ascending by BM25 raw score"), hybrid scores
// are descending (higher is better).
func (e *Engine) searchAll(ctx context.Context, query string, limit int, l lane) ([]retriever.Hit, error) {
	var all []retriever.Hit
	for _, name := range e.collectionNames() {
		h, err := e.handle(name)
		if err != nil {
			continue
		}
		hits, err := e.runLane(ctx, h, query, limit, l)
		if err != nil {
			continue
		}
		all = append(all, hits...)
	}

	higherIsBetter := l == laneHybrid
	sort.Slice(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			if higherIsBetter {
				return all[i].Score > all[j].Score
			}
			return all[i].Score < all[j].Score
		}
		if all[i].Collection != all[j].Collection {
			return all[i].Collection < all[j].Collection
		}
		return all[i].Path < all[j].Path
	})

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (e *Engine) runLane(ctx context.Context, h *collectionHandle, query string, limit int, l lane) ([]retriever.Hit, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := e.retrieverFor(h)
	switch l {
	case laneBM25:
		return r.BM25Search(ctx, query, limit)
	case laneVector:
		return r.VectorSearch(ctx, query, limit)
	default:
		return r.HybridSearch(ctx, query, limit)
	}
}
