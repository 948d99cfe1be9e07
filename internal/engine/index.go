package engine

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/uukuguy/qmd/internal/indexer"
)

func (e *Engine) indexerFor(h *collectionHandle) *indexer.Indexer {
	return &indexer.Indexer{
		Collection:       h.cfg.Name,
		RootPath:         h.cfg.Path,
		Pattern:          h.cfg.Pattern,
		Store:            h.store,
		Vectors:          h.vectors,
		Router:           e.router,
		Model:            e.cfg.Vector.Model,
		RespectGitignore: h.cfg.RespectGitignore,
	}
}

// UpdateIndex runs the scan/diff/upsert/tombstone state machine for one
// collection, serialized against other writers to the same collection
// via its handle's mutex (spec.md §5).
func (e *Engine) UpdateIndex(ctx context.Context, collection string) (indexer.Stats, error) {
	h, err := e.handle(collection)
	if err != nil {
		return indexer.Stats{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return e.indexerFor(h).UpdateIndex(ctx)
}

// EmbedCollection re-embeds documents in one collection whose vectors
// reference a stale model identifier.
func (e *Engine) EmbedCollection(ctx context.Context, collection string) (int, error) {
	h, err := e.handle(collection)
	if err != nil {
		return 0, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return e.indexerFor(h).EmbedCollection(ctx)
}

// EmbedAll runs EmbedCollection across every configured collection
// concurrently, returning the per-collection counts. Lock acquisition
// for each collection happens inside EmbedCollection, in whatever order
// the errgroup schedules goroutines; since each collection's lock is
// independent of every other's, this is safe without the cross-
// collection lexicographic ordering search-all needs.
func (e *Engine) EmbedAll(ctx context.Context) (map[string]int, error) {
	names := e.collectionNames()
	counts := make(map[string]int, len(names))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		g.Go(func() error {
			n, err := e.EmbedCollection(gctx, name)
			if err != nil {
				return err
			}
			mu.Lock()
			counts[name] = n
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return counts, err
	}
	return counts, nil
}

// Cleanup permanently removes tombstoned entries older than
// olderThanDays for one collection and sweeps orphans.
func (e *Engine) Cleanup(ctx context.Context, collection string, olderThanDays int) (int, error) {
	h, err := e.handle(collection)
	if err != nil {
		return 0, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return e.indexerFor(h).Cleanup(ctx, olderThanDays)
}
