package engine

import (
	"context"
	"time"

	"github.com/uukuguy/qmd/internal/storage"
)

func cutoffFor(olderThanDays int) time.Time {
	return time.Now().AddDate(0, 0, -olderThanDays)
}

// CollectionStats reports per-collection document and embedding counts,
// per spec.md §4.9: "active vs pending, embedded vs unembedded".
type CollectionStats struct {
	Name       string
	Active     int
	Inactive   int
	Embedded   int
	Unembedded int
}

// GetStats reports statistics for one collection.
func (e *Engine) GetStats(ctx context.Context, collection string) (CollectionStats, error) {
	h, err := e.handle(collection)
	if err != nil {
		return CollectionStats{}, err
	}

	base, err := h.store.GetStats(ctx, collection)
	if err != nil {
		return CollectionStats{}, err
	}

	embedded, unembedded, err := countEmbedded(ctx, h.store, collection)
	if err != nil {
		return CollectionStats{}, err
	}

	return CollectionStats{
		Name:       collection,
		Active:     base.Active,
		Inactive:   base.Inactive,
		Embedded:   embedded,
		Unembedded: unembedded,
	}, nil
}

func countEmbedded(ctx context.Context, store *storage.Store, collection string) (embedded, unembedded int, err error) {
	paths, err := store.ListActivePaths(ctx, collection)
	if err != nil {
		return 0, 0, err
	}
	for _, p := range paths {
		doc, found, err := store.GetDocumentByPath(ctx, collection, p)
		if err != nil || !found {
			continue
		}
		metas, err := store.ListVectorMeta(ctx, doc.Hash)
		if err != nil {
			continue
		}
		if len(metas) > 0 {
			embedded++
		} else {
			unembedded++
		}
	}
	return embedded, unembedded, nil
}

// FindStaleEntries returns tombstoned documents past olderThanDays for
// one collection, candidates for hard deletion via RemoveStaleEntries.
func (e *Engine) FindStaleEntries(ctx context.Context, collection string, olderThanDays int) ([]storage.Document, error) {
	h, err := e.handle(collection)
	if err != nil {
		return nil, err
	}
	cutoff := cutoffFor(olderThanDays)
	return h.store.FindStaleEntries(ctx, collection, cutoff)
}

// RemoveStaleEntries hard-deletes the given document ids from a
// collection.
func (e *Engine) RemoveStaleEntries(ctx context.Context, collection string, ids []int64) error {
	h, err := e.handle(collection)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.store.RemoveStaleEntries(ctx, ids)
}
