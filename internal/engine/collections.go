package engine

import (
	"context"
	"os"
	"sort"

	"github.com/uukuguy/qmd/internal/config"
	"github.com/uukuguy/qmd/internal/qerrors"
)

// ListCollections returns the configured collections in lexicographic
// order.
func (e *Engine) ListCollections() []config.CollectionConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cols := make([]config.CollectionConfig, 0, len(e.handles))
	for _, name := range e.collectionNamesLocked() {
		cols = append(cols, e.handles[name].cfg)
	}
	return cols
}

func (e *Engine) collectionNamesLocked() []string {
	names := make([]string, 0, len(e.handles))
	for name := range e.handles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddCollection registers a new collection, opening its store and
// vector index. The collection must not already exist.
func (e *Engine) AddCollection(ctx context.Context, col config.CollectionConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.handles[col.Name]; exists {
		return qerrors.New(qerrors.KindCollectionExists, "collection already exists: "+col.Name, nil)
	}

	h, err := openHandle(ctx, e.cfg, col)
	if err != nil {
		return err
	}
	e.handles[col.Name] = h
	e.cfg.Collections = append(e.cfg.Collections, col)
	return nil
}

// RemoveCollection closes a collection's handle and destroys its
// on-disk database (spec.md §3: "destroys its database on removal").
func (e *Engine) RemoveCollection(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, ok := e.handles[name]
	if !ok {
		return qerrors.New(qerrors.KindCollectionNotFound, "collection not found: "+name, nil)
	}
	delete(e.handles, name)

	kept := e.cfg.Collections[:0]
	for _, c := range e.cfg.Collections {
		if c.Name != name {
			kept = append(kept, c)
		}
	}
	e.cfg.Collections = kept

	var first error
	if err := h.store.Close(); err != nil {
		first = err
	}
	if err := h.vectors.Close(); err != nil && first == nil {
		first = err
	}
	if err := h.lock.Unlock(); err != nil && first == nil {
		first = err
	}
	if err := os.RemoveAll(h.cacheDir); err != nil && first == nil {
		first = err
	}
	return first
}

// RenameCollection changes a collection's name only; no data is copied
// (spec.md §3: "renames atomically (name change only; no blob copy)").
// handle.cacheDir was recorded once in openHandle and is never
// recomputed from cfg.Name, so the store and vector index keep reading
// and writing the directory they were opened under after the rename.
func (e *Engine) RenameCollection(oldName, newName string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.handles[newName]; exists {
		return qerrors.New(qerrors.KindCollectionExists, "collection already exists: "+newName, nil)
	}
	h, ok := e.handles[oldName]
	if !ok {
		return qerrors.New(qerrors.KindCollectionNotFound, "collection not found: "+oldName, nil)
	}

	h.cfg.Name = newName
	delete(e.handles, oldName)
	e.handles[newName] = h

	for i := range e.cfg.Collections {
		if e.cfg.Collections[i].Name == oldName {
			e.cfg.Collections[i].Name = newName
		}
	}
	return nil
}
