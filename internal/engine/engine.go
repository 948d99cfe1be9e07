// Package engine implements the façade described in spec.md §4.9 and §5:
// it holds the configuration, a per-collection connection pool, and the
// model router, and exposes collection CRUD, indexing, and statistics
// operations. Cross-collection searches acquire per-collection locks
// one at a time in a stable (lexicographic) order; EmbedAll runs
// collections concurrently, each under its own lock.
package engine

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gofrs/flock"

	"github.com/uukuguy/qmd/internal/config"
	"github.com/uukuguy/qmd/internal/modelrouter"
	"github.com/uukuguy/qmd/internal/qerrors"
	"github.com/uukuguy/qmd/internal/qlog"
	"github.com/uukuguy/qmd/internal/storage"
	"github.com/uukuguy/qmd/internal/vectorindex"
)

// collectionHandle bundles one collection's storage, vector index, and
// write-serialization lock. Shared references to a handle are scoped to
// a single operation rather than held across calls.
//
// lock is an advisory, on-disk file lock held for the handle's entire
// lifetime: it guards index.db against a second OS process opening the
// same collection concurrently. mu only serializes goroutines within
// this process.
//
// cacheDir is recorded once, at creation, rather than recomputed from
// cfg.Name on every use: RenameCollection only changes cfg.Name, so a
// renamed handle's files stay at the directory they were opened under
// instead of silently following the new name.
type collectionHandle struct {
	cfg      config.CollectionConfig
	cacheDir string
	store    *storage.Store
	vectors  vectorindex.Store
	lock     *flock.Flock
	mu       sync.Mutex
}

// Engine is the per-process façade over every configured collection.
type Engine struct {
	cfg        *config.Config
	router     *modelrouter.Router
	logCleanup func()

	mu      sync.RWMutex
	handles map[string]*collectionHandle
}

// New constructs an Engine from cfg, opening or creating the database
// for every configured collection and running schema initialization
// idempotently (spec.md §4.9). If cfg.Logging.Enabled, it also installs
// qlog's structured JSON handler as slog's package-level default; left
// off otherwise so embedding a host program's own logging setup is
// never overridden silently.
func New(ctx context.Context, cfg *config.Config) (*Engine, error) {
	e := &Engine{
		cfg:     cfg,
		router:  modelrouter.New(modelrouter.Config{Models: cfg.Models, Dimensions: cfg.Vector.Dimension}),
		handles: make(map[string]*collectionHandle),
	}

	if cfg.Logging.Enabled {
		logger, cleanup, err := qlog.Setup(qlogConfig(cfg.Logging))
		if err != nil {
			return nil, qerrors.Wrap(qerrors.KindStorageError, err)
		}
		slog.SetDefault(logger)
		e.logCleanup = cleanup
	}

	for _, col := range cfg.Collections {
		h, err := openHandle(ctx, cfg, col)
		if err != nil {
			e.Close()
			return nil, err
		}
		e.handles[col.Name] = h
	}
	return e, nil
}

func qlogConfig(c config.LoggingConfig) qlog.Config {
	cfg := qlog.DefaultConfig()
	if c.Level != "" {
		cfg.Level = c.Level
	}
	if c.FilePath != "" {
		cfg.FilePath = c.FilePath
	}
	if c.MaxSizeMB > 0 {
		cfg.MaxSizeMB = c.MaxSizeMB
	}
	if c.MaxFiles > 0 {
		cfg.MaxFiles = c.MaxFiles
	}
	cfg.WriteToStderr = c.WriteToStderr
	return cfg
}

func openHandle(ctx context.Context, cfg *config.Config, col config.CollectionConfig) (*collectionHandle, error) {
	cacheDir := cfg.CacheDirFor(col.Name)
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, qerrors.Wrap(qerrors.KindStorageError, err)
	}

	lockPath := filepath.Join(cacheDir, "index.lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, qerrors.Wrap(qerrors.KindStorageError, err)
	}
	if !locked {
		return nil, qerrors.New(qerrors.KindCollectionLocked,
			"collection "+col.Name+" is already open in another process", nil)
	}

	store, err := storage.Open(filepath.Join(cacheDir, "index.db"))
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	vectors, err := newVectorStore(ctx, cfg, col.Name, cacheDir)
	if err != nil {
		_ = store.Close()
		_ = lock.Unlock()
		return nil, err
	}

	return &collectionHandle{cfg: col, cacheDir: cacheDir, store: store, vectors: vectors, lock: lock}, nil
}

func newVectorStore(ctx context.Context, cfg *config.Config, collection, cacheDir string) (vectorindex.Store, error) {
	dims := cfg.Vector.Dimension
	if dims <= 0 {
		return nil, qerrors.New(qerrors.KindInvalidInput, "vector.dimension must be > 0", nil)
	}

	switch cfg.Vector.Backend {
	case config.VectorBackendBuiltin, "":
		vc := vectorindex.DefaultConfig(dims)
		store, err := vectorindex.NewHNSWStore(vc)
		if err != nil {
			return nil, err
		}
		savePath := filepath.Join(cacheDir, "vectors.gob")
		if err := store.Load(savePath); err != nil {
			// A missing save file is expected for a brand-new collection;
			// NewHNSWStore already returned a usable empty index.
			_ = err
		}
		return store, nil

	case config.VectorBackendQdrant:
		vc := vectorindex.Config{
			Dimensions: dims,
			Metric:     "cos",
			Endpoint:   cfg.Vector.Endpoint,
			Collection: collection,
		}
		return vectorindex.NewQdrantStore(ctx, vc)

	case config.VectorBackendLanceDB:
		return nil, qerrors.New(qerrors.KindInvalidInput,
			"vector.backend lancedb has no available Go driver; use qmd_builtin or qdrant", nil)

	default:
		return nil, qerrors.New(qerrors.KindInvalidInput, "unknown vector backend", nil)
	}
}

// handle returns the collection's handle, locked for reads via the
// Engine's RWMutex (short-lived: callers must not retain it beyond one
// operation, per spec.md §5).
func (e *Engine) handle(name string) (*collectionHandle, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	h, ok := e.handles[name]
	if !ok {
		return nil, qerrors.New(qerrors.KindCollectionNotFound, "collection not found: "+name, nil)
	}
	return h, nil
}

// collectionNames returns every configured collection name, sorted
// lexicographically — the stable lock-acquisition order spec.md §5
// requires for cross-collection operations.
func (e *Engine) collectionNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.handles))
	for name := range e.handles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases every collection's store, vector index, and the model
// router's provider connections.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var first error
	for _, h := range e.handles {
		if err := h.vectors.Save(filepath.Join(h.cacheDir, "vectors.gob")); err != nil && first == nil {
			first = err
		}
		if err := h.store.Close(); err != nil && first == nil {
			first = err
		}
		if err := h.vectors.Close(); err != nil && first == nil {
			first = err
		}
		if err := h.lock.Unlock(); err != nil && first == nil {
			first = err
		}
	}
	if err := e.router.Close(); err != nil && first == nil {
		first = err
	}
	if e.logCleanup != nil {
		e.logCleanup()
	}
	return first
}
