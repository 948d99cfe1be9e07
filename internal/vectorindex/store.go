// Package vectorindex provides the dense vector index abstraction used by
// the retrieval engine: add, k-NN search, and delete over fixed-dimension
// embeddings keyed by "hash:seq" chunk identifiers.
package vectorindex

import (
	"context"
	"fmt"
)

// Result is one k-NN search hit.
type Result struct {
	// ID is the "hash:seq" chunk key.
	ID string
	// Distance is the raw metric distance; lower is more similar.
	Distance float32
	// Score is a normalized similarity in [0, 1], higher is better.
	Score float32
}

// Config configures a vector index instance.
type Config struct {
	Dimensions int
	Metric     string // "cos" or "l2", default "cos"

	// HNSW tuning (builtin backend only).
	M              int
	EfConstruction int
	EfSearch       int

	// Endpoint and Collection address a remote backend (qdrant).
	Endpoint   string
	Collection string
}

// DefaultConfig returns sensible HNSW defaults for the builtin backend.
func DefaultConfig(dimensions int) Config {
	return Config{
		Dimensions:     dimensions,
		Metric:         "cos",
		M:              32,
		EfConstruction: 128,
		EfSearch:       64,
	}
}

// Store is the dense vector index contract. Implementations: HNSWStore
// (in-process, pure Go) and QdrantStore (remote gRPC service).
type Store interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]Result, error)
	Delete(ctx context.Context, ids []string) error
	Contains(id string) bool
	Count() int
	Save(path string) error
	Load(path string) error
	Close() error
}

// ErrDimensionMismatch reports that a vector's width doesn't match the
// index's configured dimension.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vector dimension mismatch: index expects %d, got %d", e.Expected, e.Got)
}
