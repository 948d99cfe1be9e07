package vectorindex

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"

	"github.com/uukuguy/qmd/internal/qerrors"
)

// HNSWStore is the builtin, in-process vector index (vector.backend:
// qmd_builtin), a pure-Go HNSW graph with cosine or Euclidean distance.
// Deletion is lazy: removed ids are unmapped but their nodes stay in the
// graph (nothing rebuilds it to drop them), matching coder/hnsw's
// limitation around deleting the last remaining node.
type HNSWStore struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[uint64]
	cfg     Config
	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64
	closed  bool
}

type hnswMetadata struct {
	IDMap   map[string]uint64
	NextKey uint64
	Config  Config
}

// NewHNSWStore constructs a builtin HNSW vector index.
func NewHNSWStore(cfg Config) (*HNSWStore, error) {
	if cfg.Metric == "" {
		cfg.Metric = "cos"
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}

	graph := hnsw.NewGraph[uint64]()
	switch cfg.Metric {
	case "l2":
		graph.Distance = hnsw.EuclideanDistance
	default:
		graph.Distance = hnsw.CosineDistance
	}
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	return &HNSWStore{
		graph:  graph,
		cfg:    cfg,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}, nil
}

// Add inserts or replaces vectors by id.
func (s *HNSWStore) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(vectors) {
		return qerrors.New(qerrors.KindInvalidInput, fmt.Sprintf("ids/vectors length mismatch: %d vs %d", len(ids), len(vectors)), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return qerrors.New(qerrors.KindStorageError, "vector store is closed", nil)
	}

	for _, v := range vectors {
		if len(v) != s.cfg.Dimensions {
			return ErrDimensionMismatch{Expected: s.cfg.Dimensions, Got: len(v)}
		}
	}

	for i, id := range ids {
		if existingKey, exists := s.idMap[id]; exists {
			delete(s.keyMap, existingKey)
			delete(s.idMap, id)
		}

		key := s.nextKey
		s.nextKey++

		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		if s.cfg.Metric == "cos" {
			normalizeInPlace(vec)
		}

		s.graph.Add(hnsw.MakeNode(key, vec))
		s.idMap[id] = key
		s.keyMap[key] = id
	}
	return nil
}

// Search returns the k nearest vectors to query.
func (s *HNSWStore) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, qerrors.New(qerrors.KindStorageError, "vector store is closed", nil)
	}
	if len(query) != s.cfg.Dimensions {
		return nil, ErrDimensionMismatch{Expected: s.cfg.Dimensions, Got: len(query)}
	}
	if s.graph.Len() == 0 {
		return nil, nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	if s.cfg.Metric == "cos" {
		normalizeInPlace(q)
	}

	nodes := s.graph.Search(q, k)
	results := make([]Result, 0, len(nodes))
	for _, node := range nodes {
		id, ok := s.keyMap[node.Key]
		if !ok {
			continue // lazily deleted
		}
		dist := s.graph.Distance(q, node.Value)
		results = append(results, Result{
			ID:       id,
			Distance: dist,
			Score:    distanceToScore(dist, s.cfg.Metric),
		})
	}
	return results, nil
}

// Delete lazily removes ids from the index.
func (s *HNSWStore) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return qerrors.New(qerrors.KindStorageError, "vector store is closed", nil)
	}
	for _, id := range ids {
		if key, exists := s.idMap[id]; exists {
			delete(s.keyMap, key)
			delete(s.idMap, id)
		}
	}
	return nil
}

// Contains reports whether id is present.
func (s *HNSWStore) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.idMap[id]
	return ok
}

// Count returns the number of live (non-orphaned) vectors.
func (s *HNSWStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.idMap)
}

// OrphanStats reports the graph's live-vs-orphaned node split.
type OrphanStats struct {
	Live    int
	Total   int
	Orphans int
}

// Stats reports live/orphan node counts.
func (s *HNSWStore) Stats() OrphanStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	live := len(s.idMap)
	total := s.graph.Len()
	return OrphanStats{Live: live, Total: total, Orphans: total - live}
}

// Save persists the graph and id mappings to path (+".meta"), via a
// temp-file-then-rename so a crash mid-write can't corrupt the index.
func (s *HNSWStore) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return qerrors.New(qerrors.KindStorageError, "vector store is closed", nil)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return qerrors.Wrap(qerrors.KindStorageError, err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return qerrors.Wrap(qerrors.KindStorageError, err)
	}
	if err := s.graph.Export(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return qerrors.Wrap(qerrors.KindStorageError, fmt.Errorf("exporting graph: %w", err))
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return qerrors.Wrap(qerrors.KindStorageError, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return qerrors.Wrap(qerrors.KindStorageError, err)
	}

	return s.saveMetadata(path + ".meta")
}

func (s *HNSWStore) saveMetadata(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return qerrors.Wrap(qerrors.KindStorageError, err)
	}
	meta := hnswMetadata{IDMap: s.idMap, NextKey: s.nextKey, Config: s.cfg}
	if err := gob.NewEncoder(f).Encode(meta); err != nil {
		f.Close()
		os.Remove(tmp)
		return qerrors.Wrap(qerrors.KindStorageError, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return qerrors.Wrap(qerrors.KindStorageError, err)
	}
	return os.Rename(tmp, path)
}

// Load replaces the graph and id mappings with the contents of path.
func (s *HNSWStore) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return qerrors.New(qerrors.KindStorageError, "vector store is closed", nil)
	}

	if err := s.loadMetadata(path + ".meta"); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return qerrors.Wrap(qerrors.KindStorageError, err)
	}
	defer f.Close()

	if err := s.graph.Import(bufio.NewReader(f)); err != nil {
		return qerrors.Wrap(qerrors.KindStorageError, fmt.Errorf("importing graph: %w", err))
	}
	return nil
}

func (s *HNSWStore) loadMetadata(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return qerrors.Wrap(qerrors.KindStorageError, err)
	}
	defer f.Close()

	var meta hnswMetadata
	if err := gob.NewDecoder(f).Decode(&meta); err != nil {
		return qerrors.Wrap(qerrors.KindStorageError, err)
	}

	s.idMap = meta.IDMap
	s.nextKey = meta.NextKey
	s.cfg = meta.Config
	s.keyMap = make(map[uint64]string, len(s.idMap))
	for id, key := range s.idMap {
		s.keyMap[key] = id
	}
	return nil
}

// Close releases the graph. Idempotent.
func (s *HNSWStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.graph = nil
	return nil
}

var _ Store = (*HNSWStore)(nil)

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

func distanceToScore(distance float32, metric string) float32 {
	if metric == "l2" {
		return 1.0 / (1.0 + distance)
	}
	return 1.0 - distance/2.0
}
