package storage

import (
	"context"
	"time"

	"github.com/uukuguy/qmd/internal/qerrors"
)

// VectorMeta records which model embedded a (hash, seq) chunk and when,
// independent of the vector index backend storing the embedding itself.
type VectorMeta struct {
	Hash       string
	Seq        int
	Pos        int
	Model      string
	EmbeddedAt time.Time
}

// UpsertVectorMeta records embedding metadata for one chunk.
func (s *Store) UpsertVectorMeta(ctx context.Context, m VectorMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO content_vectors (hash, seq, pos, model, embedded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(hash, seq) DO UPDATE SET
			pos = excluded.pos, model = excluded.model, embedded_at = excluded.embedded_at
	`, m.Hash, m.Seq, m.Pos, m.Model, m.EmbeddedAt.Format(timeLayout))
	if err != nil {
		return qerrors.Wrap(qerrors.KindStorageError, err)
	}
	return nil
}

// ListVectorMeta returns every chunk embedded for a given content hash,
// ordered by sequence.
func (s *Store) ListVectorMeta(ctx context.Context, hash string) ([]VectorMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT hash, seq, pos, model, embedded_at FROM content_vectors
		WHERE hash = ? ORDER BY seq
	`, hash)
	if err != nil {
		return nil, qerrors.Wrap(qerrors.KindStorageError, err)
	}
	defer rows.Close()

	var metas []VectorMeta
	for rows.Next() {
		var m VectorMeta
		var embeddedAt string
		if err := rows.Scan(&m.Hash, &m.Seq, &m.Pos, &m.Model, &embeddedAt); err != nil {
			return nil, qerrors.Wrap(qerrors.KindStorageError, err)
		}
		m.EmbeddedAt, _ = time.Parse(timeLayout, embeddedAt)
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// DeleteVectorMeta removes all embedding metadata for hash, used by the
// indexer's orphan sweep once no active document references hash.
func (s *Store) DeleteVectorMeta(ctx context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM content_vectors WHERE hash = ?`, hash)
	if err != nil {
		return qerrors.Wrap(qerrors.KindStorageError, err)
	}
	return nil
}

// OrphanedVectorHashes returns content hashes that have vector metadata
// but no active document referencing them, candidates for eviction from
// the vector index.
func (s *Store) OrphanedVectorHashes(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT cv.hash FROM content_vectors cv
		WHERE cv.hash NOT IN (SELECT hash FROM documents WHERE active = 1)
	`)
	if err != nil {
		return nil, qerrors.Wrap(qerrors.KindStorageError, err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, qerrors.Wrap(qerrors.KindStorageError, err)
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}
