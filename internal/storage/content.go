package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uukuguy/qmd/internal/qerrors"
)

// UpsertContent stores doc under hash if not already present. Content is
// addressed by hash, so a repeat insert of the same hash is a no-op.
func (s *Store) UpsertContent(ctx context.Context, hash, doc string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO content (hash, doc, size) VALUES (?, ?, ?)`,
		hash, doc, len(doc))
	if err != nil {
		return qerrors.Wrap(qerrors.KindStorageError, fmt.Errorf("upserting content %s: %w", hash, err))
	}
	return nil
}

// GetContent returns the stored content for hash.
func (s *Store) GetContent(ctx context.Context, hash string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM content WHERE hash = ?`, hash).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return "", qerrors.New(qerrors.KindNotFound, fmt.Sprintf("content %s not found", hash), nil)
	}
	if err != nil {
		return "", qerrors.Wrap(qerrors.KindStorageError, err)
	}
	return doc, nil
}

// HasContent reports whether hash is already stored. The indexer does
// not call it; it compares document hashes instead.
func (s *Store) HasContent(ctx context.Context, hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM content WHERE hash = ?`, hash).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, qerrors.Wrap(qerrors.KindStorageError, err)
	}
	return true, nil
}

// DeleteOrphanedContent removes content rows referenced by no document
// row and by no vector metadata row, run as a cleanup step after
// tombstone removal.
func (s *Store) DeleteOrphanedContent(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM content
		WHERE hash NOT IN (SELECT hash FROM documents)
		  AND hash NOT IN (SELECT hash FROM content_vectors)
	`)
	if err != nil {
		return 0, qerrors.Wrap(qerrors.KindStorageError, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
