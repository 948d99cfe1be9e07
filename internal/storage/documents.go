package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uukuguy/qmd/internal/qerrors"
)

// Document is one row of the documents table.
type Document struct {
	ID         int64
	Collection string
	Path       string
	Title      string
	Hash       string
	CreatedAt  time.Time
	ModifiedAt time.Time
	Active     bool
}

const timeLayout = time.RFC3339Nano

// UpsertDocument inserts a new document or updates an existing one
// matched by (collection, path). Returns the final row and whether its
// hash changed (the indexer uses this to decide whether to re-chunk and
// re-embed). Reactivates a previously tombstoned document at the same
// path.
func (s *Store) UpsertDocument(ctx context.Context, collection, path, title, hash string, now time.Time) (Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existingHash string
	var existingID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, hash FROM documents WHERE collection = ? AND path = ?`,
		collection, path).Scan(&existingID, &existingHash)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO documents (collection, path, title, hash, created_at, modified_at, active)
			VALUES (?, ?, ?, ?, ?, ?, 1)
		`, collection, path, title, hash, now.Format(timeLayout), now.Format(timeLayout))
		if err != nil {
			return Document{}, false, qerrors.Wrap(qerrors.KindStorageError, err)
		}
		id, _ := res.LastInsertId()
		return Document{
			ID: id, Collection: collection, Path: path, Title: title, Hash: hash,
			CreatedAt: now, ModifiedAt: now, Active: true,
		}, true, nil

	case err != nil:
		return Document{}, false, qerrors.Wrap(qerrors.KindStorageError, err)

	default:
		changed := existingHash != hash
		_, err := s.db.ExecContext(ctx, `
			UPDATE documents SET title = ?, hash = ?, modified_at = ?, active = 1
			WHERE id = ?
		`, title, hash, now.Format(timeLayout), existingID)
		if err != nil {
			return Document{}, false, qerrors.Wrap(qerrors.KindStorageError, err)
		}
		return Document{
			ID: existingID, Collection: collection, Path: path, Title: title, Hash: hash,
			ModifiedAt: now, Active: true,
		}, changed, nil
	}
}

// GetDocumentByPath looks up a document by its (collection, path) key.
func (s *Store) GetDocumentByPath(ctx context.Context, collection, path string) (Document, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanOneDocument(ctx,
		`SELECT id, collection, path, title, hash, created_at, modified_at, active
		 FROM documents WHERE collection = ? AND path = ?`,
		collection, path)
}

func (s *Store) scanOneDocument(ctx context.Context, query string, args ...any) (Document, bool, error) {
	row := s.db.QueryRowContext(ctx, query, args...)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, qerrors.Wrap(qerrors.KindStorageError, err)
	}
	return doc, true, nil
}

func scanDocument(row *sql.Row) (Document, error) {
	var d Document
	var created, modified string
	var active int
	if err := row.Scan(&d.ID, &d.Collection, &d.Path, &d.Title, &d.Hash, &created, &modified, &active); err != nil {
		return Document{}, err
	}
	d.CreatedAt, _ = time.Parse(timeLayout, created)
	d.ModifiedAt, _ = time.Parse(timeLayout, modified)
	d.Active = active != 0
	return d, nil
}

func scanDocumentRows(rows *sql.Rows) (Document, error) {
	var d Document
	var created, modified string
	var active int
	if err := rows.Scan(&d.ID, &d.Collection, &d.Path, &d.Title, &d.Hash, &created, &modified, &active); err != nil {
		return Document{}, err
	}
	d.CreatedAt, _ = time.Parse(timeLayout, created)
	d.ModifiedAt, _ = time.Parse(timeLayout, modified)
	d.Active = active != 0
	return d, nil
}

// MarkInactive tombstones a document (it stops appearing in search and
// get_stats().active) without deleting its history. now is recorded as
// modified_at so FindStaleEntries measures age since tombstoning, not
// age since the document's last content change.
func (s *Store) MarkInactive(ctx context.Context, collection, path string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`UPDATE documents SET active = 0, modified_at = ? WHERE collection = ? AND path = ?`,
		now.Format(timeLayout), collection, path)
	if err != nil {
		return qerrors.Wrap(qerrors.KindStorageError, err)
	}
	return nil
}

// ListActivePaths returns the paths of every active document in a
// collection, used by the scanner to diff against the filesystem.
func (s *Store) ListActivePaths(ctx context.Context, collection string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT path FROM documents WHERE collection = ? AND active = 1`, collection)
	if err != nil {
		return nil, qerrors.Wrap(qerrors.KindStorageError, err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, qerrors.Wrap(qerrors.KindStorageError, err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Stats summarizes a collection's document counts.
type Stats struct {
	Active   int
	Inactive int
}

// GetStats reports active/inactive document counts for a collection.
func (s *Store) GetStats(ctx context.Context, collection string) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FILTER (WHERE active = 1), COUNT(*) FILTER (WHERE active = 0)
		 FROM documents WHERE collection = ?`, collection).
		Scan(&stats.Active, &stats.Inactive)
	if err != nil {
		return Stats{}, qerrors.Wrap(qerrors.KindStorageError, err)
	}
	return stats, nil
}

// FindStaleEntries returns tombstoned documents last modified before
// cutoff, candidates for hard deletion.
func (s *Store) FindStaleEntries(ctx context.Context, collection string, cutoff time.Time) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, collection, path, title, hash, created_at, modified_at, active
		FROM documents
		WHERE collection = ? AND active = 0 AND modified_at < ?
	`, collection, cutoff.Format(timeLayout))
	if err != nil {
		return nil, qerrors.Wrap(qerrors.KindStorageError, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var created, modified string
		var active int
		if err := rows.Scan(&d.ID, &d.Collection, &d.Path, &d.Title, &d.Hash, &created, &modified, &active); err != nil {
			return nil, qerrors.Wrap(qerrors.KindStorageError, err)
		}
		d.CreatedAt, _ = time.Parse(timeLayout, created)
		d.ModifiedAt, _ = time.Parse(timeLayout, modified)
		d.Active = active != 0
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// RemoveStaleEntries hard-deletes the given document rows (FTS rows are
// removed by the documents_ad trigger).
func (s *Store) RemoveStaleEntries(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `DELETE FROM documents WHERE id = ?`)
		if err != nil {
			return fmt.Errorf("preparing delete: %w", err)
		}
		defer stmt.Close()
		for _, id := range ids {
			if _, err := stmt.ExecContext(ctx, id); err != nil {
				return fmt.Errorf("deleting document %d: %w", id, err)
			}
		}
		return nil
	})
}
