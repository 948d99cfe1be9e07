package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/uukuguy/qmd/internal/qerrors"
)

// BM25Hit is one lexical search result, carrying the collection's raw
// FTS5 bm25() score (more negative is a better match).
type BM25Hit struct {
	DocumentID int64
	Path       string
	Title      string
	Score      float64
}

// BM25Search runs an FTS5 MATCH query against active documents only,
// ordered ascending by raw bm25() score (best match first). An empty or
// all-whitespace query returns no results rather than erroring.
func (s *Store) BM25Search(ctx context.Context, query string, limit int) ([]BM25Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.path, d.title, bm25(documents_fts) AS score
		FROM documents_fts
		JOIN documents d ON d.id = documents_fts.rowid
		WHERE documents_fts MATCH ? AND d.active = 1
		ORDER BY score ASC
		LIMIT ?
	`, query, limit)
	if err != nil {
		if strings.Contains(err.Error(), "fts5") || strings.Contains(err.Error(), "syntax error") {
			return nil, nil
		}
		return nil, qerrors.Wrap(qerrors.KindStorageError, fmt.Errorf("bm25 search: %w", err))
	}
	defer rows.Close()

	var hits []BM25Hit
	for rows.Next() {
		var h BM25Hit
		if err := rows.Scan(&h.DocumentID, &h.Path, &h.Title, &h.Score); err != nil {
			return nil, qerrors.Wrap(qerrors.KindStorageError, err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// GetDocumentByID looks up a document by its rowid. Vector search hits
// are joined back by content hash through GetDocumentByHash instead.
func (s *Store) GetDocumentByID(ctx context.Context, id int64) (Document, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanOneDocument(ctx, `
		SELECT id, collection, path, title, hash, created_at, modified_at, active
		FROM documents WHERE id = ?
	`, id)
}

// GetDocumentByHash returns the active document(s) referencing hash, used
// to join vector search hits back to their virtual path.
func (s *Store) GetDocumentByHash(ctx context.Context, hash string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, collection, path, title, hash, created_at, modified_at, active
		FROM documents WHERE hash = ? AND active = 1
	`, hash)
	if err != nil {
		return nil, qerrors.Wrap(qerrors.KindStorageError, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocumentRows(rows)
		if err != nil {
			return nil, qerrors.Wrap(qerrors.KindStorageError, err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
