package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uukuguy/qmd/internal/qerrors"
)

// CollectionMeta mirrors the config.CollectionConfig that last initialized
// this database, so a collection can be inspected from its db file alone.
type CollectionMeta struct {
	Name        string
	Path        string
	Pattern     string
	Description string
}

// PutCollectionMeta records the collection configuration this store was
// opened with.
func (s *Store) PutCollectionMeta(ctx context.Context, m CollectionMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collection_meta (name, path, pattern, description)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			path = excluded.path, pattern = excluded.pattern, description = excluded.description
	`, m.Name, m.Path, m.Pattern, m.Description)
	if err != nil {
		return qerrors.Wrap(qerrors.KindStorageError, err)
	}
	return nil
}

// GetCollectionMeta returns the recorded collection configuration, if any.
func (s *Store) GetCollectionMeta(ctx context.Context, name string) (CollectionMeta, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var m CollectionMeta
	var pattern, description sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT name, path, pattern, description FROM collection_meta WHERE name = ?`, name).
		Scan(&m.Name, &m.Path, &pattern, &description)
	if errors.Is(err, sql.ErrNoRows) {
		return CollectionMeta{}, false, nil
	}
	if err != nil {
		return CollectionMeta{}, false, qerrors.Wrap(qerrors.KindStorageError, err)
	}
	m.Pattern = pattern.String
	m.Description = description.String
	return m, true, nil
}
