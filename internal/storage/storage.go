// Package storage implements the per-collection SQLite store: a
// content-addressed blob table, a document table synchronized to an FTS5
// inverted index via triggers, and vector embedding metadata. Each
// collection owns its own database file.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/uukuguy/qmd/internal/qerrors"
)

// Store is a single collection's SQLite-backed document store.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// Open opens (creating if necessary) the SQLite database at path,
// configures WAL journaling on a single connection, and ensures the schema is
// present. path may be ":memory:" for an ephemeral in-process store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, qerrors.Wrap(qerrors.KindStorageError, fmt.Errorf("creating db dir: %w", err))
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, qerrors.Wrap(qerrors.KindStorageError, fmt.Errorf("opening %s: %w", path, err))
	}

	// A single pooled connection avoids SQLITE_BUSY under WAL; every
	// statement, reads included, runs on that one connection in turn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, qerrors.Wrap(qerrors.KindStorageError, fmt.Errorf("setting pragma %q: %w", p, err))
		}
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS content (
	hash TEXT PRIMARY KEY,
	doc  TEXT NOT NULL,
	size INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS documents (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	collection  TEXT NOT NULL,
	path        TEXT NOT NULL,
	title       TEXT NOT NULL,
	hash        TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	modified_at TEXT NOT NULL,
	active      INTEGER NOT NULL DEFAULT 1,
	UNIQUE(collection, path)
);

CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(hash);

CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
	filepath, title, body,
	tokenize = 'porter unicode61',
	content = 'documents',
	content_rowid = 'id'
);

CREATE TRIGGER IF NOT EXISTS documents_ai AFTER INSERT ON documents BEGIN
	INSERT INTO documents_fts(rowid, filepath, title, body)
	VALUES (new.id, new.collection || '/' || new.path, new.title,
		(SELECT doc FROM content WHERE hash = new.hash));
END;

CREATE TRIGGER IF NOT EXISTS documents_ad AFTER DELETE ON documents BEGIN
	INSERT INTO documents_fts(documents_fts, rowid, filepath, title, body)
	VALUES ('delete', old.id, old.collection || '/' || old.path, old.title,
		(SELECT doc FROM content WHERE hash = old.hash));
END;

CREATE TRIGGER IF NOT EXISTS documents_au AFTER UPDATE ON documents BEGIN
	INSERT INTO documents_fts(documents_fts, rowid, filepath, title, body)
	VALUES ('delete', old.id, old.collection || '/' || old.path, old.title,
		(SELECT doc FROM content WHERE hash = old.hash));
	INSERT INTO documents_fts(rowid, filepath, title, body)
	VALUES (new.id, new.collection || '/' || new.path, new.title,
		(SELECT doc FROM content WHERE hash = new.hash));
END;

CREATE TABLE IF NOT EXISTS content_vectors (
	hash        TEXT NOT NULL,
	seq         INTEGER NOT NULL DEFAULT 0,
	pos         INTEGER NOT NULL DEFAULT 0,
	model       TEXT NOT NULL,
	embedded_at TEXT NOT NULL,
	PRIMARY KEY (hash, seq)
);

CREATE TABLE IF NOT EXISTS collection_meta (
	name        TEXT PRIMARY KEY,
	path        TEXT NOT NULL,
	pattern     TEXT,
	description TEXT
);
`

func (s *Store) initSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return qerrors.Wrap(qerrors.KindStorageError, fmt.Errorf("initializing schema: %w", err))
	}
	return nil
}

// Close closes the underlying database connection. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on error or panic.
func (s *Store) WithTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return qerrors.Wrap(qerrors.KindStorageError, err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	return fn(tx)
}
