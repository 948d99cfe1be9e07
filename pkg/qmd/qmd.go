// Package qmd is the single public import surface for the hybrid
// document search engine: a thin re-export of the engine façade, its
// configuration, error kinds, and the virtual path helpers. Everything
// a host (a CLI, an HTTP handler, an MCP tool) needs to embed the
// engine is reachable from this package.
package qmd

import (
	"context"

	"github.com/uukuguy/qmd/internal/config"
	"github.com/uukuguy/qmd/internal/engine"
	"github.com/uukuguy/qmd/internal/qerrors"
	"github.com/uukuguy/qmd/internal/retriever"
	"github.com/uukuguy/qmd/internal/storage"
	"github.com/uukuguy/qmd/internal/vpath"
)

// Engine is the per-process façade over every configured collection.
type Engine = engine.Engine

// Config is the complete qmd index configuration.
type Config = config.Config

// CollectionConfig is one named, on-disk document source.
type CollectionConfig = config.CollectionConfig

// Hit is one search result.
type Hit = retriever.Hit

// Stats reports per-collection document and embedding counts.
type Stats = engine.CollectionStats

// Document is one row of the documents table, used by FindStaleEntries.
type Document = storage.Document

// Error kinds, re-exported so callers can classify errors without
// importing internal/qerrors directly.
const (
	KindNotFound            = qerrors.KindNotFound
	KindInvalidInput        = qerrors.KindInvalidInput
	KindCollectionNotFound  = qerrors.KindCollectionNotFound
	KindCollectionExists    = qerrors.KindCollectionExists
	KindCollectionLocked    = qerrors.KindCollectionLocked
	KindIndexNotReady       = qerrors.KindIndexNotReady
	KindEmbeddingFailed     = qerrors.KindEmbeddingFailed
	KindStorageError        = qerrors.KindStorageError
	KindProviderUnavailable = qerrors.KindProviderUnavailable
	KindCancelled           = qerrors.KindCancelled
	KindTimedOut            = qerrors.KindTimedOut
	KindUnknown             = qerrors.KindUnknown
)

// ErrorKind reports the tagged Kind of err, or KindUnknown if err was
// not produced by this module.
func ErrorKind(err error) qerrors.Kind {
	return qerrors.KindOf(err)
}

// LoadConfig reads the configuration from path, or the default path
// (~/.config/qmd/index.yaml) if path is empty.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// New constructs an Engine from cfg, opening every configured
// collection's storage and vector index.
func New(ctx context.Context, cfg *Config) (*Engine, error) {
	return engine.New(ctx, cfg)
}

// NormalizePath normalizes a virtual path string to its canonical
// qmd://collection/path form.
func NormalizePath(s string) string { return vpath.Normalize(s) }

// BuildPath renders (collection, path) as its canonical virtual path.
func BuildPath(collection, path string) string { return vpath.Build(collection, path) }
