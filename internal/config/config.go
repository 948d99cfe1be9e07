// Package config loads and validates the qmd index configuration, a YAML
// file at ~/.config/qmd/index.yaml describing collections, storage
// backends, and model providers.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/uukuguy/qmd/internal/qerrors"
)

// BM25Backend selects the lexical index implementation.
type BM25Backend string

const (
	BM25BackendSQLiteFTS5 BM25Backend = "sqlite_fts5"
	BM25BackendLanceDB    BM25Backend = "lancedb"
)

// VectorBackend selects the dense vector index implementation.
type VectorBackend string

const (
	VectorBackendBuiltin VectorBackend = "qmd_builtin"
	VectorBackendLanceDB VectorBackend = "lancedb"
	VectorBackendQdrant  VectorBackend = "qdrant"
)

const (
	defaultConfigPath = "~/.config/qmd/index.yaml"
	defaultCachePath  = "~/.cache/qmd"
	defaultVectorDim  = 768
)

// CollectionConfig is one named, on-disk document source.
type CollectionConfig struct {
	Name        string `yaml:"name"`
	Path        string `yaml:"path"`
	Pattern     string `yaml:"pattern,omitempty"`
	Description string `yaml:"description,omitempty"`
	// RespectGitignore skips files ignored by .gitignore files under
	// Path during a scan. Off by default.
	RespectGitignore bool `yaml:"respect_gitignore,omitempty"`
}

// ModelEndpoint names the local and/or remote provider for one
// model-router operation, each as an HTTP endpoint URL: Local is a model
// server on the same host, Remote a hosted one. No model is loaded
// in-process. At least one must be set for the operation to be usable.
type ModelEndpoint struct {
	Local  string `yaml:"local,omitempty"`
	Remote string `yaml:"remote,omitempty"`
}

// ModelsConfig configures the three model-router operations.
type ModelsConfig struct {
	Embed          ModelEndpoint `yaml:"embed,omitempty"`
	Rerank         ModelEndpoint `yaml:"rerank,omitempty"`
	QueryExpansion ModelEndpoint `yaml:"query_expansion,omitempty"`
}

// BM25Config configures the lexical backend.
type BM25Config struct {
	Backend BM25Backend `yaml:"backend"`
}

// LoggingConfig configures the engine's structured logging. Disabled
// (falling back to slog's own default handler) unless Enabled is set,
// so embedding a host program's own logging setup is never clobbered
// without an explicit opt-in.
type LoggingConfig struct {
	Enabled       bool   `yaml:"enabled,omitempty"`
	Level         string `yaml:"level,omitempty"`
	FilePath      string `yaml:"file_path,omitempty"`
	MaxSizeMB     int    `yaml:"max_size_mb,omitempty"`
	MaxFiles      int    `yaml:"max_files,omitempty"`
	WriteToStderr bool   `yaml:"write_to_stderr,omitempty"`
}

// VectorConfig configures the dense vector backend.
type VectorConfig struct {
	Backend VectorBackend `yaml:"backend"`
	Model   string        `yaml:"model"`
	// Dimension is the embedding vector width. It is fixed once the first
	// collection is embedded; changing it requires a full re-embed.
	Dimension int `yaml:"dimension,omitempty"`
	// Endpoint is the connection string for a remote vector backend
	// (e.g. a Qdrant gRPC address). Unused by the builtin backend.
	Endpoint string `yaml:"endpoint,omitempty"`
}

// Config is the complete qmd index configuration.
type Config struct {
	CachePath   string             `yaml:"cache_path"`
	BM25        BM25Config         `yaml:"bm25"`
	Vector      VectorConfig       `yaml:"vector"`
	Collections []CollectionConfig `yaml:"collections"`
	Models      ModelsConfig       `yaml:"models"`
	Logging     LoggingConfig      `yaml:"logging,omitempty"`
}

// Default returns a Config populated with the system defaults.
func Default() *Config {
	return &Config{
		CachePath: defaultCachePath,
		BM25: BM25Config{
			Backend: BM25BackendSQLiteFTS5,
		},
		Vector: VectorConfig{
			Backend:   VectorBackendBuiltin,
			Model:     "embeddinggemma-300M",
			Dimension: defaultVectorDim,
		},
		Collections: nil,
		Models:      ModelsConfig{},
	}
}

// DefaultConfigPath returns the default configuration file path,
// ~/.config/qmd/index.yaml, with ~ expanded.
func DefaultConfigPath() string {
	return expandPath(defaultConfigPath)
}

// Load reads the configuration from path, or from the default path if
// path is empty. A missing file is not an error: Load returns the
// defaults. The returned configuration is validated before return.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	} else {
		path = expandPath(path)
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, qerrors.Wrap(qerrors.KindStorageError, fmt.Errorf("reading config %s: %w", path, err))
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, qerrors.New(qerrors.KindInvalidInput, fmt.Sprintf("parsing config %s", path), err)
	}

	cfg.mergeWith(&parsed)
	cfg.CachePath = expandPath(cfg.CachePath)
	for i := range cfg.Collections {
		cfg.Collections[i].Path = expandPath(cfg.Collections[i].Path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, creating parent directories as
// needed. If path is empty the default configuration path is used.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultConfigPath()
	} else {
		path = expandPath(path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return qerrors.Wrap(qerrors.KindStorageError, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return qerrors.Wrap(qerrors.KindStorageError, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return qerrors.Wrap(qerrors.KindStorageError, err)
	}
	return nil
}

// mergeWith overlays non-zero fields from other onto c.
func (c *Config) mergeWith(other *Config) {
	if other.CachePath != "" {
		c.CachePath = other.CachePath
	}
	if other.BM25.Backend != "" {
		c.BM25.Backend = other.BM25.Backend
	}
	if other.Vector.Backend != "" {
		c.Vector.Backend = other.Vector.Backend
	}
	if other.Vector.Model != "" {
		c.Vector.Model = other.Vector.Model
	}
	if other.Vector.Dimension != 0 {
		c.Vector.Dimension = other.Vector.Dimension
	}
	if other.Vector.Endpoint != "" {
		c.Vector.Endpoint = other.Vector.Endpoint
	}
	if len(other.Collections) > 0 {
		c.Collections = other.Collections
	}
	if other.Models.Embed.Local != "" || other.Models.Embed.Remote != "" {
		c.Models.Embed = other.Models.Embed
	}
	if other.Models.Rerank.Local != "" || other.Models.Rerank.Remote != "" {
		c.Models.Rerank = other.Models.Rerank
	}
	if other.Models.QueryExpansion.Local != "" || other.Models.QueryExpansion.Remote != "" {
		c.Models.QueryExpansion = other.Models.QueryExpansion
	}
	if other.Logging.Enabled {
		c.Logging = other.Logging
	}
}

// Validate checks collection name uniqueness and backend enum values.
func (c *Config) Validate() error {
	switch c.BM25.Backend {
	case BM25BackendSQLiteFTS5, BM25BackendLanceDB:
	default:
		return qerrors.New(qerrors.KindInvalidInput, fmt.Sprintf("bm25.backend: unknown backend %q", c.BM25.Backend), nil)
	}

	switch c.Vector.Backend {
	case VectorBackendBuiltin, VectorBackendLanceDB, VectorBackendQdrant:
	default:
		return qerrors.New(qerrors.KindInvalidInput, fmt.Sprintf("vector.backend: unknown backend %q", c.Vector.Backend), nil)
	}

	seen := make(map[string]bool, len(c.Collections))
	for _, col := range c.Collections {
		if col.Name == "" {
			return qerrors.New(qerrors.KindInvalidInput, "collection name must not be empty", nil)
		}
		if strings.Contains(col.Name, "/") {
			return qerrors.New(qerrors.KindInvalidInput, fmt.Sprintf("collection name %q must not contain '/'", col.Name), nil)
		}
		if seen[col.Name] {
			return qerrors.New(qerrors.KindInvalidInput, fmt.Sprintf("duplicate collection name %q", col.Name), nil)
		}
		seen[col.Name] = true
	}

	return nil
}

// CacheDirFor returns the on-disk cache directory for a collection.
func (c *Config) CacheDirFor(collection string) string {
	return filepath.Join(c.CachePath, collection)
}

// DBPathFor returns the SQLite database path for a collection.
func (c *Config) DBPathFor(collection string) string {
	return filepath.Join(c.CacheDirFor(collection), "index.db")
}

// Collection looks up a collection by name.
func (c *Config) Collection(name string) (CollectionConfig, bool) {
	for _, col := range c.Collections {
		if col.Name == name {
			return col, true
		}
	}
	return CollectionConfig{}, false
}

// expandPath expands a leading ~ to the user's home directory. Paths
// without a leading ~ pass through unchanged.
func expandPath(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
