package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/uukuguy/qmd/internal/chunk"
	"github.com/uukuguy/qmd/internal/modelrouter"
	"github.com/uukuguy/qmd/internal/qerrors"
	"github.com/uukuguy/qmd/internal/storage"
	"github.com/uukuguy/qmd/internal/vectorindex"
)

// Indexer runs the scan/diff/upsert/tombstone/cleanup state machine for
// one collection, backed by its content store, FTS document index, and
// vector index.
type Indexer struct {
	Collection   string
	RootPath     string
	Pattern      string
	Store        *storage.Store
	Vectors      vectorindex.Store
	Router       *modelrouter.Router
	Model        string
	ChunkSize    int
	ChunkOverlap int
	// RespectGitignore makes scans skip anything the collection root's
	// .gitignore files ignore. Off by default.
	RespectGitignore bool
}

// Stats summarizes one UpdateIndex run.
type Stats struct {
	Scanned    int
	Unchanged  int
	Upserted   int
	Tombstoned int
	Skipped    int
}

func (ix *Indexer) chunkSize() int {
	if ix.ChunkSize > 0 {
		return ix.ChunkSize
	}
	return chunk.DefaultSize
}

func (ix *Indexer) chunkOverlap() int {
	if ix.ChunkOverlap > 0 {
		return ix.ChunkOverlap
	}
	return chunk.DefaultOverlap
}

// UpdateIndex scans RootPath for files matching Pattern, upserts
// content/document rows for new or changed files, (re-)chunks and embeds
// them, then tombstones any previously active document whose path did
// not appear in this scan. Per spec.md §4.7's failure policy, a per-file
// embed/hash failure is logged and skipped rather than aborting the scan.
func (ix *Indexer) UpdateIndex(ctx context.Context) (Stats, error) {
	var stats Stats

	results, err := ScanWithOptions(ctx, ix.RootPath, ix.Pattern, ScanOptions{RespectGitignore: ix.RespectGitignore})
	if err != nil {
		return stats, err
	}
	stats.Scanned = len(results)

	seen := make(map[string]bool, len(results))
	now := time.Now()

	for _, r := range results {
		select {
		case <-ctx.Done():
			return stats, qerrors.Wrap(qerrors.KindCancelled, ctx.Err())
		default:
		}

		seen[r.RelPath] = true

		content, err := os.ReadFile(r.AbsPath)
		if err != nil {
			slog.Warn("indexer_read_failed", slog.String("path", r.AbsPath), slog.String("error", err.Error()))
			stats.Skipped++
			continue
		}
		hash := hashContent(content)

		existing, found, err := ix.Store.GetDocumentByPath(ctx, ix.Collection, r.RelPath)
		if err != nil {
			slog.Warn("indexer_lookup_failed", slog.String("path", r.RelPath), slog.String("error", err.Error()))
			stats.Skipped++
			continue
		}
		if found && existing.Active && existing.Hash == hash {
			stats.Unchanged++
			continue
		}

		if err := ix.Store.UpsertContent(ctx, hash, string(content)); err != nil {
			slog.Warn("indexer_upsert_content_failed", slog.String("path", r.RelPath), slog.String("error", err.Error()))
			stats.Skipped++
			continue
		}

		title := filepath.Base(r.RelPath)
		if _, _, err := ix.Store.UpsertDocument(ctx, ix.Collection, r.RelPath, title, hash, now); err != nil {
			slog.Warn("indexer_upsert_document_failed", slog.String("path", r.RelPath), slog.String("error", err.Error()))
			stats.Skipped++
			continue
		}

		if err := ix.embedContent(ctx, hash, string(content)); err != nil {
			slog.Warn("indexer_embed_failed", slog.String("path", r.RelPath), slog.String("error", err.Error()))
		}

		stats.Upserted++
	}

	activePaths, err := ix.Store.ListActivePaths(ctx, ix.Collection)
	if err != nil {
		return stats, err
	}
	for _, p := range activePaths {
		if !seen[p] {
			if err := ix.Store.MarkInactive(ctx, ix.Collection, p, now); err != nil {
				slog.Warn("indexer_tombstone_failed", slog.String("path", p), slog.String("error", err.Error()))
				continue
			}
			stats.Tombstoned++
		}
	}

	return stats, nil
}

// embedContent chunks content, embeds each chunk via the model router,
// and upserts the resulting vectors and their metadata. Skipped entirely
// (not an error) when no router/vector store is wired, so storage-only
// configurations (bm25 search without vectors) remain usable.
func (ix *Indexer) embedContent(ctx context.Context, hash, content string) error {
	if ix.Router == nil || ix.Vectors == nil {
		return nil
	}

	chunks := chunk.Split(content, ix.chunkSize(), ix.chunkOverlap())
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, _, err := ix.Router.Embed(ctx, texts)
	if err != nil {
		return qerrors.Wrap(qerrors.KindEmbeddingFailed, err)
	}
	if len(vectors) != len(chunks) {
		return qerrors.New(qerrors.KindEmbeddingFailed, "embedding count mismatch", nil)
	}

	ids := make([]string, len(chunks))
	now := time.Now()
	for i, c := range chunks {
		id := vectorID(hash, c.Seq)
		ids[i] = id
		if err := ix.Store.UpsertVectorMeta(ctx, storage.VectorMeta{
			Hash: hash, Seq: c.Seq, Pos: c.Pos, Model: ix.Model, EmbeddedAt: now,
		}); err != nil {
			return qerrors.Wrap(qerrors.KindStorageError, err)
		}
	}

	if err := ix.Vectors.Add(ctx, ids, vectors); err != nil {
		return err
	}
	return nil
}

// EmbedCollection re-embeds every document whose content has no vectors
// under the current model, driving model-version migrations (spec §3:
// "a model change invalidates all embeddings that reference the prior
// model identifier").
func (ix *Indexer) EmbedCollection(ctx context.Context) (int, error) {
	paths, err := ix.Store.ListActivePaths(ctx, ix.Collection)
	if err != nil {
		return 0, err
	}

	embedded := 0
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return embedded, qerrors.Wrap(qerrors.KindCancelled, ctx.Err())
		default:
		}

		doc, found, err := ix.Store.GetDocumentByPath(ctx, ix.Collection, p)
		if err != nil || !found {
			continue
		}

		metas, err := ix.Store.ListVectorMeta(ctx, doc.Hash)
		if err != nil {
			continue
		}
		if len(metas) > 0 && metas[0].Model == ix.Model {
			continue
		}

		content, err := ix.Store.GetContent(ctx, doc.Hash)
		if err != nil {
			slog.Warn("embed_collection_content_missing", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		if err := ix.embedContent(ctx, doc.Hash, content); err != nil {
			slog.Warn("embed_collection_failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		embedded++
	}
	return embedded, nil
}

// Cleanup permanently removes tombstoned document rows older than
// olderThanDays, then sweeps orphaned content rows and orphaned vector
// metadata/index entries, per spec.md §4.7.
func (ix *Indexer) Cleanup(ctx context.Context, olderThanDays int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)

	stale, err := ix.Store.FindStaleEntries(ctx, ix.Collection, cutoff)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, ix.sweepOrphans(ctx)
	}

	ids := make([]int64, len(stale))
	for i, d := range stale {
		ids[i] = d.ID
	}
	if err := ix.Store.RemoveStaleEntries(ctx, ids); err != nil {
		return 0, err
	}

	if err := ix.sweepOrphans(ctx); err != nil {
		return len(stale), err
	}
	return len(stale), nil
}

func (ix *Indexer) sweepOrphans(ctx context.Context) error {
	if _, err := ix.Store.DeleteOrphanedContent(ctx); err != nil {
		return err
	}

	orphanHashes, err := ix.Store.OrphanedVectorHashes(ctx)
	if err != nil {
		return err
	}
	for _, hash := range orphanHashes {
		metas, err := ix.Store.ListVectorMeta(ctx, hash)
		if err != nil {
			continue
		}
		if ix.Vectors != nil {
			ids := make([]string, len(metas))
			for i, m := range metas {
				ids[i] = vectorID(m.Hash, m.Seq)
			}
			if err := ix.Vectors.Delete(ctx, ids); err != nil {
				slog.Warn("sweep_orphans_vector_delete_failed", slog.String("hash", hash), slog.String("error", err.Error()))
			}
		}
		if err := ix.Store.DeleteVectorMeta(ctx, hash); err != nil {
			slog.Warn("sweep_orphans_meta_delete_failed", slog.String("hash", hash), slog.String("error", err.Error()))
		}
	}
	return nil
}

func hashContent(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func vectorID(hash string, seq int) string {
	return hash + ":" + strconv.Itoa(seq)
}
