// Package indexer implements the scan/diff/upsert/tombstone/cleanup state
// machine that keeps a collection's storage and vector index in sync with
// its files on disk.
package indexer

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/uukuguy/qmd/internal/qerrors"
)

// DefaultMaxFileSize skips files larger than this during a scan.
const DefaultMaxFileSize int64 = 50 * 1024 * 1024

// binarySniffLen is how many leading bytes are checked for a null byte
// when deciding whether a file is binary content.
const binarySniffLen = 512

// ScanResult describes one file found during a scan.
type ScanResult struct {
	// RelPath is the path relative to the collection root; it becomes
	// the virtual path's path component.
	RelPath string
	AbsPath string
	Size    int64
}

// ScanOptions controls Scan's traversal beyond the file glob pattern.
type ScanOptions struct {
	// RespectGitignore makes Scan consult .gitignore files along the
	// walked path and skip anything they ignore. Off by default: none
	// of spec.md's scan semantics depend on it, so this is purely an
	// opt-in convenience for collections rooted in a git checkout.
	RespectGitignore bool
}

// Scan walks root and returns, in deterministic (lexicographic) order,
// every regular file whose relative path matches pattern and that is
// neither oversized nor binary. Symlinks are not followed.
func Scan(ctx context.Context, root, pattern string) ([]ScanResult, error) {
	return ScanWithOptions(ctx, root, pattern, ScanOptions{})
}

// ScanWithOptions is Scan with gitignore-awareness and other traversal
// options.
func ScanWithOptions(ctx context.Context, root, pattern string, opts ScanOptions) ([]ScanResult, error) {
	var results []ScanResult

	var gc *gitignoreCache
	if opts.RespectGitignore {
		var err error
		gc, err = newGitignoreCache()
		if err != nil {
			return nil, qerrors.Wrap(qerrors.KindStorageError, err)
		}
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() != "." && isHiddenDir(d.Name()) {
				return fs.SkipDir
			}
			if gc != nil && path != root && gc.isIgnored(root, path, true) {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if gc != nil && gc.isIgnored(root, path, false) {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if pattern != "" && !MatchPattern(relPath, pattern) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() > DefaultMaxFileSize {
			return nil
		}
		if isBinaryFile(path) {
			return nil
		}

		results = append(results, ScanResult{RelPath: relPath, AbsPath: path, Size: info.Size()})
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, qerrors.Wrap(qerrors.KindCancelled, err)
		}
		return nil, qerrors.Wrap(qerrors.KindStorageError, err)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].RelPath < results[j].RelPath })
	return results, nil
}

func isHiddenDir(name string) bool {
	return len(name) > 1 && name[0] == '.'
}

// isBinaryFile reports whether the file's leading bytes contain a null
// byte, the same heuristic the teacher's scanner uses.
func isBinaryFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, binarySniffLen)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return false
	}
	return bytes.Contains(buf[:n], []byte{0})
}
