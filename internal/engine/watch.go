package engine

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/uukuguy/qmd/internal/indexer"
)

// defaultWatchDebounce coalesces bursts of filesystem events (editor
// saves, git checkouts) into a single UpdateIndex call.
const defaultWatchDebounce = 500 * time.Millisecond

// Watch is an optional alternative to polling UpdateIndex on a timer: it
// watches the collection's root for filesystem changes and runs
// UpdateIndex once per debounce window after activity settles. It is
// not required for the synchronous UpdateIndex call spec.md describes;
// callers that never call Watch see no behavior change.
//
// Watch returns at once; a background goroutine runs until ctx is
// cancelled or the watcher's channels close, sending the Stats of each
// successful triggered UpdateIndex on the returned channel (failed runs
// are logged, not sent). The channel is closed when that goroutine stops.
func (e *Engine) Watch(ctx context.Context, collection string, debounce time.Duration) (<-chan indexer.Stats, error) {
	h, err := e.handle(collection)
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := addRecursive(fsw, h.cfg.Path); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	out := make(chan indexer.Stats)
	go func() {
		defer close(out)
		defer fsw.Close()

		var timer *time.Timer
		var timerC <-chan time.Time
		resetTimer := func() {
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			}
			timerC = timer.C
		}

		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if ev.Op&fsnotify.Create != 0 {
					_ = addRecursive(fsw, ev.Name)
				}
				resetTimer()

			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				slog.Warn("engine_watch_error", slog.String("collection", collection), slog.String("error", err.Error()))

			case <-timerC:
				stats, err := e.UpdateIndex(ctx, collection)
				if err != nil {
					slog.Warn("engine_watch_update_failed", slog.String("collection", collection), slog.String("error", err.Error()))
					continue
				}
				select {
				case out <- stats:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// addRecursive adds path and every directory beneath it to fsw, since
// fsnotify only watches the directories it is explicitly told about.
func addRecursive(fsw *fsnotify.Watcher, path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() != "." && len(d.Name()) > 1 && d.Name()[0] == '.' {
			return fs.SkipDir
		}
		return fsw.Add(p)
	})
}
