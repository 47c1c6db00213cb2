// Package watcher monitors the vault for external edits and keeps the
// index in sync with the files on disk.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sgx-labs/notevault/internal/index"
	"github.com/sgx-labs/notevault/internal/logging"
	"github.com/sgx-labs/notevault/internal/note"
	"github.com/sgx-labs/notevault/internal/vaulterr"
)

const debounceDelay = 2 * time.Second

// Watch blocks, reindexing notes as they change on disk, until ctx is
// cancelled or the underlying watcher fails.
func Watch(ctx context.Context, store *note.Store, db *index.DB) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return vaulterr.Wrap(vaulterr.Internal, err, "create watcher")
	}
	defer w.Close()

	dirs := walkDirs(store.Root)
	for _, d := range dirs {
		if err := w.Add(d); err != nil {
			logging.Warnf("could not watch %s: %v", d, err)
		}
	}
	logging.Infof("watching %d directories under %s", len(dirs), store.Root)

	// Debounce: batch rapid saves of the same file into one reindex.
	var (
		mu      sync.Mutex
		pending = make(map[string]bool)
		timer   *time.Timer
	)
	flush := func() {
		mu.Lock()
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		pending = make(map[string]bool)
		mu.Unlock()

		for _, p := range paths {
			reindexPath(store, db, p)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}

			if !strings.HasSuffix(event.Name, ".md") || hiddenPath(store.Root, event.Name) {
				// New subdirectories need their own watch.
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() &&
						!strings.HasPrefix(filepath.Base(event.Name), ".") {
						if err := w.Add(event.Name); err != nil {
							logging.Warnf("could not watch %s: %v", event.Name, err)
						}
					}
				}
				continue
			}

			// Rename events carry the old path; drop its index row so a
			// moved file does not leave a stale entry behind.
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				if err := db.RemoveByPath(event.Name); err != nil {
					logging.Warnf("remove %s from index: %v", event.Name, err)
				}
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				mu.Lock()
				pending[event.Name] = true
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounceDelay, flush)
				mu.Unlock()
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logging.Warnf("watch error: %v", err)
		}
	}
}

// reindexPath re-reads one file and upserts it. A file that vanished
// between the event and the flush is removed instead.
func reindexPath(store *note.Store, db *index.DB, path string) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			if rerr := db.RemoveByPath(path); rerr != nil {
				logging.Warnf("remove %s from index: %v", path, rerr)
			}
			return
		}
		logging.Warnf("stat %s: %v", path, err)
		return
	}

	n, err := store.Load(path, false)
	if err != nil {
		logging.Warnf("skipping %s: %v", path, err)
		return
	}
	if err := db.IndexNote(n); err != nil {
		logging.Warnf("reindex %s: %v", path, err)
		return
	}
	logging.Debugf("reindexed %s", path)
}

// walkDirs lists every non-hidden directory under root, root included.
func walkDirs(root string) []string {
	var dirs []string
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs
}

// hiddenPath reports whether any path element below the vault root is
// dot-prefixed.
func hiddenPath(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}
