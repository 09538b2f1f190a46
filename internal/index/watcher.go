package index

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/notegraph/internal/checksum"
	"github.com/starford/notegraph/internal/storage"
)

// Event kinds reported by the watcher.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// Event describes one watcher-driven index change.
type Event struct {
	Kind string
	Path string
	ID   string
}

// EventCallback is called after a watcher-driven index change.
type EventCallback func(Event)

const reconcileDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the vault root and processes file
// change events until ctx is cancelled. It calls cb (if non-nil) after
// each index mutation that changed something.
//
// New directories created at runtime are automatically added to the watch
// list; new top-level directories become collections. Rename events trigger
// a reconciliation pass that removes stale index entries whose files no
// longer exist on disk.
func Watch(ctx context.Context, db *DB, store storage.Provider, vaultRoot string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, vaultRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", vaultRoot))

	emit := func(ev Event) {
		if cb != nil {
			cb(ev)
		}
	}

	// reconcileTimer is used to debounce rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, store, logger, emit)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name
			rel, relErr := filepath.Rel(vaultRoot, absPath)
			if relErr != nil || isHiddenPath(rel) {
				continue
			}
			rel = filepath.ToSlash(rel)

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					if !strings.Contains(rel, "/") {
						if _, err := db.EnsureCollection(rel); err != nil {
							logger.Warn("watcher: create collection failed", slog.String("name", rel), slog.String("error", err.Error()))
						}
					}
					indexNewDir(db, store, vaultRoot, absPath, logger, emit)
					continue
				}
			}

			if !strings.HasSuffix(absPath, ".md") {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if e, ok := indexChanged(db, store, rel, logger); ok {
					logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", e.Kind))
					emit(e)
				}

			case ev.Op&fsnotify.Remove != 0:
				id, delErr := db.DeleteDocument(rel)
				if delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				if id != "" {
					logger.Debug("watcher: deleted", slog.String("path", rel))
					emit(Event{Kind: EventDeleted, Path: rel, ID: id})
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only. The new
				// path will arrive as a separate Create event (if it
				// stays within a watched dir). We delete the old entry
				// immediately and schedule a short reconciliation pass
				// to catch any stragglers.
				id, delErr := db.DeleteDocument(rel)
				if delErr != nil {
					logger.Warn("watcher: rename delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
				} else if id != "" {
					logger.Debug("watcher: rename old deleted", slog.String("path", rel))
					emit(Event{Kind: EventDeleted, Path: rel, ID: id})
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// indexChanged re-indexes rel if its content differs from the indexed copy.
func indexChanged(db *DB, store storage.Provider, rel string, logger *slog.Logger) (Event, bool) {
	data, err := store.Read(rel)
	if err != nil {
		logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return Event{}, false
	}
	prev, _ := db.GetChecksum(rel)
	if prev == checksum.Sum(data) {
		return Event{}, false
	}
	row, err := IndexFile(db, rel, data)
	if errors.Is(err, ErrOutsideCollection) {
		logger.Debug("watcher: skipped", slog.String("path", rel))
		return Event{}, false
	}
	if err != nil {
		logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return Event{}, false
	}
	kind := EventUpdated
	if prev == "" {
		kind = EventCreated
	}
	return Event{Kind: kind, Path: rel, ID: row.ID}, true
}

// reconcile does a lightweight sync using batch lookups:
// finds index entries without a corresponding file on disk and removes them,
// and finds on-disk files that are not indexed and indexes them.
func reconcile(db *DB, store storage.Provider, logger *slog.Logger, emit func(Event)) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	metas, err := store.List("")
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if id, delErr := db.DeleteDocument(p); delErr == nil && id != "" {
			logger.Debug("reconcile: removed stale", slog.String("path", p))
			emit(Event{Kind: EventDeleted, Path: p, ID: id})
		}
	}

	for p, cs := range disk {
		if checksums[p] == cs {
			continue
		}
		if e, ok := indexChanged(db, store, p, logger); ok {
			logger.Debug("reconcile: indexed", slog.String("path", p))
			emit(e)
		}
	}
}

// indexNewDir indexes any .md files found in a newly created directory.
func indexNewDir(db *DB, store storage.Provider, vaultRoot, dirPath string, logger *slog.Logger, emit func(Event)) {
	_ = filepath.WalkDir(dirPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, ".md") {
			return nil
		}
		rel, relErr := filepath.Rel(vaultRoot, p)
		if relErr != nil || isHiddenPath(rel) {
			return nil
		}
		if e, ok := indexChanged(db, store, filepath.ToSlash(rel), logger); ok {
			logger.Debug("watcher: indexed from new dir", slog.String("path", rel))
			emit(e)
		}
		return nil
	})
}

// addDirsRecursive adds root and all its visible subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}

func isHiddenPath(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != "." {
			return true
		}
	}
	return false
}
