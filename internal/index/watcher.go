package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/raido/internal/cardid"
	"github.com/starford/raido/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, cardID string)

// Watch starts an fsnotify watcher on the deck root and processes file
// change events until ctx is cancelled. It calls cb (if non-nil) after
// each successful index mutation.
//
// The deck is flat, so only the root directory is watched. Rename events
// trigger a debounced reconciliation pass that removes stale index entries
// whose files no longer exist on disk and picks up renamed-in files.
func Watch(ctx context.Context, db *DB, store storage.Provider, deckRoot string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(deckRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", deckRoot))

	// reconcileTimer is used to debounce rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
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
			reconcileAfterRename(db, store, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			name := filepath.Base(ev.Name)
			if !strings.HasSuffix(name, storage.CardExtension) {
				continue
			}
			id, ok := cardid.Sanitize(strings.TrimSuffix(name, storage.CardExtension))
			if !ok {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := store.Read(name)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("card", id), slog.String("error", readErr.Error()))
					continue
				}
				if idxErr := indexCard(db, id, data); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("card", id), slog.String("error", idxErr.Error()))
					continue
				}
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "created"
				}
				logger.Debug("watcher: indexed", slog.String("card", id), slog.String("op", kind))
				if cb != nil {
					cb(kind, id)
				}

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.DeleteCard(id); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("card", id), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("card", id))
				if cb != nil {
					cb("deleted", id)
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only. The new
				// path will arrive as a separate Create event (if it
				// stays within the deck). We delete the old entry
				// immediately and schedule a short reconciliation pass
				// to catch any stragglers.
				if delErr := db.DeleteCard(id); delErr != nil {
					logger.Warn("watcher: rename delete failed", slog.String("card", id), slog.String("error", delErr.Error()))
				} else {
					logger.Debug("watcher: rename old deleted", slog.String("card", id))
					if cb != nil {
						cb("deleted", id)
					}
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

// reconcileAfterRename does a lightweight sync using batch lookups:
// finds index entries without a corresponding file on disk and removes them,
// and finds on-disk cards that are not indexed and indexes them.
func reconcileAfterRename(db *DB, store storage.Provider, logger *slog.Logger, cb EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	entries, err := store.List()
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(entries))
	paths := make(map[string]string, len(entries))
	for _, e := range entries {
		disk[e.ID] = e.Checksum
		paths[e.ID] = e.Path
	}

	for id := range checksums {
		if _, ok := disk[id]; !ok {
			if delErr := db.DeleteCard(id); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("card", id))
				if cb != nil {
					cb("deleted", id)
				}
			}
		}
	}

	for id, cs := range disk {
		if checksums[id] == cs {
			continue
		}
		data, readErr := store.Read(paths[id])
		if readErr != nil {
			continue
		}
		if idxErr := indexCard(db, id, data); idxErr == nil {
			logger.Debug("reconcile: indexed new", slog.String("card", id))
			if cb != nil {
				cb("created", id)
			}
		}
	}
}
