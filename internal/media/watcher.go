package media

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Event kinds reported by Watch.
const (
	EventAdded   = "added"
	EventMissing = "missing"
)

// EventCallback receives a kind and a slash-separated path relative to the
// media root.
type EventCallback func(kind, rel string)

// Watch follows the media root with fsnotify until ctx is cancelled and
// reports files that appear or disappear, including changes made outside
// the app. New directories are added to the watch list as they appear.
func Watch(ctx context.Context, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("media watcher: started", slog.String("root", root))

	for {
		select {
		case <-ctx.Done():
			logger.Info("media watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if strings.HasPrefix(filepath.Base(ev.Name), ".prompthub-tmp-") {
				continue
			}

			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&fsnotify.Create != 0:
				info, statErr := os.Stat(ev.Name)
				if statErr != nil {
					continue
				}
				if info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("media watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					continue
				}
				logger.Debug("media watcher: added", slog.String("path", rel))
				if cb != nil {
					cb(EventAdded, rel)
				}

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				logger.Debug("media watcher: missing", slog.String("path", rel))
				if cb != nil {
					cb(EventMissing, rel)
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("media watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
