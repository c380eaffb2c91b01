package catalog

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period after the last file event before a
// change is signalled.
const DefaultDebounce = 2 * time.Second

// Watcher turns file-system events under the library roots into debounced
// catalog change signals. Signals coalesce: at most one is pending at a time.
type Watcher struct {
	roots    []string
	debounce time.Duration
	log      *zap.Logger
	changes  chan struct{}
}

// NewWatcher creates a watcher over the given roots.
func NewWatcher(roots []string, debounce time.Duration, log *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		roots:    roots,
		debounce: debounce,
		log:      log.Named("watcher"),
		changes:  make(chan struct{}, 1),
	}
}

// Changes implements Notifier.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Run watches the roots until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	for _, root := range w.roots {
		if err := w.addTree(watcher, root); err != nil {
			w.log.Warn("error watching directory tree", zap.String("root", root), zap.Error(err))
		}
	}

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			w.signal()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				break
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(watcher, event.Name); err != nil {
						w.log.Warn("error watching new directory", zap.String("path", event.Name), zap.Error(err))
					}
				}
			}
			timer.Reset(w.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("error from watcher", zap.Error(err))

		case <-ctx.Done():
			return nil
		}
	}
}

func (w *Watcher) signal() {
	select {
	case w.changes <- struct{}{}:
	default:
	}
}

func (w *Watcher) addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // unreadable subtrees are not watched
		}
		if !d.IsDir() {
			return nil
		}
		return watcher.Add(path)
	})
}
