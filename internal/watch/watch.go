package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// SyncFunc is invoked once per quiet period with the paths that changed
type SyncFunc func(ctx context.Context, changed []string) error

type Watcher struct {
	fw       *fsnotify.Watcher
	log      *zap.Logger
	debounce time.Duration
	ignore   []string
}

// New creates a watcher. Events under any ignore prefix never trigger a sync.
func New(log *zap.Logger, debounce time.Duration, ignore ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	cleaned := make([]string, 0, len(ignore))
	for _, p := range ignore {
		if p == "" {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		cleaned = append(cleaned, filepath.Clean(p))
	}

	return &Watcher{
		fw:       fw,
		log:      log,
		debounce: debounce,
		ignore:   cleaned,
	}, nil
}

// Run watches root recursively and calls sync after each burst of changes
// settles for the debounce interval. It returns when ctx is done. Errors from
// sync are logged and do not stop the watcher.
func (w *Watcher) Run(ctx context.Context, root string, sync SyncFunc) error {
	defer w.fw.Close()

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	if _, err := os.Stat(absRoot); err != nil {
		return fmt.Errorf("source directory not found: %w", err)
	}
	if err := w.addRecursive(absRoot); err != nil {
		return err
	}

	w.log.Info("watcher started", zap.String("dir", absRoot))

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			w.log.Info("watcher stopping")
			timer.Stop()
			return nil

		case event, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if !relevant(event.Op) || w.ignored(event.Name) {
				continue
			}

			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						w.log.Warn("failed to watch new directory",
							zap.String("path", event.Name),
							zap.Error(err))
					}
				}
			}

			w.log.Debug("change detected",
				zap.String("path", event.Name),
				zap.Stringer("op", event.Op))
			pending[event.Name] = struct{}{}
			timer.Reset(w.debounce)

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			pending = make(map[string]struct{})

			if err := sync(ctx, changed); err != nil {
				w.log.Error("sync failed", zap.Error(err))
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		w.log.Debug("watching directory", zap.String("path", path))
		return nil
	})
}

func (w *Watcher) ignored(path string) bool {
	path = filepath.Clean(path)
	for _, prefix := range w.ignore {
		if path == prefix || strings.HasPrefix(path, prefix+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func relevant(op fsnotify.Op) bool {
	return op.Has(fsnotify.Create) || op.Has(fsnotify.Write) ||
		op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename)
}
