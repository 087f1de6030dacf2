// Package watch reports file changes under the site root using fsnotify.
// Dot-directories and dependency trees are skipped and bursts of events for
// one path are debounced.
package watch

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceInterval = 50 * time.Millisecond

// Dependency and cache directories never served as site content. Output
// directories such as dist or build are watched since they may sit under docs/.
var ignoreDirs = map[string]bool{
	"node_modules":     true,
	"bower_components": true,
	"vendor":           true,
	"__pycache__":      true,
}

// Editor droppings that should not trigger a reload.
var ignoreSuffixes = []string{".swp", ".swx", ".tmp", "~"}

// Watcher recursively watches a directory tree.
type Watcher struct {
	fw      *fsnotify.Watcher
	logger  *slog.Logger
	done    chan struct{}
	stopped bool
	mu      sync.Mutex
}

func NewWatcher(logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fw:     fw,
		logger: logger,
		done:   make(chan struct{}),
	}, nil
}

// Watch starts monitoring root. onChange receives the changed path relative
// to root, slash-separated, and may be called from any goroutine.
func (w *Watcher) Watch(root string, onChange func(relPath string)) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != absRoot && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fw.Add(path)
	})
	if err != nil {
		return err
	}

	go w.loop(absRoot, onChange)
	return nil
}

func (w *Watcher) loop(absRoot string, onChange func(relPath string)) {
	debounce := make(map[string]time.Time)

	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}

			rel, err := filepath.Rel(absRoot, event.Name)
			if err != nil || shouldIgnore(rel) {
				continue
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.fw.Add(event.Name); err != nil {
						w.logger.Warn("watch new directory failed", "path", event.Name, "error", err)
					}
				}
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			now := time.Now()
			if last, seen := debounce[rel]; seen && now.Sub(last) < debounceInterval {
				continue
			}
			debounce[rel] = now

			onChange(filepath.ToSlash(rel))

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

// Stop ends monitoring. Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.done)
	return w.fw.Close()
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func skipDir(name string) bool {
	return isHidden(name) || ignoreDirs[name]
}

func shouldIgnore(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if skipDir(part) {
			return true
		}
	}
	for _, suffix := range ignoreSuffixes {
		if strings.HasSuffix(rel, suffix) {
			return true
		}
	}
	return false
}
