package watch

// watch.go rediscovers test files when they change on disk. Events for one
// path are debounced so an editor's save sequence triggers a single rescan.

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/glubean/testbridge/model"
	"github.com/rs/zerolog"
)

const DefaultDebounce = 300 * time.Millisecond

// Discoverer extracts and caches the descriptors of a file.
type Discoverer interface {
	Discover(path string) ([]model.TestDescriptor, error)
	Invalidate(path string)
}

// Change is reported once per debounced file change.
type Change struct {
	Path    string
	Tests   []model.TestDescriptor
	Removed bool
}

// Watcher watches a directory tree for changes to test files.
type Watcher struct {
	logger    zerolog.Logger
	root      string
	discovery Discoverer
	isTest    func(string) bool
	debounce  time.Duration
	skipDir   func(string) bool

	mu      sync.Mutex
	pending map[string]time.Time
}

// New creates a watcher for root. skipDir may be nil.
func New(logger zerolog.Logger, root string, discovery Discoverer, isTest func(string) bool, skipDir func(string) bool, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if skipDir == nil {
		skipDir = func(string) bool { return false }
	}
	return &Watcher{
		logger:    logger,
		root:      root,
		discovery: discovery,
		isTest:    isTest,
		debounce:  debounce,
		skipDir:   skipDir,
		pending:   make(map[string]time.Time),
	}
}

// Run watches until ctx is canceled, calling onChange from the watching
// goroutine for every settled change.
func (w *Watcher) Run(ctx context.Context, onChange func(Change)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addTree(fw, w.root); err != nil {
		return err
	}
	w.logger.Info().Str("root", w.root).Msg("Watching for changes")

	tick := time.NewTicker(w.debounce / 3)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(fw, ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("Watcher error")
		case <-tick.C:
			for _, path := range w.due() {
				onChange(w.rescan(path))
			}
		}
	}
}

func (w *Watcher) handle(fw *fsnotify.Watcher, ev fsnotify.Event) {
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(fw, ev.Name); err != nil {
				w.logger.Warn().Err(err).Str("dir", ev.Name).Msg("Failed to watch directory")
			}
			return
		}
	}
	if !w.isTest(ev.Name) {
		return
	}
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	w.logger.Debug().Str("file", ev.Name).Str("op", ev.Op.String()).Msg("File changed")
	w.mu.Lock()
	w.pending[ev.Name] = time.Now()
	w.mu.Unlock()
}

// due returns the paths whose last event is older than the debounce period.
func (w *Watcher) due() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	var paths []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			paths = append(paths, path)
			delete(w.pending, path)
		}
	}
	return paths
}

func (w *Watcher) rescan(path string) Change {
	w.discovery.Invalidate(path)
	tests, err := w.discovery.Discover(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Change{Path: path, Removed: true}
		}
		w.logger.Warn().Err(err).Str("file", path).Msg("Failed to rediscover tests")
		return Change{Path: path}
	}
	return Change{Path: path, Tests: tests}
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.skipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
