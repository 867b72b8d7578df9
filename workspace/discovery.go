package workspace

// discovery.go contains test discovery over source files, cached by file
// path and invalidated when the file's size or modification time changes.

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/glubean/testbridge/extract"
	"github.com/glubean/testbridge/model"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// skipDirs are never descended into when looking for test files.
var skipDirs = map[string]bool{
	".git":         true,
	".glubean":     true,
	"node_modules": true,
	"vendor":       true,
}

// SkipDir reports whether a directory is excluded from discovery.
func SkipDir(name string) bool {
	return skipDirs[name]
}

// FileTests holds the descriptors discovered in one file.
type FileTests struct {
	Path  string
	Tests []model.TestDescriptor
}

type cacheEntry struct {
	modTime time.Time
	size    int64
	tests   []model.TestDescriptor
}

// Discovery extracts descriptors from source files.
type Discovery struct {
	logger      zerolog.Logger
	cache       *lru.Cache
	concurrency int
}

// NewDiscovery creates a discovery cache holding up to cacheSize files.
func NewDiscovery(logger zerolog.Logger, cacheSize, concurrency int) (*Discovery, error) {
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery cache: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Discovery{logger: logger, cache: cache, concurrency: concurrency}, nil
}

// Discover returns the descriptors of a file, reading it only when it changed
// since the last call.
func (d *Discovery) Discover(path string) ([]model.TestDescriptor, error) {
	info, err := os.Stat(path)
	if err != nil {
		d.cache.Remove(path)
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if v, ok := d.cache.Get(path); ok {
		e := v.(cacheEntry)
		if e.modTime.Equal(info.ModTime()) && e.size == info.Size() {
			return e.tests, nil
		}
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	tests := extract.Extract(string(source))
	d.cache.Add(path, cacheEntry{modTime: info.ModTime(), size: info.Size(), tests: tests})

	d.logger.Debug().Str("file", path).Int("tests", len(tests)).Msg("Discovered tests")
	return tests, nil
}

// Invalidate drops the cached descriptors of a file.
func (d *Discovery) Invalidate(path string) {
	d.cache.Remove(path)
}

// DiscoverAll discovers every path concurrently. Files that fail are logged
// and left out; files without tests are left out. The result is sorted by path.
func (d *Discovery) DiscoverAll(ctx context.Context, paths []string) ([]FileTests, error) {
	var (
		mu    sync.Mutex
		found []FileTests
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for _, path := range paths {
		path := path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tests, err := d.Discover(path)
			if err != nil {
				d.logger.Warn().Err(err).Str("file", path).Msg("Skipping file")
				return nil
			}
			if len(tests) == 0 {
				return nil
			}
			mu.Lock()
			found = append(found, FileTests{Path: path, Tests: tests})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
	return found, nil
}

// FindTestFiles walks root and returns the files accepted by isTest.
func FindTestFiles(root string, isTest func(string) bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if isTest(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return files, nil
}
