package tracestore

// This file contains lookup of trace artifacts written by the runner under
// <root>/.glubean/traces/<file base>/<test or group ID>/.

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/glubean/testbridge/model"
	"github.com/rs/zerolog"
)

const (
	// Dir is the trace directory relative to the workspace root.
	Dir = ".glubean/traces"
	// Ext is the extension of every trace artifact.
	Ext = ".trace.jsonc"

	variantSep = "--"
)

// Store looks up trace artifacts below a workspace root.
type Store struct {
	logger zerolog.Logger
	root   string
}

// New creates a store for the workspace at root.
func New(logger zerolog.Logger, root string) *Store {
	return &Store{logger: logger, root: root}
}

// FileBase returns the base name of a source file with its last extension
// removed, e.g. "api.test" for "src/api.test.ts".
func FileBase(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// FileDir returns the directory holding every trace of a source file.
func (s *Store) FileDir(file string) string {
	return filepath.Join(s.root, Dir, FileBase(file))
}

// ScopeDir returns the directory holding the traces of one test or group.
func (s *Store) ScopeDir(file, testID string) string {
	return filepath.Join(s.FileDir(file), testID)
}

// Latest returns the newest trace of a test, or nil if there is none.
func (s *Store) Latest(file, testID string) (*model.TraceArtifact, error) {
	all, err := s.All(file, testID)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return &all[0], nil
}

// All returns every trace of a test, newest first.
func (s *Store) All(file, testID string) ([]model.TraceArtifact, error) {
	traces, err := listScope(s.ScopeDir(file, testID), testID)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(traces)
	return traces, nil
}

// TwoMostRecentGlobally returns the two newest traces of a file across all of
// its tests, newest first. It returns fewer when fewer exist.
func (s *Store) TwoMostRecentGlobally(file string) ([]model.TraceArtifact, error) {
	fileDir := s.FileDir(file)
	scopes, err := os.ReadDir(fileDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read trace directory: %w", err)
	}

	var traces []model.TraceArtifact
	for _, scope := range scopes {
		if !scope.IsDir() {
			continue
		}
		found, err := listScope(filepath.Join(fileDir, scope.Name()), scope.Name())
		if err != nil {
			s.logger.Warn().Err(err).Str("scope", scope.Name()).Msg("Failed to list traces")
			continue
		}
		traces = append(traces, found...)
	}

	sortNewestFirst(traces)
	if len(traces) > 2 {
		traces = traces[:2]
	}
	return traces, nil
}

// listScope lists the trace artifacts directly inside dir. A missing directory
// yields no traces.
func listScope(dir, scope string) ([]model.TraceArtifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read trace directory: %w", err)
	}

	var traces []model.TraceArtifact
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		t := ParseName(e.Name())
		t.Path = filepath.Join(dir, e.Name())
		t.Scope = scope
		if info, err := e.Info(); err == nil {
			t.ModTime = info.ModTime()
		}
		traces = append(traces, t)
	}
	return traces, nil
}

// ParseName splits a trace file name into its timestamp and optional variant.
func ParseName(name string) model.TraceArtifact {
	stem := strings.TrimSuffix(name, Ext)
	ts, variant, _ := strings.Cut(stem, variantSep)
	return model.TraceArtifact{Timestamp: ts, Variant: variant}
}

// Timestamps sort lexically; the file modification time breaks ties.
func sortNewestFirst(traces []model.TraceArtifact) {
	sort.SliceStable(traces, func(i, j int) bool {
		a, b := filepath.Base(traces[i].Path), filepath.Base(traces[j].Path)
		if a != b {
			return a > b
		}
		return traces[i].ModTime.After(traces[j].ModTime)
	})
}
