package history

// This file contains the run history kept under .glubean/runs so that
// previous runs can be listed and the last run repeated.

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/glubean/testbridge/model"
	"github.com/rs/zerolog"
)

const (
	// Dir is the run history directory relative to the workspace root.
	Dir = ".glubean/runs"

	recordFile = "run.json"
)

type Entry struct {
	Run      model.RunRecord
	FullPath string
}

// FindRoot returns the workspace root for dir: the enclosing git repository
// if there is one, otherwise dir itself.
func FindRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = abs
	output, err := cmd.Output()
	if err != nil {
		return abs, nil
	}
	return strings.TrimSpace(string(output)), nil
}

// Save writes a run record to <root>/.glubean/runs/<timestamp>[-<commit>]-<id>/run.json
// and returns the run directory.
func Save(root string, run model.RunRecord) (string, error) {
	name := run.Timestamp.UTC().Format("20060102-150405")
	if run.Git != nil && len(run.Git.Commit) >= 8 {
		name += "-" + run.Git.Commit[:8]
	}
	name += "-" + short(run.ID)
	runDir := filepath.Join(root, Dir, name)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal run record: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, recordFile), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write run record: %w", err)
	}
	return runDir, nil
}

// LoadEntries loads every saved run below root, newest first. Unreadable
// records are logged and skipped.
func LoadEntries(logger zerolog.Logger, root string) ([]Entry, error) {
	runsDir := filepath.Join(root, Dir)
	dirs, err := os.ReadDir(runsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", runsDir, err)
	}

	var entries []Entry
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		path := filepath.Join(runsDir, d.Name())
		run, err := parseRecord(filepath.Join(path, recordFile))
		if err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Failed to parse run record")
			continue
		}
		entries = append(entries, Entry{Run: run, FullPath: path})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Run.Timestamp.After(entries[j].Run.Timestamp)
	})
	return entries, nil
}

// Find returns the entry whose run ID starts with prefix.
func Find(entries []Entry, prefix string) (*Entry, error) {
	prefix = strings.ToLower(prefix)
	for i := range entries {
		if strings.HasPrefix(strings.ToLower(entries[i].Run.ID), prefix) {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("no run found matching ID: %s", prefix)
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func parseRecord(path string) (model.RunRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.RunRecord{}, err
	}

	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}
