package runner

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/glubean/testbridge/model"
)

// ErrNoResult is returned when the runner did not produce a result artifact.
var ErrNoResult = errors.New("no result produced")

// ResultPath returns the result artifact location for a source file: the
// source extension is replaced by ".result.json".
func ResultPath(file string) string {
	return strings.TrimSuffix(file, filepath.Ext(file)) + ".result.json"
}

// ReadResultArtifact reads and parses the result artifact at path. A missing
// file yields an error wrapping ErrNoResult.
func ReadResultArtifact(path string) (*model.ResultArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoResult, path)
		}
		return nil, fmt.Errorf("failed to read result artifact: %w", err)
	}

	var artifact model.ResultArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to parse result artifact %s: %w", path, err)
	}
	return &artifact, nil
}

// RemoveResultArtifact deletes a stale artifact so a later read cannot pick up
// the output of a previous run. A missing file is not an error.
func RemoveResultArtifact(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove stale result artifact: %w", err)
	}
	return nil
}
