package tracestore

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/glubean/testbridge/model"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/tailscale/hujson"
)

// Load parses a trace artifact. Trace files are JSON with comments and
// trailing commas; they hold an array of request/response pairs.
func Load(path string) ([]model.TracePair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}

	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse trace %s: %w", path, err)
	}

	var pairs []model.TracePair
	if err := json.Unmarshal(std, &pairs); err != nil {
		return nil, fmt.Errorf("failed to decode trace %s: %w", path, err)
	}
	return pairs, nil
}

// Format renders trace pairs as indented JSON, one exchange per block.
func Format(pairs []model.TracePair) (string, error) {
	out, err := json.MarshalIndent(pairs, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out) + "\n", nil
}

// Diff renders a unified diff from trace a to trace b. Both traces are
// normalized first so comments and formatting do not show up as changes.
func Diff(a, b model.TraceArtifact) (string, error) {
	left, err := normalized(a.Path)
	if err != nil {
		return "", err
	}
	right, err := normalized(b.Path)
	if err != nil {
		return "", err
	}

	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(left),
		B:        difflib.SplitLines(right),
		FromFile: label(a),
		ToFile:   label(b),
		Context:  3,
	})
}

func normalized(path string) (string, error) {
	pairs, err := Load(path)
	if err != nil {
		return "", err
	}
	return Format(pairs)
}

func label(t model.TraceArtifact) string {
	l := t.Scope + "/" + t.Timestamp
	if t.Variant != "" {
		l += variantSep + t.Variant
	}
	return l
}
