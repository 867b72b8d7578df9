package runner

// args.go contains utilities for building runner command lines.

import (
	"fmt"
	"strings"

	"al.essio.dev/pkg/shellescape"
	"github.com/glubean/testbridge/testid"
)

// Invocation contains options for one runner invocation.
type Invocation struct {
	File       string // Source file to run
	Filter     string // Normalized test ID prefix (empty runs the whole file)
	Pick       string // Example key for a test.pick group
	EnvFile    string // Environment file passed through to the runner
	TraceLimit int    // Maximum number of trace files kept per test (0 keeps the runner default)
}

// ForTest returns the invocation running a single declared test. The filter is
// the normalized ID, so data-driven groups run every generated row.
func ForTest(file, id, pickKey string) Invocation {
	inv := Invocation{
		File:   file,
		Filter: testid.Normalize(id),
	}
	if testid.IsPick(id) {
		inv.Pick = pickKey
	}
	return inv
}

// BuildArgs builds the runner arguments for an invocation.
func BuildArgs(inv Invocation) []string {
	args := []string{"run", inv.File}

	if inv.Filter != "" {
		args = append(args, "--filter", inv.Filter)
	}
	if inv.Pick != "" {
		args = append(args, "--pick", inv.Pick)
	}
	if inv.EnvFile != "" {
		args = append(args, "--env-file", inv.EnvFile)
	}
	if inv.TraceLimit > 0 {
		args = append(args, "--trace-limit", fmt.Sprintf("%d", inv.TraceLimit))
	}

	return append(args, "--verbose", "--pretty", "--result-json", "--emit-full-trace")
}

// CommandLine renders argv as a shell-escaped string for display. The result
// is only ever shown to users, processes are always started from argv.
func CommandLine(argv []string) string {
	parts := make([]string, 0, len(argv))
	for _, arg := range argv {
		parts = append(parts, shellescape.Quote(arg))
	}
	return strings.Join(parts, " ")
}
