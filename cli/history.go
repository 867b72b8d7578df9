package cli

// This file contains the rerun command for repeating a recorded run.

import (
	"fmt"
	"os"
	"strconv"

	"github.com/glubean/testbridge/history"
	"github.com/glubean/testbridge/workspace"
	"github.com/urfave/cli/v2"
)

func (a *App) rerun(ctx *cli.Context) error {
	arg := "0"
	if ctx.NArg() > 0 {
		arg = ctx.Args().First()
	}

	entries, err := history.LoadEntries(a.logger, a.root)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("no runs found")
	}

	entry, err := findEntry(entries, arg)
	if err != nil {
		return err
	}

	run := entry.Run
	a.logger.Info().Str("id", run.ID).Str("file", a.rel(run.File)).Msg("Repeating run")
	return a.execute(ctx.Context, workspace.Request{
		File:    run.File,
		TestIDs: run.TestIDs,
		Mode:    run.Mode,
		Output:  os.Stderr,
	}, true)
}

// findEntry resolves an index (0 for the newest, -1 for the one before, ...)
// or an ID prefix.
func findEntry(entries []history.Entry, arg string) (*history.Entry, error) {
	if parsed, err := strconv.ParseInt(arg, 10, 64); err == nil {
		if parsed > 0 {
			return nil, fmt.Errorf("invalid index: %s (use 0 for last, -1 for second-to-last, etc.)", arg)
		}
		index := int(-parsed)
		if index >= len(entries) {
			return nil, fmt.Errorf("index %s out of range (only %d runs)", arg, len(entries))
		}
		return &entries[index], nil
	}
	return history.Find(entries, arg)
}
