package cli

// This file contains the list command for displaying previous runs.

import (
	"fmt"
	"strings"
	"time"

	"github.com/glubean/testbridge/history"
	"github.com/glubean/testbridge/model"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"
)

func (a *App) list(ctx *cli.Context) error {
	filterPath := ctx.String("path")
	limit := ctx.Int("limit")

	entries, err := history.LoadEntries(a.logger, a.root)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	// Apply path filter if specified
	var filtered []history.Entry
	for _, entry := range entries {
		if filterPath == "" || strings.Contains(entry.Run.File, filterPath) {
			filtered = append(filtered, entry)
		}
	}

	if len(filtered) == 0 {
		if filterPath != "" {
			fmt.Fprintf(a.out, "No runs found matching path: %s\n", filterPath)
		} else {
			fmt.Fprintln(a.out, "No runs found")
			fmt.Fprintf(a.out, "Runs are saved to %s/%s/<timestamp>-<id>/\n", a.root, history.Dir)
		}
		return nil
	}

	display := filtered
	if limit > 0 && limit < len(display) {
		display = display[:limit]
	}

	fmt.Fprintf(a.out, "\n=== Runs (%d total) ===\n\n", len(filtered))

	t := table.NewWriter()
	t.SetOutputMirror(a.out)
	t.AppendHeader(table.Row{"Index", "ID", "Time", "Git", "Mode", "File", "Tests", "Duration", "Status"})
	for i, entry := range display {
		run := entry.Run
		tests := "all"
		if len(run.TestIDs) > 0 {
			tests = strings.Join(run.TestIDs, ",")
		}
		t.AppendRow(table.Row{
			-i,
			run.ID[:min(8, len(run.ID))],
			run.Timestamp.Format("2006-01-02 15:04:05"),
			gitLabel(run.Git),
			run.Mode,
			a.rel(run.File),
			tests,
			run.Duration.Round(time.Millisecond),
			runStatus(run),
		})
	}
	t.Render()
	return nil
}

// runStatus summarizes the final test states of a run.
func runStatus(run model.RunRecord) string {
	passed, failed := 0, 0
	for _, s := range run.States {
		switch s {
		case model.StatePassed:
			passed++
		case model.StateFailed, model.StateErrored:
			failed++
		}
	}
	if failed > 0 {
		return fmt.Sprintf("✗ %d/%d failed", failed, len(run.States))
	}
	return fmt.Sprintf("✓ %d passed", passed)
}

func gitLabel(g *model.Git) string {
	if g == nil || len(g.Commit) < 8 {
		return ""
	}
	if g.Branch != "" {
		return fmt.Sprintf("%s (%s)", g.Commit[:8], g.Branch)
	}
	return g.Commit[:8]
}
