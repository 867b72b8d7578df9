package cli

// This file renders run reports.

import (
	"fmt"
	"strings"
	"time"

	"github.com/glubean/testbridge/apply"
	"github.com/glubean/testbridge/model"
	"github.com/jedib0t/go-pretty/v6/table"
)

func stateSymbol(s model.TestState) string {
	switch s {
	case model.StatePassed:
		return "✓ passed"
	case model.StateFailed:
		return "✗ failed"
	case model.StateErrored:
		return "! errored"
	case model.StateSkipped:
		return "- skipped"
	default:
		return string(s)
	}
}

func (a *App) printReport(run *model.RunRecord, rec *apply.Recorder) {
	fmt.Fprintf(a.out, "\n=== Run %s (%s) ===\n", run.ID[:8], run.Mode)
	fmt.Fprintf(a.out, "File: %s\n", a.rel(run.File))
	fmt.Fprintf(a.out, "Duration: %s\n\n", run.Duration.Round(time.Millisecond))

	t := table.NewWriter()
	t.SetOutputMirror(a.out)
	t.AppendHeader(table.Row{"Test", "State", "Duration", "Details"})

	counts := map[model.TestState]int{}
	for _, id := range rec.TestIDs() {
		o, _ := rec.Test(id)
		counts[o.State]++
		t.AppendRow(table.Row{id, stateSymbol(o.State), formatDuration(o.DurationMs), details(o.Messages)})
	}
	t.AppendFooter(table.Row{
		fmt.Sprintf("%d tests", len(rec.TestIDs())),
		fmt.Sprintf("%d passed", counts[model.StatePassed]),
		fmt.Sprintf("%d failed", counts[model.StateFailed]+counts[model.StateErrored]),
		fmt.Sprintf("%d skipped", counts[model.StateSkipped]),
	})
	t.Render()
}

func details(msgs []apply.Message) string {
	var lines []string
	for _, m := range msgs {
		line := m.Text
		if m.Expected != "" || m.Actual != "" {
			line += fmt.Sprintf(" (expected %s, got %s)", m.Expected, m.Actual)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
