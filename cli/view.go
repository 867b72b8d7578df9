package cli

// This file contains the traces commands for listing, viewing and diffing
// saved request/response traces.

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/glubean/testbridge/model"
	"github.com/glubean/testbridge/tracestore"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"
)

// parseViewArgs splits arguments into up to n positional arguments and the
// trace selectors that follow them. A "--" ends the positional part early,
// so selectors such as "-1" are never taken for flags.
func parseViewArgs(in []string, n int) (positional []string, selectors []string) {
	for i, arg := range in {
		if arg == "--" {
			return positional, in[i+1:]
		}
		if len(positional) < n {
			positional = append(positional, arg)
			continue
		}
		return positional, in[i:]
	}
	return positional, nil
}

func (a *App) tracesList(ctx *cli.Context) error {
	args, _ := parseViewArgs(ctx.Args().Slice(), 2)
	if len(args) == 0 {
		return fmt.Errorf("expected a source file")
	}

	store := tracestore.New(a.logger, a.root)
	var (
		traces []model.TraceArtifact
		err    error
	)
	if len(args) == 2 {
		traces, err = store.All(args[0], args[1])
	} else {
		traces, err = store.TwoMostRecentGlobally(args[0])
	}
	if err != nil {
		return err
	}
	if len(traces) == 0 {
		fmt.Fprintln(a.out, "No traces found")
		fmt.Fprintf(a.out, "Traces are read from %s\n", store.FileDir(args[0]))
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(a.out)
	t.AppendHeader(table.Row{"Index", "Test", "Timestamp", "Variant", "Modified"})
	for i, tr := range traces {
		t.AppendRow(table.Row{-i, tr.Scope, tr.Timestamp, tr.Variant, tr.ModTime.Format("2006-01-02 15:04:05")})
	}
	t.Render()
	return nil
}

func (a *App) tracesView(ctx *cli.Context) error {
	args, selectors := parseViewArgs(ctx.Args().Slice(), 2)
	if len(args) != 2 {
		return fmt.Errorf("expected a source file and a test ID")
	}
	selector := "0"
	if len(selectors) > 0 {
		selector = selectors[0]
	}

	c, err := a.controller(false)
	if err != nil {
		return err
	}
	cursor, err := c.TraceCursor(args[0], args[1], true)
	if err != nil {
		return err
	}
	if err := cursor.Select(selector); err != nil {
		return err
	}
	return a.printTrace(cursor.Current())
}

// tracesBrowse keeps one cursor in the controller session and moves it with
// each command read from stdin.
func (a *App) tracesBrowse(ctx *cli.Context) error {
	args, _ := parseViewArgs(ctx.Args().Slice(), 2)
	if len(args) != 2 {
		return fmt.Errorf("expected a source file and a test ID")
	}
	file, testID := args[0], args[1]

	c, err := a.controller(false)
	if err != nil {
		return err
	}
	cursor, err := c.TraceCursor(file, testID, true)
	if err != nil {
		return err
	}
	if cursor.Len() == 0 {
		return fmt.Errorf("no traces found for %s", testID)
	}
	if err := a.printTrace(cursor.Current()); err != nil {
		return err
	}

	scanner := bufio.NewScanner(a.in)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		if cmd == "" {
			continue
		}
		if cmd == "q" || cmd == "quit" {
			return nil
		}

		cursor, err = c.TraceCursor(file, testID, false)
		if err != nil {
			return err
		}
		switch cmd {
		case "o", "older":
			if !cursor.Older() {
				fmt.Fprintln(a.out, "Already at the oldest trace")
				continue
			}
		case "n", "newer":
			if !cursor.Newer() {
				fmt.Fprintln(a.out, "Already at the newest trace")
				continue
			}
		default:
			if err := cursor.Select(cmd); err != nil {
				fmt.Fprintln(a.out, err)
				continue
			}
		}
		if err := a.printTrace(cursor.Current()); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (a *App) printTrace(tr *model.TraceArtifact) error {
	pairs, err := tracestore.Load(tr.Path)
	if err != nil {
		return err
	}
	body, err := tracestore.Format(pairs)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "=== Trace: %s ===\n", tr.Timestamp)
	fmt.Fprintf(a.out, "Test: %s\n", tr.Scope)
	if tr.Variant != "" {
		fmt.Fprintf(a.out, "Variant: %s\n", tr.Variant)
	}
	fmt.Fprintf(a.out, "Exchanges: %d\n", len(pairs))
	fmt.Fprintf(a.out, "Path: %s\n\n", tr.Path)
	fmt.Fprint(a.out, body)
	return nil
}

func (a *App) tracesDiff(ctx *cli.Context) error {
	args, selectors := parseViewArgs(ctx.Args().Slice(), 2)
	if len(args) == 0 {
		return fmt.Errorf("expected a source file")
	}

	store := tracestore.New(a.logger, a.root)
	var from, to model.TraceArtifact
	if len(args) == 1 {
		two, err := store.TwoMostRecentGlobally(args[0])
		if err != nil {
			return err
		}
		if len(two) < 2 {
			return fmt.Errorf("need at least two traces to diff, found %d", len(two))
		}
		from, to = two[1], two[0]
	} else {
		all, err := store.All(args[0], args[1])
		if err != nil {
			return err
		}
		fromSel, toSel := "-1", "0"
		if len(selectors) > 0 {
			fromSel = selectors[0]
		}
		if len(selectors) > 1 {
			toSel = selectors[1]
		}
		if from, err = pick(all, fromSel); err != nil {
			return err
		}
		if to, err = pick(all, toSel); err != nil {
			return err
		}
	}

	diff, err := tracestore.Diff(from, to)
	if err != nil {
		return err
	}
	if strings.TrimSpace(diff) == "" {
		fmt.Fprintln(a.out, "Traces are identical")
		return nil
	}
	fmt.Fprint(a.out, diff)
	return nil
}

func pick(traces []model.TraceArtifact, selector string) (model.TraceArtifact, error) {
	c := tracestore.NewCursor(traces)
	if err := c.Select(selector); err != nil {
		return model.TraceArtifact{}, err
	}
	return *c.Current(), nil
}
