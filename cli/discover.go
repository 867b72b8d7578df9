package cli

// This file contains the discover command for listing declared tests.

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/glubean/testbridge/workspace"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"
)

type discoveredFile struct {
	File  string      `json:"file"`
	Tests interface{} `json:"tests"`
}

func (a *App) discover(ctx *cli.Context) error {
	paths := ctx.Args().Slice()
	if len(paths) == 0 {
		found, err := workspace.FindTestFiles(a.root, a.cfg.IsTestFile)
		if err != nil {
			return err
		}
		paths = found
	}

	d, err := workspace.NewDiscovery(a.logger, a.cfg.Discovery.CacheSize, a.cfg.Discovery.Concurrency)
	if err != nil {
		return err
	}
	files, err := d.DiscoverAll(ctx.Context, paths)
	if err != nil {
		return err
	}

	if ctx.Bool("json") {
		out := make([]discoveredFile, 0, len(files))
		for _, f := range files {
			out = append(out, discoveredFile{File: a.rel(f.Path), Tests: f.Tests})
		}
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(files) == 0 {
		fmt.Fprintln(a.out, "No tests found")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(a.out)
	t.AppendHeader(table.Row{"File", "Line", "ID", "Name", "Tags", "Steps"})
	total := 0
	for _, f := range files {
		for _, d := range f.Tests {
			t.AppendRow(table.Row{a.rel(f.Path), d.Line, d.ID, d.Name, strings.Join(d.Tags, ","), len(d.Steps)})
			total++
		}
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d files", len(files)), "", fmt.Sprintf("%d tests", total)})
	t.Render()
	return nil
}

// rel returns path relative to the workspace root when possible.
func (a *App) rel(path string) string {
	if r, err := filepath.Rel(a.root, path); err == nil && !strings.HasPrefix(r, "..") {
		return r
	}
	return path
}
