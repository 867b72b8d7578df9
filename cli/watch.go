package cli

// This file contains the watch command.

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/glubean/testbridge/watch"
	"github.com/glubean/testbridge/workspace"
	"github.com/urfave/cli/v2"
)

func (a *App) watch(ctx *cli.Context) error {
	dir := a.root
	if ctx.NArg() > 0 {
		abs, err := filepath.Abs(ctx.Args().First())
		if err != nil {
			return err
		}
		dir = abs
	}

	d, err := workspace.NewDiscovery(a.logger, a.cfg.Discovery.CacheSize, a.cfg.Discovery.Concurrency)
	if err != nil {
		return err
	}

	// Prime the cache so the first change of a file can be compared.
	files, err := workspace.FindTestFiles(dir, a.cfg.IsTestFile)
	if err != nil {
		return err
	}
	found, err := d.DiscoverAll(ctx.Context, files)
	if err != nil {
		return err
	}
	total := 0
	for _, f := range found {
		total += len(f.Tests)
	}
	a.logger.Info().Int("files", len(found)).Int("tests", total).Msg("Initial discovery")

	sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := watch.New(a.logger, dir, d, a.cfg.IsTestFile, workspace.SkipDir, a.cfg.WatchDebounce)
	return w.Run(sigCtx, func(c watch.Change) {
		switch {
		case c.Removed:
			a.logger.Info().Str("file", a.rel(c.Path)).Msg("Test file removed")
		default:
			ids := make([]string, 0, len(c.Tests))
			for _, t := range c.Tests {
				ids = append(ids, t.ID)
			}
			a.logger.Info().Str("file", a.rel(c.Path)).Strs("tests", ids).Msg("Tests updated")
		}
	})
}
