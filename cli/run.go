package cli

// This file contains the run and debug commands.

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glubean/testbridge/apply"
	"github.com/glubean/testbridge/model"
	"github.com/glubean/testbridge/workspace"
	"github.com/urfave/cli/v2"
)

func (a *App) run(ctx *cli.Context) error {
	return a.runMode(ctx, model.RunModeRun)
}

func (a *App) debug(ctx *cli.Context) error {
	return a.runMode(ctx, model.RunModeDebug)
}

func (a *App) runMode(ctx *cli.Context, mode model.RunMode) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("expected exactly one source file")
	}
	if ctx.IsSet("timeout") {
		a.cfg.RunTimeout = ctx.Duration("timeout")
	}

	req := workspace.Request{
		File:    ctx.Args().First(),
		TestIDs: ctx.StringSlice("test"),
		Mode:    mode,
		PickKey: ctx.String("pick"),
	}
	if !ctx.Bool("quiet") {
		req.Output = os.Stderr
	}
	return a.execute(ctx.Context, req, !ctx.Bool("no-history"))
}

// execute runs a request until it finishes or the user interrupts it, then
// prints the report.
func (a *App) execute(parent context.Context, req workspace.Request, saveHistory bool) error {
	c, err := a.controller(saveHistory)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec := apply.NewRecorder()
	run, err := c.Run(ctx, req, rec)
	if err != nil {
		return err
	}

	a.printReport(run, rec)
	if failed := countFailed(rec); failed > 0 {
		return cli.Exit(fmt.Sprintf("%d test(s) did not pass", failed), 1)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return cli.Exit("run interrupted", 130)
	}
	return nil
}

func countFailed(rec *apply.Recorder) int {
	failed := 0
	for _, o := range rec.States() {
		if o.State == model.StateFailed || o.State == model.StateErrored {
			failed++
		}
	}
	return failed
}

func formatDuration(ms float64) string {
	if ms <= 0 {
		return ""
	}
	return (time.Duration(ms * float64(time.Millisecond))).Round(time.Millisecond).String()
}
