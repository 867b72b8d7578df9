package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/glubean/testbridge/config"
	"github.com/glubean/testbridge/history"
	"github.com/glubean/testbridge/workspace"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const AppName = "testbridge"

type App struct {
	logger zerolog.Logger
	cli    *cli.App
	in     io.Reader
	out    io.Writer

	root string
	cfg  *config.Config
}

func New() *App {

	// Set default log level to info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger :=
		log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339Nano,
		})

	app := &App{
		logger: logger,
		in:     os.Stdin,
		out:    os.Stdout,
		cli: &cli.App{
			Name:  AppName,
			Usage: "Discover, run, debug and inspect glubean tests",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "verbose",
					Usage: "Enable verbose (debug) logging",
				},
				&cli.StringFlag{
					Name:  "root",
					Usage: "Workspace root (default: enclosing git repository or current directory)",
				},
				&cli.StringFlag{
					Name:    "config",
					Aliases: []string{"c"},
					Usage:   "Config file (default: <root>/" + config.File + ")",
				},
				&cli.StringSliceFlag{
					Name:  "runner",
					Usage: "Runner command, one flag per argv element (e.g. --runner npx --runner glubean)",
				},
				&cli.StringFlag{
					Name:  "env-file",
					Usage: "Environment file passed to the runner",
				},
				&cli.IntFlag{
					Name:  "trace-limit",
					Usage: "Maximum number of trace files kept per test",
				},
			},
		},
	}
	app.cli.Before = app.before

	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "discover",
		Usage:     "List the tests declared in source files",
		ArgsUsage: "[FILE...]",
		Action:    app.discover,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print descriptors as JSON",
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "run",
		Usage:     "Run the tests of a file",
		ArgsUsage: "FILE",
		Action:    app.run,
		Flags:     runFlags(),
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "debug",
		Usage:     "Run one test with the inspector enabled and a debugger attached",
		ArgsUsage: "FILE",
		Action:    app.debug,
		Flags:     runFlags(),
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "list",
		Usage:  "List previous runs",
		Action: app.list,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "path",
				Aliases: []string{"p"},
				Usage:   "Filter by source file path",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Limit number of results (default: 20)",
				Value:   20,
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:            "rerun",
		Usage:           "Repeat a previous run",
		ArgsUsage:       "[ID|INDEX]",
		Action:          app.rerun,
		SkipFlagParsing: true,
		Description: `Repeat a previous run with the same file, tests and mode.

Arguments:
  0           Repeat the last run (default)
  -1          Repeat the 2nd last run
  <id>        Repeat the run matching the ID prefix`,
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:  "traces",
		Usage: "Inspect saved request/response traces",
		Subcommands: []*cli.Command{
			{
				Name:            "list",
				Usage:           "List the traces of a test, or the two newest of a file",
				ArgsUsage:       "FILE [TEST]",
				Action:          app.tracesList,
				SkipFlagParsing: true,
			},
			{
				Name:            "view",
				Usage:           "Print a trace",
				ArgsUsage:       "FILE TEST [INDEX|TIMESTAMP]",
				Action:          app.tracesView,
				SkipFlagParsing: true,
				Description: `Print a trace of a test.

Arguments:
  0            Newest trace (default)
  -1           The trace before it
  <timestamp>  Trace whose timestamp starts with the given prefix`,
			},
			{
				Name:            "browse",
				Usage:           "Step through the traces of a test interactively",
				ArgsUsage:       "FILE TEST",
				Action:          app.tracesBrowse,
				SkipFlagParsing: true,
				Description: `Print the newest trace of a test, then read commands from stdin:

  o, older     Move to the previous trace
  n, newer     Move to the next trace
  <selector>   Jump to an index (0, -1, ...) or timestamp prefix
  q, quit      Stop browsing`,
			},
			{
				Name:            "diff",
				Usage:           "Diff two traces (default: the two newest)",
				ArgsUsage:       "FILE [TEST [FROM [TO]]]",
				Action:          app.tracesDiff,
				SkipFlagParsing: true,
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "watch",
		Usage:     "Rediscover tests whenever test files change",
		ArgsUsage: "[DIR]",
		Action:    app.watch,
	})
	return app
}

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "test",
			Aliases: []string{"t"},
			Usage:   "Declared test ID to run (repeatable, default: whole file)",
		},
		&cli.StringFlag{
			Name:  "pick",
			Usage: "Example key for test.pick groups",
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "Do not stream runner output",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Per-invocation timeout (0 waits until interrupted)",
		},
		&cli.BoolFlag{
			Name:  "no-history",
			Usage: "Do not record the run under .glubean/runs",
		},
	}
}

func (a *App) Run(args []string) error {
	return a.cli.Run(args)
}

// SetVersion sets the version information for the CLI application
func (a *App) SetVersion(version, commit, date string) {
	a.cli.Version = version
	if commit != "none" && len(commit) >= 8 {
		a.cli.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit[:8], date)
	}
}

// before sets up logging, locates the workspace and loads its configuration.
func (a *App) before(ctx *cli.Context) error {
	if ctx.Bool("verbose") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	dir := ctx.String("root")
	if dir == "" {
		dir = "."
	}
	root, err := history.FindRoot(dir)
	if err != nil {
		return fmt.Errorf("failed to determine workspace root: %w", err)
	}
	a.root = root

	path, required := ctx.String("config"), true
	if path == "" {
		path, required = config.Path(root), false
	}
	cfg, err := config.Load(path, required)
	if err != nil {
		return err
	}

	if runnerCmd := ctx.StringSlice("runner"); len(runnerCmd) > 0 {
		cfg.RunnerCommand = runnerCmd
	}
	if ctx.IsSet("env-file") {
		cfg.EnvFile = ctx.String("env-file")
	}
	if ctx.IsSet("trace-limit") {
		cfg.TraceLimit = ctx.Int("trace-limit")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.logger.Debug().Str("root", root).Strs("runner", cfg.RunnerCommand).Msg("Workspace")
	return nil
}

func (a *App) controller(saveHistory bool) (*workspace.Controller, error) {
	return workspace.NewController(a.logger, workspace.Options{
		Root:        a.root,
		Config:      a.cfg,
		SaveHistory: saveHistory,
	})
}
