package workspace

// controller.go plans and executes runs: it turns a run request into runner
// invocations, reconciles each result artifact with the discovered tests and
// reports states to a sink.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/glubean/testbridge/apply"
	"github.com/glubean/testbridge/config"
	"github.com/glubean/testbridge/debug"
	"github.com/glubean/testbridge/history"
	"github.com/glubean/testbridge/model"
	"github.com/glubean/testbridge/reconcile"
	"github.com/glubean/testbridge/runner"
	"github.com/glubean/testbridge/tracestore"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// canceledMessage is reported on tests whose run the caller canceled.
const canceledMessage = "run canceled"

// Request selects what to run.
type Request struct {
	File    string        // Source file
	TestIDs []string      // Declared IDs to run; empty runs the whole file
	Mode    model.RunMode // Run or debug
	PickKey string        // Example key for test.pick groups (optional)
	Output  io.Writer     // Live runner output (optional)
}

// Options configures a controller.
type Options struct {
	Root   string
	Config *config.Config
	// Debug collaborators; nil selects the HTTP inspector and CDP attacher.
	Inspector debug.Inspector
	Attacher  debug.Attacher
	// Persist run records under <root>/.glubean/runs.
	SaveHistory bool
}

// Controller runs tests of one workspace. Runs are sequential; a controller
// must not execute two runs at once.
type Controller struct {
	logger    zerolog.Logger
	opts      Options
	cfg       *config.Config
	discovery *Discovery
	traces    *tracestore.Store
	session   *Session
}

// NewController creates a controller for the workspace at opts.Root.
func NewController(logger zerolog.Logger, opts Options) (*Controller, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	discovery, err := NewDiscovery(logger, cfg.Discovery.CacheSize, cfg.Discovery.Concurrency)
	if err != nil {
		return nil, err
	}

	return &Controller{
		logger:    logger,
		opts:      opts,
		cfg:       cfg,
		discovery: discovery,
		traces:    tracestore.New(logger, opts.Root),
		session:   NewSession(),
	}, nil
}

// Discovery returns the controller's discovery cache.
func (c *Controller) Discovery() *Discovery {
	return c.discovery
}

// Session returns the state kept across runs.
func (c *Controller) Session() *Session {
	return c.session
}

// Traces returns the trace store of the workspace.
func (c *Controller) Traces() *tracestore.Store {
	return c.traces
}

// TraceCursor returns the session's trace cursor for a test. The listing is
// loaded on first use and reloaded when reset is set.
func (c *Controller) TraceCursor(file, testID string, reset bool) (*tracestore.Cursor, error) {
	return c.session.Cursor(file, testID, reset, func() ([]model.TraceArtifact, error) {
		return c.traces.All(file, testID)
	})
}

// Run executes a request and reports every selected test to sink. It returns
// an error when the request itself is invalid; runner failures are reported
// on the affected tests.
func (c *Controller) Run(ctx context.Context, req Request, sink apply.StateSink) (*model.RunRecord, error) {
	if req.Mode == "" {
		req.Mode = model.RunModeRun
	}
	file, err := filepath.Abs(req.File)
	if err != nil {
		return nil, err
	}
	req.File = file

	descriptors, err := c.discovery.Discover(file)
	if err != nil {
		return nil, err
	}
	selected, err := selectTests(descriptors, req.TestIDs)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no tests found in %s", file)
	}

	rec := &model.RunRecord{
		ID:        uuid.New().String(),
		Mode:      req.Mode,
		Timestamp: time.Now(),
		File:      file,
		TestIDs:   req.TestIDs,
		States:    make(map[string]model.TestState),
	}
	if c.opts.Root != "" {
		if g, err := history.GitInfo(c.opts.Root); err == nil {
			rec.Git = g
		}
	}
	tap := &stateTap{inner: sink, states: rec.States}
	logger := c.logger.With().Str("run", rec.ID[:8]).Str("file", filepath.Base(file)).Logger()

	for _, d := range selected {
		tap.TestState(d.ID, apply.Outcome{State: model.StateQueued})
	}

	start := time.Now()
	switch {
	case req.Mode == model.RunModeDebug:
		c.runDebug(ctx, logger, req, selected, tap, rec)
	case len(req.TestIDs) == 0:
		c.invoke(ctx, logger, req, runner.Invocation{File: file}, selected, tap, rec)
	default:
		for i, d := range selected {
			if ctx.Err() != nil {
				skipAll(tap, selected[i:], canceledMessage)
				break
			}
			c.invoke(ctx, logger, req, runner.ForTest(file, d.ID, req.PickKey), selected[i:i+1], tap, rec)
		}
	}
	rec.Duration = time.Since(start)

	c.session.record(req, *rec)
	if c.opts.SaveHistory && c.opts.Root != "" {
		if _, err := history.Save(c.opts.Root, *rec); err != nil {
			logger.Warn().Err(err).Msg("Failed to save run record")
		}
	}

	logger.Info().Dur("duration", rec.Duration).Int("tests", len(selected)).Msg("Run finished")
	return rec, nil
}

// RerunLast repeats the most recent request.
func (c *Controller) RerunLast(ctx context.Context, sink apply.StateSink) (*model.RunRecord, error) {
	req, ok := c.session.LastRequest()
	if !ok {
		return nil, errors.New("no previous run")
	}
	return c.Run(ctx, req, sink)
}

// invoke runs one runner process for the given tests and reports them.
func (c *Controller) invoke(ctx context.Context, logger zerolog.Logger, req Request, inv runner.Invocation, tests []model.TestDescriptor, sink apply.StateSink, rec *model.RunRecord) {
	inv.EnvFile = c.cfg.EnvFile
	inv.TraceLimit = c.cfg.TraceLimit
	ids := testIDs(tests)
	argv := append(append([]string{}, c.cfg.RunnerCommand...), runner.BuildArgs(inv)...)
	ir := model.InvocationRecord{Args: argv}
	defer func() { rec.Invocations = append(rec.Invocations, ir) }()

	for _, id := range ids {
		sink.TestState(id, apply.Outcome{State: model.StateRunning})
	}

	resultPath := runner.ResultPath(inv.File)
	if err := runner.RemoveResultArtifact(resultPath); err != nil {
		ir.Error = err.Error()
		apply.Errored(sink, ids, err)
		return
	}

	logger.Info().Str("command", runner.CommandLine(argv)).Msg("Running")
	res, err := runner.Execute(ctx, logger, runner.Command{
		Name:    argv[0],
		Args:    argv[1:],
		Dir:     c.opts.Root,
		Output:  req.Output,
		Timeout: c.cfg.RunTimeout,
		Group:   true,
	})
	if err != nil {
		ir.Error = err.Error()
		apply.Errored(sink, ids, err)
		return
	}
	ir.ExitCode = res.ExitCode
	ir.Terminated = res.Terminated

	artifact, err := runner.ReadResultArtifact(resultPath)
	if err != nil {
		switch {
		case res.Terminated && res.Reason == runner.ReasonCanceled:
			skipAll(sink, tests, canceledMessage)
			return
		case res.Terminated:
			apply.Errored(sink, ids, fmt.Errorf("run %s", res.Reason))
			return
		}
		logger.Warn().Err(err).Int("exit_code", res.ExitCode).Msg("Falling back to exit code")
		apply.FromExitCode(sink, ids, res.ExitCode, res.Stderr)
		return
	}
	ir.HasArtifact = true

	c.applyArtifact(logger, sink, tests, artifact)
}

// runDebug debugs the first selected test; the rest of the batch is skipped.
func (c *Controller) runDebug(ctx context.Context, logger zerolog.Logger, req Request, tests []model.TestDescriptor, sink apply.StateSink, rec *model.RunRecord) {
	target := tests[0]
	skipAll(sink, tests[1:], "only one test can be debugged at a time")

	inv := runner.ForTest(req.File, target.ID, req.PickKey)
	inv.EnvFile = c.cfg.EnvFile
	inv.TraceLimit = c.cfg.TraceLimit
	ir := model.InvocationRecord{Args: append(append([]string{}, c.cfg.RunnerCommand...), runner.BuildArgs(inv)...)}
	defer func() { rec.Invocations = append(rec.Invocations, ir) }()

	sink.TestState(target.ID, apply.Outcome{State: model.StateRunning})

	dc := c.cfg.Debug
	s := debug.NewSession(logger, debug.Options{
		Runner:       c.cfg.RunnerCommand,
		Dir:          c.opts.Root,
		Invocation:   inv,
		Output:       req.Output,
		PortBase:     dc.PortBase,
		PollInterval: dc.PollInterval,
		PollTimeout:  dc.PollTimeout,
		Timeout:      dc.Timeout,
		Grace:        dc.Grace,
		KillDelay:    dc.KillDelay,
		Inspector:    c.opts.Inspector,
		Attacher:     c.opts.Attacher,
		OnState: func(st debug.State) {
			logger.Debug().Str("state", st.String()).Msg("Debug state")
		},
	})

	outcome, err := s.Run(ctx)
	if outcome != nil && outcome.Process != nil {
		ir.ExitCode = outcome.Process.ExitCode
		ir.Terminated = outcome.Process.Terminated
	}
	if err != nil {
		ir.Error = err.Error()
		// Only a session ended by the caller is a cancellation. Sessions that
		// ended any other way without a result stay errors.
		if outcome != nil && outcome.Reason == debug.Canceled {
			skipAll(sink, tests[:1], canceledMessage)
			return
		}
		apply.Errored(sink, []string{target.ID}, err)
		return
	}
	ir.HasArtifact = true

	c.applyArtifact(logger, sink, tests[:1], outcome.Artifact)
}

func (c *Controller) applyArtifact(logger zerolog.Logger, sink apply.StateSink, tests []model.TestDescriptor, artifact *model.ResultArtifact) {
	matches := reconcile.Match(testIDs(tests), artifact.Tests)
	if rest := reconcile.Unclaimed(matches, artifact.Tests); len(rest) > 0 {
		logger.Debug().Int("unclaimed", len(rest)).Msg("Result entries without a matching test")
	}
	apply.Apply(sink, tests, matches)
}

// selectTests returns the descriptors named by ids in declaration order, or all
// descriptors when ids is empty.
func selectTests(descriptors []model.TestDescriptor, ids []string) ([]model.TestDescriptor, error) {
	if len(ids) == 0 {
		return descriptors, nil
	}

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	var selected []model.TestDescriptor
	for _, d := range descriptors {
		if want[d.ID] {
			selected = append(selected, d)
			delete(want, d.ID)
		}
	}
	for _, id := range ids {
		if want[id] {
			return nil, fmt.Errorf("unknown test: %s", id)
		}
	}
	return selected, nil
}

func testIDs(tests []model.TestDescriptor) []string {
	ids := make([]string, 0, len(tests))
	for _, d := range tests {
		ids = append(ids, d.ID)
	}
	return ids
}

func skipAll(sink apply.StateSink, tests []model.TestDescriptor, reason string) {
	for _, d := range tests {
		sink.TestState(d.ID, apply.Outcome{State: model.StateSkipped, Messages: []apply.Message{{Text: reason}}})
	}
}

// stateTap forwards to a sink while keeping the last state of every test.
type stateTap struct {
	inner  apply.StateSink
	states map[string]model.TestState
}

func (t *stateTap) TestState(testID string, outcome apply.Outcome) {
	t.states[testID] = outcome.State
	t.inner.TestState(testID, outcome)
}

func (t *stateTap) StepState(testID, step string, outcome apply.Outcome) {
	t.inner.StepState(testID, step, outcome)
}

func (t *stateTap) AppendOutput(testID, line string) {
	t.inner.AppendOutput(testID, line)
}
