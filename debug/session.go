package debug

// session.go drives a single breakpoint-debug run: choose a port, launch the
// runner paused, find the inspector, attach, then wait for whichever of
// process exit, debugger detach, timeout or cancellation comes first.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/glubean/testbridge/model"
	"github.com/glubean/testbridge/runner"
	"github.com/rs/zerolog"
)

// EnvDebugPort carries the inspector port to the runner's execution harness.
const EnvDebugPort = "GLUBEAN_DEBUG_PORT"

const (
	DefaultTimeout   = 5 * time.Minute
	DefaultGrace     = 1 * time.Second
	DefaultKillDelay = 2 * time.Second
)

// State is a step of the debug session lifecycle.
type State int

const (
	Idle State = iota
	PortSearch
	ProcessLaunch
	InspectorPoll
	DebuggerAttach
	Running
	Terminating
	Ended
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PortSearch:
		return "port-search"
	case ProcessLaunch:
		return "process-launch"
	case InspectorPoll:
		return "inspector-poll"
	case DebuggerAttach:
		return "debugger-attach"
	case Running:
		return "running"
	case Terminating:
		return "terminating"
	case Ended:
		return "ended"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}

// EndReason records which signal ended the session.
type EndReason string

const (
	ProcessExited    EndReason = "process-exited"
	DebuggerDetached EndReason = "debugger-detached"
	TimedOut         EndReason = "timeout"
	Canceled         EndReason = "canceled"
	HandshakeFailed  EndReason = "handshake-failed"
)

// Options configures a debug session.
type Options struct {
	Runner     []string          // Runner argv prefix, e.g. ["glubean"]
	Dir        string            // Working directory of the runner
	Invocation runner.Invocation // What to run
	Output     io.Writer         // Live output sink (optional)

	PortBase     int
	PollInterval time.Duration
	PollTimeout  time.Duration
	Timeout      time.Duration // Safety bound on the whole session
	Grace        time.Duration // Time allowed for a natural exit before signaling
	KillDelay    time.Duration // Time between SIGTERM and SIGKILL

	Inspector Inspector
	Attacher  Attacher
	OnState   func(State)
}

// Outcome is the settled result of a debug session.
type Outcome struct {
	Port     int
	Reason   EndReason
	Process  *runner.Result
	Artifact *model.ResultArtifact
}

// Session runs one debug session. A Session is single use.
type Session struct {
	logger zerolog.Logger
	opts   Options

	mu    sync.Mutex
	state State

	settleOnce sync.Once
}

// NewSession creates a session, filling unset options with defaults.
func NewSession(logger zerolog.Logger, opts Options) *Session {
	if len(opts.Runner) == 0 {
		opts.Runner = []string{"glubean"}
	}
	if opts.PortBase <= 0 {
		opts.PortBase = DefaultPortBase
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	if opts.KillDelay <= 0 {
		opts.KillDelay = DefaultKillDelay
	}
	if opts.Inspector == nil {
		opts.Inspector = HTTPInspector{}
	}
	if opts.Attacher == nil {
		opts.Attacher = CDPAttacher{Logger: logger}
	}

	return &Session{
		logger: logger.With().Str("file", opts.Invocation.File).Logger(),
		opts:   opts,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()

	s.logger.Debug().Str("state", st.String()).Msg("Debug session state")
	if s.opts.OnState != nil {
		s.opts.OnState(st)
	}
}

// Run executes the session. The returned outcome is non-nil whenever the
// runner was started. A session that ends without a result artifact returns
// an error wrapping runner.ErrNoResult.
func (s *Session) Run(ctx context.Context) (*Outcome, error) {
	s.setState(PortSearch)
	port, err := FindFreePort(s.opts.PortBase)
	if err != nil {
		s.setState(Ended)
		return nil, err
	}
	outcome := &Outcome{Port: port}

	s.setState(ProcessLaunch)
	resultPath := runner.ResultPath(s.opts.Invocation.File)
	if err := runner.RemoveResultArtifact(resultPath); err != nil {
		s.setState(Ended)
		return nil, err
	}

	argv := append(append([]string{}, s.opts.Runner...), runner.BuildArgs(s.opts.Invocation)...)
	s.logger.Info().Int("port", port).Str("command", runner.CommandLine(argv)).Msg("Launching debug session")

	proc, err := runner.Start(s.logger, runner.Command{
		Name:   argv[0],
		Args:   argv[1:],
		Dir:    s.opts.Dir,
		Env:    []string{EnvDebugPort + "=" + strconv.Itoa(port)},
		Output: s.opts.Output,
		Group:  true,
	})
	if err != nil {
		s.setState(Ended)
		return nil, err
	}

	// Every path below ends in settle, which owns process cleanup.
	var attachment Attachment
	defer func() {
		s.settle(proc, attachment, outcome, HandshakeFailed, 0)
	}()

	s.setState(InspectorPoll)
	wsURL, err := PollDebuggerURL(ctx, s.opts.Inspector, port, s.opts.PollInterval, s.opts.PollTimeout, proc.Done())
	if err != nil {
		reason := HandshakeFailed
		if ctx.Err() != nil {
			reason = Canceled
		}
		s.settle(proc, nil, outcome, reason, 0)
		return outcome, fmt.Errorf("debug handshake failed: %w", err)
	}

	s.setState(DebuggerAttach)
	attachment, err = s.opts.Attacher.Attach(ctx, wsURL)
	if err != nil {
		reason := HandshakeFailed
		if ctx.Err() != nil {
			reason = Canceled
		}
		s.settle(proc, nil, outcome, reason, 0)
		return outcome, fmt.Errorf("failed to attach debugger: %w", err)
	}

	s.setState(Running)
	reason := s.race(ctx, proc, attachment)
	s.logger.Debug().Str("reason", string(reason)).Msg("Debug session ending")

	s.settle(proc, attachment, outcome, reason, s.opts.Grace)

	artifact, err := runner.ReadResultArtifact(resultPath)
	if err != nil {
		return outcome, err
	}
	outcome.Artifact = artifact
	return outcome, nil
}

// race waits for the first of the session's terminal signals.
func (s *Session) race(ctx context.Context, proc *runner.Process, attachment Attachment) EndReason {
	timer := time.NewTimer(s.opts.Timeout)
	defer timer.Stop()

	select {
	case <-proc.Done():
		return ProcessExited
	case <-attachment.Done():
		return DebuggerDetached
	case <-timer.C:
		return TimedOut
	case <-ctx.Done():
		return Canceled
	}
}

// settle terminates the process, detaches the debugger and records the outcome.
// Only the first call has an effect.
func (s *Session) settle(proc *runner.Process, attachment Attachment, outcome *Outcome, reason EndReason, grace time.Duration) {
	s.settleOnce.Do(func() {
		s.setState(Terminating)
		proc.Terminate(string(reason), grace, s.opts.KillDelay)
		if attachment != nil {
			if err := attachment.Detach(); err != nil {
				s.logger.Debug().Err(err).Msg("Failed to detach debugger")
			}
		}

		outcome.Reason = reason
		outcome.Process = proc.Wait()
		s.setState(Ended)
	})
}

// IsHandshakeError reports whether err came from the debug handshake rather
// than from the test run itself.
func IsHandshakeError(err error) bool {
	return errors.Is(err, ErrNoFreePort) || errors.Is(err, ErrInspectorTimeout) || errors.Is(err, ErrProcessExited)
}
