package runner

// process.go contains the process handle shared by ordinary runs and debug
// sessions. A handle owns its child process for the whole run: cancellation,
// timeouts and normal completion all go through Terminate and Wait, which are
// safe to call any number of times.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// TerminatedExitCode is reported for processes stopped by a signal (128 + SIGTERM).
	TerminatedExitCode = 143

	// DefaultKillDelay is how long a signaled process gets before it is killed.
	DefaultKillDelay = 2 * time.Second

	// OutputDrainDelay bounds how long output is still read after the child
	// exits. Descendants that inherited stdout/stderr cannot keep the handle
	// open past it.
	OutputDrainDelay = 500 * time.Millisecond
)

// Reasons recorded by Supervise.
const (
	ReasonCanceled = "canceled"
	ReasonTimeout  = "timeout"
)

// Command describes a process to start.
type Command struct {
	Name    string        // Binary to execute
	Args    []string      // Arguments for the binary
	Dir     string        // Working directory
	Env     []string      // Extra environment, appended to the current environment
	Output  io.Writer     // Live output sink (optional)
	Timeout time.Duration // Terminate after this long (0 defers to the caller's context)
	// Group starts the process in its own process group so termination also
	// reaches the processes it spawns.
	Group bool
}

// Argv returns the binary followed by its arguments.
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

// Result is the settled outcome of a process.
type Result struct {
	ExitCode   int
	Stdout     string
	Stderr     string
	Terminated bool          // Process was signaled by Terminate
	Reason     string        // Why Terminate was called ("canceled", "timeout", ...)
	Duration   time.Duration // Wall time from start to exit
}

// Process is the handle of a running child process.
type Process struct {
	logger  zerolog.Logger
	cmd     *exec.Cmd
	group   bool
	started time.Time

	stdout bytes.Buffer
	stderr bytes.Buffer

	done    chan struct{}
	waitErr error
	exited  time.Time

	termOnce   sync.Once
	mu         sync.Mutex
	signaled   bool
	reason     string
	settleOnce sync.Once
	settles    int
	result     *Result
}

// Start spawns the command. The only error it returns is a failure to spawn.
func Start(logger zerolog.Logger, c Command) (*Process, error) {
	if c.Name == "" {
		return nil, errors.New("command name is required")
	}

	cmd := exec.Command(c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.WaitDelay = OutputDrainDelay

	p := &Process{
		logger: logger,
		cmd:    cmd,
		group:  c.Group,
		done:   make(chan struct{}),
	}

	liveOut, liveErr := NewLiveOutput(logger, c.Output)
	if liveOut != nil {
		cmd.Stdout = io.MultiWriter(&p.stdout, liveOut)
		cmd.Stderr = io.MultiWriter(&p.stderr, liveErr)
	} else {
		cmd.Stdout = &p.stdout
		cmd.Stderr = &p.stderr
	}
	if c.Group {
		setProcessGroup(cmd)
	}

	logger.Debug().
		Str("binary", c.Name).
		Strs("args", c.Args).
		Str("dir", c.Dir).
		Bool("group", c.Group).
		Msg("Starting process")

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", c.Name, err)
	}
	p.started = time.Now()

	go func() {
		p.waitErr = cmd.Wait()
		p.exited = time.Now()
		close(p.done)
	}()

	return p, nil
}

// Pid returns the process ID of the child.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Done is closed once the process has exited and its output is drained, or
// OutputDrainDelay after the exit when a descendant keeps the output open.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Exited reports whether the process has exited.
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Terminate stops the process unless it exits on its own within grace. It
// sends SIGTERM (to the whole group for grouped processes) and escalates to
// SIGKILL after killAfter. Only the first call has an effect; later calls block
// until the first one has finished and return.
func (p *Process) Terminate(reason string, grace, killAfter time.Duration) {
	p.termOnce.Do(func() {
		p.mu.Lock()
		p.reason = reason
		p.mu.Unlock()

		if p.waitFor(grace) {
			return
		}

		p.mu.Lock()
		p.signaled = true
		p.mu.Unlock()

		p.logger.Debug().Int("pid", p.Pid()).Str("reason", reason).Msg("Terminating process")
		if err := signalProcess(p.cmd.Process, p.group, false); err != nil {
			p.logger.Debug().Err(err).Int("pid", p.Pid()).Msg("Failed to signal process")
		}
		if p.waitFor(killAfter) {
			return
		}

		p.logger.Warn().Int("pid", p.Pid()).Dur("after", killAfter).Msg("Process ignored SIGTERM, killing")
		if err := signalProcess(p.cmd.Process, p.group, true); err != nil {
			p.logger.Debug().Err(err).Int("pid", p.Pid()).Msg("Failed to kill process")
		}
		<-p.done
	})
}

// waitFor waits up to d for the process to exit and reports whether it did.
func (p *Process) waitFor(d time.Duration) bool {
	if d <= 0 {
		return p.Exited()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.done:
		return true
	case <-t.C:
		return false
	}
}

// Supervise waits for the process while honoring cancellation of ctx and an
// optional timeout, then settles. It never fails: a canceled or timed out
// process resolves with a terminated exit code.
func (p *Process) Supervise(ctx context.Context, timeout, killAfter time.Duration) *Result {
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	select {
	case <-p.done:
	case <-ctx.Done():
		p.Terminate(ReasonCanceled, 0, killAfter)
	case <-expired:
		p.Terminate(ReasonTimeout, 0, killAfter)
	}
	return p.Wait()
}

// Wait blocks until the process exits and returns its settled result. The
// result is computed once and shared by every caller.
func (p *Process) Wait() *Result {
	<-p.done
	p.settleOnce.Do(func() {
		p.settles++
		p.result = p.buildResult()
		p.logger.Debug().
			Int("pid", p.Pid()).
			Int("exit_code", p.result.ExitCode).
			Bool("terminated", p.result.Terminated).
			Dur("duration", p.result.Duration).
			Msg("Process settled")
	})
	return p.result
}

func (p *Process) buildResult() *Result {
	p.mu.Lock()
	signaled, reason := p.signaled, p.reason
	p.mu.Unlock()

	r := &Result{
		Stdout:     p.stdout.String(),
		Stderr:     p.stderr.String(),
		Terminated: signaled,
		Reason:     reason,
		Duration:   p.exited.Sub(p.started),
	}

	// ErrWaitDelay means the child exited but a descendant still held its
	// output; the exit status is the child's own.
	var exitErr *exec.ExitError
	switch {
	case p.waitErr == nil:
		r.ExitCode = 0
	case errors.As(p.waitErr, &exitErr):
		r.ExitCode = exitErr.ExitCode()
	case p.cmd.ProcessState != nil:
		if errors.Is(p.waitErr, exec.ErrWaitDelay) {
			p.logger.Debug().Int("pid", p.Pid()).Msg("Output still held by a descendant after exit")
		}
		r.ExitCode = p.cmd.ProcessState.ExitCode()
	default:
		r.ExitCode = -1
	}

	// A signaled process reports -1; a process that traps SIGTERM may exit 0.
	// Either way the caller must see a failure.
	if r.ExitCode == -1 || (signaled && r.ExitCode == 0) {
		r.ExitCode = TerminatedExitCode
	}
	return r
}

// Execute starts the command and waits for it under ctx. It returns an error
// only when the process could not be spawned.
func Execute(ctx context.Context, logger zerolog.Logger, c Command) (*Result, error) {
	p, err := Start(logger, c)
	if err != nil {
		return nil, err
	}
	return p.Supervise(ctx, c.Timeout, DefaultKillDelay), nil
}
