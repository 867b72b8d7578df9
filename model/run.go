package model

import "time"

// RunMode represents how a run was executed
type RunMode string

const (
	RunModeRun   RunMode = "run"
	RunModeDebug RunMode = "debug"
)

// TestState is the state reported for a test or step
type TestState string

const (
	StateQueued  TestState = "queued"
	StateRunning TestState = "running"
	StatePassed  TestState = "passed"
	StateFailed  TestState = "failed"
	StateSkipped TestState = "skipped"
	StateErrored TestState = "errored"
)

// RunRecord represents a single run request against one source file.
type RunRecord struct {
	// Unique ID for this run (UUID)
	ID string `json:"id"`
	// Mode of the run (run or debug)
	Mode RunMode `json:"mode"`
	// Timestamp when the run started
	Timestamp time.Time `json:"timestamp"`
	// Source file the run targeted
	File string `json:"file"`
	// Test IDs that were requested (empty for a whole-file run)
	TestIDs []string `json:"test_ids,omitempty"`
	// Duration of the whole run
	Duration time.Duration `json:"duration"`
	// Invocations issued to the runner, in order
	Invocations []InvocationRecord `json:"invocations,omitempty"`
	// Final state of every requested test, keyed by test ID
	States map[string]TestState `json:"states,omitempty"`
	// Repository state when the run started (omitted outside git)
	Git *Git `json:"git,omitempty"`
}

// Git represents git repository information
type Git struct {
	Commit string `json:"commit"`
	Branch string `json:"branch"`
}

// InvocationRecord describes one runner process started for a run.
type InvocationRecord struct {
	// Command-line arguments (including the runner binary)
	Args []string `json:"args"`
	// Exit code of the runner process
	ExitCode int `json:"exit_code"`
	// Whether the process was terminated by cancellation or timeout
	Terminated bool `json:"terminated,omitempty"`
	// Whether the result artifact was read successfully
	HasArtifact bool `json:"has_artifact"`
	// Error that prevented a result (spawn failure, debug handshake, ...)
	Error string `json:"error,omitempty"`
}
