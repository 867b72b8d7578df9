package model

import "encoding/json"

// EventType identifies the kind of an execution event emitted by the runner.
type EventType string

const (
	EventLog              EventType = "log"
	EventTrace            EventType = "trace"
	EventAssertion        EventType = "assertion"
	EventWarning          EventType = "warning"
	EventSchemaValidation EventType = "schema_validation"
	EventMetric           EventType = "metric"
	EventStepStart        EventType = "step_start"
	EventStepEnd          EventType = "step_end"
	EventError            EventType = "error"
	EventStatus           EventType = "status"
)

// Event is one entry of a test's ordered event list. Only the fields relevant to
// the event type are populated; the raw payload is kept in Data.
type Event struct {
	Type EventType `json:"type"`
	// Free text carried by log, warning, error and assertion events
	Message string `json:"message,omitempty"`
	// Assertion outcome (assertion and schema_validation events)
	Passed *bool `json:"passed,omitempty"`
	// Expected and actual values of a failed assertion
	Expected json.RawMessage `json:"expected,omitempty"`
	Actual   json.RawMessage `json:"actual,omitempty"`
	// Step name (step_start and step_end events)
	Step string `json:"step,omitempty"`
	// Status reported by step_end and status events ("passed", "failed", ...)
	Status string `json:"status,omitempty"`
	// Metric name and value (metric events)
	Name  string   `json:"name,omitempty"`
	Value *float64 `json:"value,omitempty"`
	// HTTP request/response pair (trace events)
	Data json.RawMessage `json:"data,omitempty"`
}

// Failed reports whether the event records a failure.
func (e Event) Failed() bool {
	switch e.Type {
	case EventAssertion, EventSchemaValidation:
		return e.Passed != nil && !*e.Passed
	case EventError:
		return true
	case EventStepEnd, EventStatus:
		return e.Status == "failed" || e.Status == "error"
	}
	return false
}

// TestResult is a concrete executed-test record read from the result artifact.
type TestResult struct {
	// Concrete test ID (data-driven groups expand to one entry per row)
	TestID string `json:"testId"`
	// Display name reported by the runner
	TestName string `json:"testName"`
	// Whether the test passed
	Success bool `json:"success"`
	// Duration of the test in milliseconds
	DurationMs float64 `json:"durationMs"`
	// Ordered execution events
	Events []Event `json:"events,omitempty"`
}

// Summary contains the aggregate counters of a result artifact.
type Summary struct {
	Total      int     `json:"total"`
	Passed     int     `json:"passed"`
	Failed     int     `json:"failed"`
	Skipped    int     `json:"skipped"`
	DurationMs float64 `json:"durationMs"`
}

// ResultArtifact is the JSON document written by the runner next to the source file.
type ResultArtifact struct {
	Summary Summary      `json:"summary"`
	Tests   []TestResult `json:"tests"`
}
