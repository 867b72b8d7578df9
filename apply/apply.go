package apply

// apply.go projects reconciled runner results onto a host test tree.

import (
	"fmt"
	"strings"

	"github.com/glubean/testbridge/model"
	"github.com/glubean/testbridge/reconcile"
)

// StderrTailLines is the number of stderr lines kept when a run produced no
// result artifact.
const StderrTailLines = 20

// Message is a failure message attached to a test or step.
type Message struct {
	Text     string `json:"text"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
}

// Outcome is the state reported for a test or a step.
type Outcome struct {
	State      model.TestState `json:"state"`
	DurationMs float64         `json:"durationMs,omitempty"`
	Messages   []Message       `json:"messages,omitempty"`
}

// StateSink receives test and step states. Implementations are owned by the
// host (an IDE test tree, the CLI report, ...).
type StateSink interface {
	TestState(testID string, outcome Outcome)
	StepState(testID, step string, outcome Outcome)
	AppendOutput(testID, line string)
}

// Apply reports the claims of every descriptor. matches must be parallel to
// descriptors, as returned by reconcile.Match.
func Apply(sink StateSink, descriptors []model.TestDescriptor, matches reconcile.MatchSet) {
	for i, d := range descriptors {
		var claimed []model.TestResult
		if i < len(matches) {
			claimed = matches[i]
		}
		applyOne(sink, d, claimed)
	}
}

func applyOne(sink StateSink, d model.TestDescriptor, claimed []model.TestResult) {
	if len(claimed) == 0 {
		sink.TestState(d.ID, Outcome{State: model.StateSkipped})
		for _, step := range d.Steps {
			sink.StepState(d.ID, step, Outcome{State: model.StateSkipped})
		}
		return
	}

	outcome := Outcome{State: model.StatePassed}
	steps := newStepTracker(d.Steps)
	multi := len(claimed) > 1

	for _, entry := range claimed {
		outcome.DurationMs += entry.DurationMs
		if !entry.Success {
			outcome.State = model.StateFailed
		}

		msgs := walkEvents(sink, d.ID, entry, steps)
		if entry.Success {
			continue
		}
		if len(msgs) == 0 {
			msgs = []Message{{Text: "test failed"}}
		}
		for _, m := range msgs {
			if multi {
				m.Text = entry.TestID + ": " + m.Text
			}
			outcome.Messages = append(outcome.Messages, m)
		}
	}

	steps.report(sink, d.ID)
	sink.TestState(d.ID, outcome)
}

// walkEvents forwards log output, attributes events to steps and returns the
// failure messages of one entry.
func walkEvents(sink StateSink, testID string, entry model.TestResult, steps *stepTracker) []Message {
	var msgs []Message
	current := ""

	for _, ev := range entry.Events {
		switch ev.Type {
		case model.EventStepStart:
			current = ev.Step
			steps.start(current)
		case model.EventStepEnd:
			name := ev.Step
			if name == "" {
				name = current
			}
			steps.end(name, ev.Failed())
			current = ""
		case model.EventLog, model.EventWarning:
			sink.AppendOutput(testID, ev.Message)
		}

		msg, ok := failureMessage(ev)
		if !ok {
			continue
		}
		msgs = append(msgs, msg)
		if current != "" {
			steps.fail(current, msg)
		}
	}
	return msgs
}

func failureMessage(ev model.Event) (Message, bool) {
	switch ev.Type {
	case model.EventAssertion, model.EventSchemaValidation:
		if !ev.Failed() {
			return Message{}, false
		}
		text := ev.Message
		if text == "" {
			text = "assertion failed"
		}
		return Message{Text: text, Expected: raw(ev.Expected), Actual: raw(ev.Actual)}, true
	case model.EventError:
		text := ev.Message
		if text == "" {
			text = "error"
		}
		return Message{Text: text}, true
	}
	return Message{}, false
}

func raw(b []byte) string {
	return strings.TrimSpace(string(b))
}

// Errored marks every test in ids as errored with err. It is used for spawn
// failures and debug handshake errors, where no result can exist.
func Errored(sink StateSink, ids []string, err error) {
	for _, id := range ids {
		sink.TestState(id, Outcome{
			State:    model.StateErrored,
			Messages: []Message{{Text: err.Error()}},
		})
	}
}

// FromExitCode reports ids from the runner exit code alone. It is the fallback
// for ordinary runs whose result artifact is missing or unreadable.
func FromExitCode(sink StateSink, ids []string, exitCode int, stderr string) {
	outcome := Outcome{State: model.StatePassed}
	if exitCode != 0 {
		text := fmt.Sprintf("runner exited with code %d", exitCode)
		if tail := Tail(stderr, StderrTailLines); tail != "" {
			text += "\n" + tail
		}
		outcome = Outcome{State: model.StateFailed, Messages: []Message{{Text: text}}}
	}
	for _, id := range ids {
		sink.TestState(id, outcome)
	}
}

// Tail returns the last n non-empty lines of s.
func Tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
