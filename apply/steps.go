package apply

import "github.com/glubean/testbridge/model"

type stepResult struct {
	seen     bool
	failed   bool
	messages []Message
}

// stepTracker aggregates step states over every entry claimed by a test.
type stepTracker struct {
	order   []string
	results map[string]*stepResult
}

func newStepTracker(declared []string) *stepTracker {
	t := &stepTracker{results: make(map[string]*stepResult)}
	for _, s := range declared {
		t.get(s)
	}
	return t
}

func (t *stepTracker) get(name string) *stepResult {
	r, ok := t.results[name]
	if !ok {
		r = &stepResult{}
		t.results[name] = r
		t.order = append(t.order, name)
	}
	return r
}

func (t *stepTracker) start(name string) {
	t.get(name).seen = true
}

func (t *stepTracker) end(name string, failed bool) {
	r := t.get(name)
	r.seen = true
	if failed {
		r.failed = true
	}
}

func (t *stepTracker) fail(name string, msg Message) {
	r := t.get(name)
	r.failed = true
	r.messages = append(r.messages, msg)
}

// report emits one state per step; declared steps that never ran are skipped.
func (t *stepTracker) report(sink StateSink, testID string) {
	for _, name := range t.order {
		r := t.results[name]
		switch {
		case !r.seen:
			sink.StepState(testID, name, Outcome{State: model.StateSkipped})
		case r.failed:
			sink.StepState(testID, name, Outcome{State: model.StateFailed, Messages: r.messages})
		default:
			sink.StepState(testID, name, Outcome{State: model.StatePassed})
		}
	}
}
