package apply

import "sync"

// Recorder is a StateSink that keeps every reported state in memory.
type Recorder struct {
	mu     sync.Mutex
	tests  map[string]Outcome
	steps  map[string]map[string]Outcome
	output map[string][]string
	order  []string
}

func NewRecorder() *Recorder {
	return &Recorder{
		tests:  make(map[string]Outcome),
		steps:  make(map[string]map[string]Outcome),
		output: make(map[string][]string),
	}
}

func (r *Recorder) TestState(testID string, outcome Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tests[testID]; !ok {
		r.order = append(r.order, testID)
	}
	r.tests[testID] = outcome
}

func (r *Recorder) StepState(testID, step string, outcome Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.steps[testID] == nil {
		r.steps[testID] = make(map[string]Outcome)
	}
	r.steps[testID][step] = outcome
}

func (r *Recorder) AppendOutput(testID, line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.output[testID] = append(r.output[testID], line)
}

// Test returns the last state reported for a test.
func (r *Recorder) Test(testID string) (Outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.tests[testID]
	return o, ok
}

// Step returns the last state reported for a step.
func (r *Recorder) Step(testID, step string) (Outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.steps[testID][step]
	return o, ok
}

// Output returns the output lines of a test.
func (r *Recorder) Output(testID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.output[testID]...)
}

// TestIDs returns the reported test IDs in first-report order.
func (r *Recorder) TestIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// States returns the state of every reported test.
func (r *Recorder) States() map[string]Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Outcome, len(r.tests))
	for k, v := range r.tests {
		out[k] = v
	}
	return out
}
