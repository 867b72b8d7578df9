package workspace

import (
	"sync"

	"github.com/glubean/testbridge/model"
	"github.com/glubean/testbridge/tracestore"
)

// Session holds the state kept between runs: the last run and the trace
// cursors opened by the user.
type Session struct {
	mu          sync.Mutex
	lastRequest *Request
	lastRun     *model.RunRecord
	cursors     map[string]*tracestore.Cursor
}

func NewSession() *Session {
	return &Session{cursors: make(map[string]*tracestore.Cursor)}
}

func (s *Session) record(req Request, run model.RunRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRequest = &req
	s.lastRun = &run
}

// LastRun returns the record of the most recent run.
func (s *Session) LastRun() (model.RunRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun == nil {
		return model.RunRecord{}, false
	}
	return *s.lastRun, true
}

// LastRequest returns the most recent run request.
func (s *Session) LastRequest() (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRequest == nil {
		return Request{}, false
	}
	return *s.lastRequest, true
}

// Cursor returns the trace cursor of a test, creating it from load on first
// use or when reset is set. The cursor outlives a single call so hosts and the
// interactive traces browser can step through history one trace at a time.
func (s *Session) Cursor(file, testID string, reset bool, load func() ([]model.TraceArtifact, error)) (*tracestore.Cursor, error) {
	key := file + "\x00" + testID

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.cursors[key]; ok && !reset {
		return c, nil
	}
	traces, err := load()
	if err != nil {
		return nil, err
	}
	c := tracestore.NewCursor(traces)
	s.cursors[key] = c
	return c, nil
}
