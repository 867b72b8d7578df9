package tracestore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/glubean/testbridge/model"
)

// Cursor navigates a newest-first trace listing. Position 0 is the newest.
type Cursor struct {
	traces []model.TraceArtifact
	pos    int
}

// NewCursor creates a cursor positioned on the newest trace.
func NewCursor(traces []model.TraceArtifact) *Cursor {
	return &Cursor{traces: traces}
}

// Len returns the number of traces.
func (c *Cursor) Len() int {
	return len(c.traces)
}

// Current returns the trace under the cursor, or nil for an empty listing.
func (c *Cursor) Current() *model.TraceArtifact {
	if len(c.traces) == 0 {
		return nil
	}
	return &c.traces[c.pos]
}

// Older moves one trace back in time. It reports false at the oldest trace.
func (c *Cursor) Older() bool {
	if c.pos+1 >= len(c.traces) {
		return false
	}
	c.pos++
	return true
}

// Newer moves one trace forward in time. It reports false at the newest trace.
func (c *Cursor) Newer() bool {
	if c.pos == 0 {
		return false
	}
	c.pos--
	return true
}

// Select moves the cursor to the trace named by arg: "0" is the newest, "-1"
// the one before it, and so on. Anything else is matched as a prefix of the
// trace timestamp.
func (c *Cursor) Select(arg string) error {
	if len(c.traces) == 0 {
		return fmt.Errorf("no traces found")
	}

	parsed, err := strconv.ParseInt(arg, 10, 64)
	if err == nil && parsed <= 0 {
		index := int(-parsed)
		if index >= len(c.traces) {
			return fmt.Errorf("index %s out of range (only %d traces)", arg, len(c.traces))
		}
		c.pos = index
		return nil
	}

	for i, t := range c.traces {
		if strings.HasPrefix(t.Timestamp, arg) {
			c.pos = i
			return nil
		}
	}
	if err == nil {
		// Positive numbers that match no timestamp.
		return fmt.Errorf("invalid index: %s (use 0 for the newest trace, -1 for the one before, etc.)", arg)
	}
	return fmt.Errorf("no trace found matching: %s", arg)
}
