package runner

import (
	"io"
	"sync"

	"github.com/acarl005/stripansi"
	"github.com/rs/zerolog"
)

// maxPendingEscape caps how many bytes of an unfinished escape sequence are
// held back waiting for the next chunk.
const maxPendingEscape = 64

// liveSink serializes writes from the stdout and stderr copy goroutines. A
// failing sink is logged once and then ignored so output capture continues.
type liveSink struct {
	logger zerolog.Logger
	mu     sync.Mutex
	w      io.Writer
	failed bool
}

func (s *liveSink) write(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed || text == "" {
		return
	}
	if _, err := io.WriteString(s.w, text); err != nil {
		s.failed = true
		s.logger.Warn().Err(err).Msg("Live output failed, output is still captured")
	}
}

// liveWriter strips the color codes the runner emits with --pretty from one
// stream. An escape sequence split across two reads is held until it is
// complete.
type liveWriter struct {
	sink    *liveSink
	pending []byte
}

// NewLiveOutput wraps a live-output sink into one writer per stream of a
// process. Both are nil when w is nil.
func NewLiveOutput(logger zerolog.Logger, w io.Writer) (stdout, stderr io.Writer) {
	if w == nil {
		return nil, nil
	}
	sink := &liveSink{logger: logger, w: w}
	return &liveWriter{sink: sink}, &liveWriter{sink: sink}
}

// Write never fails: a broken sink must not stop the copy into the capture
// buffers.
func (lw *liveWriter) Write(p []byte) (int, error) {
	data := append(lw.pending, p...)
	cut := incompleteEscape(data)
	lw.pending = append([]byte(nil), data[cut:]...)
	lw.sink.write(stripansi.Strip(string(data[:cut])))
	return len(p), nil
}

// incompleteEscape returns the offset of an unfinished escape sequence at the
// end of data, or len(data) when there is none.
func incompleteEscape(data []byte) int {
	start := len(data) - maxPendingEscape
	if start < 0 {
		start = 0
	}
	for i := len(data) - 1; i >= start; i-- {
		if data[i] != 0x1b {
			continue
		}
		rest := data[i+1:]
		if len(rest) == 0 {
			return i
		}
		if rest[0] != '[' {
			return len(data)
		}
		// CSI: parameter and intermediate bytes until a final byte in 0x40-0x7e.
		for _, b := range rest[1:] {
			if b >= 0x40 && b <= 0x7e {
				return len(data)
			}
			if b < 0x20 || b > 0x3f {
				return len(data)
			}
		}
		return i
	}
	return len(data)
}
