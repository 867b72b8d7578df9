package debug

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

const (
	DefaultPollInterval = 200 * time.Millisecond
	DefaultPollTimeout  = 15 * time.Second
)

var (
	// ErrInspectorTimeout is returned when no debuggable target appeared in time.
	ErrInspectorTimeout = errors.New("inspector did not become ready")

	// ErrProcessExited is returned when the runner exits during the handshake.
	ErrProcessExited = errors.New("runner exited before the debugger attached")
)

// Target is one debuggable target listed by the inspector endpoint.
type Target struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	Title                string `json:"title"`
	URL                  string `json:"url"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// Inspector lists the debuggable targets exposed on a port.
type Inspector interface {
	Targets(ctx context.Context, port int) ([]Target, error)
}

// HTTPInspector queries the inspector's /json endpoint on the loopback interface.
type HTTPInspector struct {
	Client *http.Client
}

func (h HTTPInspector) Targets(ctx context.Context, port int) ([]Target, error) {
	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Second}
	}

	endpoint := "http://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(port)) + "/json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inspector returned %s", resp.Status)
	}

	var targets []Target
	if err := json.NewDecoder(resp.Body).Decode(&targets); err != nil {
		return nil, fmt.Errorf("failed to decode inspector targets: %w", err)
	}
	return targets, nil
}

// PollDebuggerURL polls the inspector until a target exposes a debugger URL.
// It gives up after timeout, when ctx is canceled, or when exited is closed.
// Request errors are expected while the runner is still starting and are
// retried.
func PollDebuggerURL(ctx context.Context, inspector Inspector, port int, interval, timeout time.Duration, exited <-chan struct{}) (string, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		targets, err := inspector.Targets(ctx, port)
		if err == nil {
			for _, t := range targets {
				if t.WebSocketDebuggerURL != "" {
					return t.WebSocketDebuggerURL, nil
				}
			}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-exited:
			return "", ErrProcessExited
		case <-deadline.C:
			return "", fmt.Errorf("%w after %s on port %d", ErrInspectorTimeout, timeout, port)
		case <-tick.C:
		}
	}
}
