package debug

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod/lib/cdp"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Attachment is a live debugger connection.
type Attachment interface {
	// Done is closed when the debugger connection ends.
	Done() <-chan struct{}
	// Detach closes the connection. It is safe to call more than once.
	Detach() error
}

// Attacher connects a debugger to an inspector websocket URL and lets the
// paused runner continue.
type Attacher interface {
	Attach(ctx context.Context, wsURL string) (Attachment, error)
}

// CDPAttacher attaches over the Chrome DevTools Protocol.
type CDPAttacher struct {
	Logger zerolog.Logger
	Dialer *websocket.Dialer
}

// wsConn adapts a gorilla websocket connection to the cdp client transport.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsConn) Send(msg []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, msg)
}

func (w *wsConn) Read() ([]byte, error) {
	_, msg, err := w.conn.ReadMessage()
	return msg, err
}

type cdpAttachment struct {
	logger zerolog.Logger
	conn   *websocket.Conn
	done   chan struct{}
	once   sync.Once
	err    error
}

func (a *cdpAttachment) Done() <-chan struct{} {
	return a.done
}

func (a *cdpAttachment) Detach() error {
	a.once.Do(func() {
		a.err = a.conn.Close()
	})
	return a.err
}

// Attach dials the inspector, enables the runtime domain and resumes the
// runner past its initial pause.
func (c CDPAttacher) Attach(ctx context.Context, wsURL string) (Attachment, error) {
	dialer := c.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to inspector %s: %w", wsURL, err)
	}

	client := cdp.New().Start(&wsConn{conn: conn})
	att := &cdpAttachment{
		logger: c.Logger,
		conn:   conn,
		done:   make(chan struct{}),
	}

	// The client closes its event channel once the connection drops. Events
	// must be drained or the client blocks.
	go func() {
		defer close(att.done)
		for ev := range client.Event() {
			c.Logger.Trace().Str("method", ev.Method).Msg("Inspector event")
		}
		c.Logger.Debug().Str("url", wsURL).Msg("Debugger connection closed")
	}()

	for _, method := range []string{"Runtime.enable", "Runtime.runIfWaitingForDebugger"} {
		if _, err := client.Call(ctx, "", method, nil); err != nil {
			_ = att.Detach()
			<-att.done
			return nil, fmt.Errorf("%s failed: %w", method, err)
		}
	}

	c.Logger.Debug().Str("url", wsURL).Msg("Debugger attached")
	return att, nil
}
