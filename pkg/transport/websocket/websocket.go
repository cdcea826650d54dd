// Package websocket implements transport.Transport as a JSON event bridge over
// a WebSocket connection.
//
// A call opens one connection. The client sends a "start" command carrying
// the target and variable values, then receives event frames of the form
//
//	{"type":"message","message":{"type":"transcript","transcriptType":"final","role":"user","transcript":"..."}}
//
// until it sends "stop" or the peer closes. A connection that drops without
// being stopped is reported as a [transport.EventFault].
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/MrWong99/prepwise/pkg/transport"
)

const defaultCloseTimeout = 5 * time.Second

// ErrStoppedWhileDialing is returned by Start when Stop was called before the
// connection was established.
var ErrStoppedWhileDialing = errors.New("call stopped while dialling")

// command is an outgoing control frame.
type command struct {
	Action         string               `json:"action"`
	WorkflowID     string               `json:"workflowId,omitempty"`
	Assistant      *transport.Assistant `json:"assistant,omitempty"`
	VariableValues map[string]string    `json:"variableValues,omitempty"`
}

// Option is a functional option for [New].
type Option func(*Transport)

// WithAPIKey sends apiKey as a bearer token when dialling.
func WithAPIKey(apiKey string) Option {
	return func(t *Transport) {
		if apiKey != "" {
			t.header.Set("Authorization", "Bearer "+apiKey)
		}
	}
}

// WithHeader adds a header to the dial request.
func WithHeader(key, value string) Option {
	return func(t *Transport) { t.header.Add(key, value) }
}

// WithCloseTimeout bounds how long a stopped connection may take to finish
// its close handshake in the background.
func WithCloseTimeout(d time.Duration) Option {
	return func(t *Transport) { t.closeTimeout = d }
}

// Transport implements transport.Transport over WebSocket.
type Transport struct {
	transport.Hub

	url          string
	header       http.Header
	closeTimeout time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	dial   *pendingDial
}

// pendingDial is a Start that has not connected yet.
type pendingDial struct {
	cancel context.CancelFunc
}

// New creates a Transport that dials rawURL for every call. rawURL must use
// the ws or wss scheme.
func New(rawURL string, opts ...Option) (*Transport, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("websocket: parse url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("websocket: url scheme must be ws or wss, got %q", u.Scheme)
	}
	t := &Transport{
		url:          rawURL,
		header:       make(http.Header),
		closeTimeout: defaultCloseTimeout,
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Start dials the bridge and sends the start command. Events are dispatched
// from a background receive loop until the call ends. The dial runs without
// holding the transport lock, so [Transport.Stop] can abort it.
func (t *Transport) Start(ctx context.Context, target transport.Target, vars map[string]string) error {
	t.mu.Lock()
	if t.conn != nil || t.dial != nil {
		t.mu.Unlock()
		return transport.ErrAlreadyStarted
	}
	dialCtx, cancelDial := context.WithCancel(ctx)
	defer cancelDial()
	d := &pendingDial{cancel: cancelDial}
	t.dial = d
	t.mu.Unlock()

	conn, err := t.open(dialCtx, command{
		Action:         "start",
		WorkflowID:     target.WorkflowID,
		Assistant:      target.Assistant,
		VariableValues: vars,
	})

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dial != d {
		// Stopped while dialling.
		if conn != nil {
			go conn.Close(websocket.StatusNormalClosure, "call stopped")
		}
		return fmt.Errorf("websocket: %w", ErrStoppedWhileDialing)
	}
	t.dial = nil
	if err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	t.conn = conn
	t.cancel = cancel
	go t.receiveLoop(loopCtx, conn)
	return nil
}

// open dials the bridge and sends start.
func (t *Transport) open(ctx context.Context, start command) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, t.url, &websocket.DialOptions{HTTPHeader: t.header})
	if err != nil {
		return nil, fmt.Errorf("websocket: dial: %w", err)
	}
	if err := writeJSON(ctx, conn, start); err != nil {
		conn.Close(websocket.StatusInternalError, "start failed")
		return nil, fmt.Errorf("websocket: send start: %w", err)
	}
	return conn, nil
}

// Stop sends the stop command and closes the connection. A dial still in
// progress is cancelled. The close handshake completes in the background so
// Stop may be called from an event handler.
func (t *Transport) Stop(ctx context.Context) error {
	t.mu.Lock()
	conn, cancel, d := t.conn, t.cancel, t.dial
	t.conn, t.cancel, t.dial = nil, nil, nil
	t.mu.Unlock()

	if d != nil {
		d.cancel()
	}
	if conn == nil {
		return nil
	}

	err := writeJSON(ctx, conn, command{Action: "stop"})
	go func() {
		defer cancel()
		done := make(chan struct{})
		go func() {
			conn.Close(websocket.StatusNormalClosure, "call stopped")
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(t.closeTimeout):
		}
	}()
	if err != nil {
		return fmt.Errorf("websocket: send stop: %w", err)
	}
	return nil
}

// detach clears conn if it is still the active connection.
func (t *Transport) detach(conn *websocket.Conn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != conn {
		return false
	}
	t.cancel()
	t.conn, t.cancel = nil, nil
	return true
}

func (t *Transport) receiveLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil || !t.detach(conn) {
				return
			}
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				slog.Debug("call bridge closed the connection")
				return
			}
			t.Emit(transport.Event{
				Type:  transport.EventFault,
				Error: &transport.ErrorPayload{Message: "connection disconnected: " + err.Error()},
			})
			return
		}

		evt, err := decodeEvent(data)
		if err != nil {
			slog.Debug("dropping malformed call event", "err", err)
			continue
		}
		t.Emit(evt)
	}
}

// decodeEvent parses an event frame. An error payload may also arrive as a
// bare string.
func decodeEvent(data []byte) (transport.Event, error) {
	var raw struct {
		Type    transport.EventType `json:"type"`
		Message *transport.Message  `json:"message"`
		Error   json.RawMessage     `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return transport.Event{}, err
	}
	if raw.Type == "" {
		return transport.Event{}, errors.New("missing event type")
	}

	evt := transport.Event{Type: raw.Type, Message: raw.Message}
	if len(raw.Error) > 0 && string(raw.Error) != "null" {
		var p transport.ErrorPayload
		if err := json.Unmarshal(raw.Error, &p); err != nil {
			var s string
			if err := json.Unmarshal(raw.Error, &s); err != nil {
				return transport.Event{}, fmt.Errorf("decode error payload: %w", err)
			}
			p.Message = s
		}
		evt.Error = &p
	}
	return evt, nil
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

var _ transport.Transport = (*Transport)(nil)
