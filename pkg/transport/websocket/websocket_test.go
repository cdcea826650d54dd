package websocket_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/MrWong99/prepwise/pkg/transport"
	wstransport "github.com/MrWong99/prepwise/pkg/transport/websocket"
)

// ── Helpers ───────────────────────────────────────────────────────────────────

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// startBridge launches a test call bridge. The server is closed when the test
// finishes.
func startBridge(t *testing.T, handler func(conn *websocket.Conn, r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "done")
		handler(conn, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Errorf("readJSON: %v", err)
		return
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Errorf("readJSON unmarshal: %v", err)
	}
}

func writeRaw(t *testing.T, conn *websocket.Conn, data string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, []byte(data)); err != nil {
		t.Logf("writeRaw: %v (may be expected on close)", err)
	}
}

func collect(tr transport.Transport) (<-chan transport.Event, func()) {
	ch := make(chan transport.Event, 32)
	unsub := tr.Subscribe(func(evt transport.Event) { ch <- evt })
	return ch, unsub
}

func next(t *testing.T, ch <-chan transport.Event) transport.Event {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
		return transport.Event{}
	}
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestNew_RejectsNonWebSocketURL(t *testing.T) {
	t.Parallel()
	if _, err := wstransport.New("http://example.com"); err == nil {
		t.Fatal("expected error for http scheme")
	}
	if _, err := wstransport.New("wss://bridge.example.com/calls"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStart_SendsCommandAndDispatchesEvents(t *testing.T) {
	t.Parallel()

	type startCmd struct {
		Action         string            `json:"action"`
		WorkflowID     string            `json:"workflowId"`
		VariableValues map[string]string `json:"variableValues"`
	}
	gotCmd := make(chan startCmd, 1)
	gotAuth := make(chan string, 1)

	srv := startBridge(t, func(conn *websocket.Conn, r *http.Request) {
		gotAuth <- r.Header.Get("Authorization")
		var cmd startCmd
		readJSON(t, conn, &cmd)
		gotCmd <- cmd

		writeRaw(t, conn, `{"type":"call-start"}`)
		writeRaw(t, conn, `{"type":"message","message":{"type":"transcript","transcriptType":"final","role":"user","transcript":"Hello"}}`)
		writeRaw(t, conn, `not json`)
		writeRaw(t, conn, `{"type":"error","error":"Meeting has ended"}`)
		writeRaw(t, conn, `{"type":"call-end"}`)
	})

	tr, err := wstransport.New(wsURL(srv), wstransport.WithAPIKey("secret"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	events, unsub := collect(tr)
	defer unsub()

	err = tr.Start(context.Background(), transport.Target{WorkflowID: "wf-1"}, map[string]string{"username": "Ada", "userid": "u1"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if auth := <-gotAuth; auth != "Bearer secret" {
		t.Errorf("Authorization = %q", auth)
	}
	cmd := <-gotCmd
	if cmd.Action != "start" || cmd.WorkflowID != "wf-1" {
		t.Errorf("unexpected start command: %+v", cmd)
	}
	if cmd.VariableValues["username"] != "Ada" || cmd.VariableValues["userid"] != "u1" {
		t.Errorf("unexpected variable values: %v", cmd.VariableValues)
	}

	if evt := next(t, events); evt.Type != transport.EventCallStart {
		t.Errorf("event 0 = %q, want call-start", evt.Type)
	}
	evt := next(t, events)
	if evt.Type != transport.EventMessage || evt.Message == nil || !evt.Message.IsFinalTranscript() {
		t.Fatalf("event 1 = %+v, want final transcript message", evt)
	}
	if evt.Message.Role != "user" || evt.Message.Transcript != "Hello" {
		t.Errorf("unexpected message: %+v", evt.Message)
	}
	evt = next(t, events)
	if evt.Type != transport.EventError || evt.ErrorText() != "Meeting has ended" {
		t.Errorf("event 2 = %+v, want error", evt)
	}
	if evt := next(t, events); evt.Type != transport.EventCallEnd {
		t.Errorf("event 3 = %q, want call-end", evt.Type)
	}

	// The bridge closed normally after call-end: no fault.
	select {
	case evt := <-events:
		t.Errorf("unexpected event after call-end: %+v", evt)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestStart_Twice(t *testing.T) {
	t.Parallel()

	srv := startBridge(t, func(conn *websocket.Conn, _ *http.Request) {
		<-conn.CloseRead(context.Background()).Done()
	})
	tr, err := wstransport.New(wsURL(srv))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := tr.Start(context.Background(), transport.Target{WorkflowID: "wf"}, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer tr.Stop(context.Background())

	err = tr.Start(context.Background(), transport.Target{WorkflowID: "wf"}, nil)
	if !errors.Is(err, transport.ErrAlreadyStarted) {
		t.Fatalf("second Start err = %v, want ErrAlreadyStarted", err)
	}
}

func TestStart_DialFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	tr, err := wstransport.New(wsURL(srv))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := tr.Start(context.Background(), transport.Target{WorkflowID: "wf"}, nil); err == nil {
		t.Fatal("expected dial error")
	}
	// A failed start leaves the transport reusable and stoppable.
	if err := tr.Stop(context.Background()); err != nil {
		t.Fatalf("Stop after failed start: %v", err)
	}
}

// silentListener accepts TCP connections and never answers the upgrade
// request. accepted receives one value per connection.
func silentListener(t *testing.T) (string, <-chan struct{}) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	accepted := make(chan struct{}, 4)
	var conns []net.Conn
	var mu sync.Mutex
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
			accepted <- struct{}{}
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})
	return "ws://" + ln.Addr().String(), accepted
}

func TestStop_AbortsPendingDial(t *testing.T) {
	t.Parallel()

	url, accepted := silentListener(t)
	tr, err := wstransport.New(url)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	startErr := make(chan error, 1)
	go func() {
		startErr <- tr.Start(startCtx, transport.Target{WorkflowID: "wf"}, nil)
	}()

	select {
	case <-accepted:
	case <-time.After(3 * time.Second):
		t.Fatal("dial never reached the listener")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer stopCancel()
	began := time.Now()
	if err := tr.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if elapsed := time.Since(began); elapsed > time.Second {
		t.Fatalf("Stop took %v while a dial was pending", elapsed)
	}

	select {
	case err := <-startErr:
		if !errors.Is(err, wstransport.ErrStoppedWhileDialing) {
			t.Fatalf("Start err = %v, want ErrStoppedWhileDialing", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}

	// The aborted start leaves the transport free for a new call.
	if err := tr.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestStart_WhileDialing(t *testing.T) {
	t.Parallel()

	url, accepted := silentListener(t)
	tr, err := wstransport.New(url)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Start(ctx, transport.Target{WorkflowID: "wf"}, nil)
	select {
	case <-accepted:
	case <-time.After(3 * time.Second):
		t.Fatal("dial never reached the listener")
	}

	err = tr.Start(context.Background(), transport.Target{WorkflowID: "wf"}, nil)
	if !errors.Is(err, transport.ErrAlreadyStarted) {
		t.Fatalf("Start while dialling err = %v, want ErrAlreadyStarted", err)
	}
	tr.Stop(context.Background())
}

func TestStop_SendsStopCommandWithoutFault(t *testing.T) {
	t.Parallel()

	gotStop := make(chan string, 1)
	srv := startBridge(t, func(conn *websocket.Conn, _ *http.Request) {
		var cmd map[string]any
		readJSON(t, conn, &cmd) // start
		readJSON(t, conn, &cmd)
		action, _ := cmd["action"].(string)
		gotStop <- action
	})

	tr, err := wstransport.New(wsURL(srv))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	events, unsub := collect(tr)
	defer unsub()

	if err := tr.Start(context.Background(), transport.Target{WorkflowID: "wf"}, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := tr.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	select {
	case action := <-gotStop:
		if action != "stop" {
			t.Errorf("action = %q, want stop", action)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("bridge never received stop")
	}

	select {
	case evt := <-events:
		t.Errorf("unexpected event after Stop: %+v", evt)
	case <-time.After(200 * time.Millisecond):
	}

	// Stopping again is a no-op.
	if err := tr.Stop(context.Background()); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestConnectionDrop_EmitsFault(t *testing.T) {
	t.Parallel()

	srv := startBridge(t, func(conn *websocket.Conn, _ *http.Request) {
		var cmd map[string]any
		readJSON(t, conn, &cmd)
		conn.Close(websocket.StatusInternalError, "bridge crashed")
	})

	tr, err := wstransport.New(wsURL(srv))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	events, unsub := collect(tr)
	defer unsub()

	if err := tr.Start(context.Background(), transport.Target{WorkflowID: "wf"}, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}

	evt := next(t, events)
	if evt.Type != transport.EventFault {
		t.Fatalf("event = %+v, want fault", evt)
	}
	if !strings.Contains(strings.ToLower(evt.ErrorText()), "disconnected") {
		t.Errorf("fault text %q should mention the disconnect", evt.ErrorText())
	}
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := startBridge(t, func(conn *websocket.Conn, _ *http.Request) {
		var cmd map[string]any
		readJSON(t, conn, &cmd)
		<-release
		writeRaw(t, conn, `{"type":"speech-start"}`)
		<-conn.CloseRead(context.Background()).Done()
	})

	tr, err := wstransport.New(wsURL(srv))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	events, unsub := collect(tr)
	unsub()
	unsub()

	if err := tr.Start(context.Background(), transport.Target{WorkflowID: "wf"}, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer tr.Stop(context.Background())
	close(release)

	select {
	case evt := <-events:
		t.Errorf("unsubscribed handler received %+v", evt)
	case <-time.After(200 * time.Millisecond):
	}
}
