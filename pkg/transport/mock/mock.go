// Package mock provides a test double for transport.Transport.
//
// Tests drive a session by calling Emit with the events a real call bridge
// would produce; Start and Stop invocations are recorded for assertions.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/prepwise/pkg/transport"
)

// StartCall records a single invocation of Start.
type StartCall struct {
	Target transport.Target
	Vars   map[string]string
}

// Transport is a mock implementation of transport.Transport. Emitted events
// are delivered synchronously on the caller's goroutine.
type Transport struct {
	transport.Hub

	mu sync.Mutex

	// StartErr, if non-nil, is returned by Start.
	StartErr error

	// StopErr, if non-nil, is returned by Stop.
	StopErr error

	// OnStart, if set, is called from Start after the call is recorded. Its
	// error replaces StartErr when non-nil. It may block.
	OnStart func(ctx context.Context) error

	// OnStop, if set, is called from Stop before it returns.
	OnStop func()

	startCalls []StartCall
	stopCalls  int
}

// Start records the call, runs OnStart and returns StartErr.
func (t *Transport) Start(ctx context.Context, target transport.Target, vars map[string]string) error {
	t.mu.Lock()
	cp := make(map[string]string, len(vars))
	for k, v := range vars {
		cp[k] = v
	}
	t.startCalls = append(t.startCalls, StartCall{Target: target, Vars: cp})
	err, hook := t.StartErr, t.OnStart
	t.mu.Unlock()
	if hook != nil {
		if herr := hook(ctx); herr != nil {
			return herr
		}
	}
	return err
}

// Stop records the call and returns StopErr.
func (t *Transport) Stop(context.Context) error {
	t.mu.Lock()
	t.stopCalls++
	err, hook := t.StopErr, t.OnStop
	t.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}

// StartCalls returns a copy of the recorded Start invocations.
func (t *Transport) StartCalls() []StartCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]StartCall, len(t.startCalls))
	copy(out, t.startCalls)
	return out
}

// StopCalls returns how often Stop was called.
func (t *Transport) StopCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopCalls
}

// EmitCallStart is shorthand for emitting a call-start event.
func (t *Transport) EmitCallStart() { t.Emit(transport.Event{Type: transport.EventCallStart}) }

// EmitCallEnd is shorthand for emitting a call-end event.
func (t *Transport) EmitCallEnd() { t.Emit(transport.Event{Type: transport.EventCallEnd}) }

// EmitTranscript emits a transcript message of the given transcript type.
func (t *Transport) EmitTranscript(role, transcriptType, text string) {
	t.Emit(transport.Event{
		Type: transport.EventMessage,
		Message: &transport.Message{
			Type:           transport.MessageTypeTranscript,
			TranscriptType: transcriptType,
			Role:           role,
			Transcript:     text,
		},
	})
}

// EmitFinal emits a final transcript message.
func (t *Transport) EmitFinal(role, text string) {
	t.EmitTranscript(role, transport.TranscriptTypeFinal, text)
}

// EmitError emits an error event with the given message.
func (t *Transport) EmitError(msg string) {
	t.Emit(transport.Event{Type: transport.EventError, Error: &transport.ErrorPayload{Message: msg}})
}

var _ transport.Transport = (*Transport)(nil)
