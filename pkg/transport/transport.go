// Package transport defines the CallTransport contract: the real-time voice
// call bridge that starts and stops calls and reports call lifecycle,
// transcript and error events to subscribers.
//
// Implementations dispatch events synchronously on their own goroutine, one at
// a time, in the order they were received. Handlers must not block for long.
package transport

import (
	"context"
	"errors"
)

// Sentinel errors.
var (
	// ErrUnavailable is returned by Start when no working transport could be
	// constructed.
	ErrUnavailable = errors.New("transport: unavailable")

	// ErrAlreadyStarted is returned by Start while a call is in progress.
	ErrAlreadyStarted = errors.New("transport: call already started")
)

// EventType names a transport event.
type EventType string

// Event types emitted by a transport.
const (
	EventCallStart   EventType = "call-start"
	EventCallEnd     EventType = "call-end"
	EventMessage     EventType = "message"
	EventSpeechStart EventType = "speech-start"
	EventSpeechEnd   EventType = "speech-end"
	EventError       EventType = "error"

	// EventFault reports an environment-level failure observed outside the
	// regular event stream, e.g. the underlying connection dropping.
	EventFault EventType = "fault"
)

// Message type and transcript type values that make a message actionable.
const (
	MessageTypeTranscript = "transcript"
	TranscriptTypeFinal   = "final"
	TranscriptTypePartial = "partial"
)

// Message is the payload of an [EventMessage].
type Message struct {
	Type           string `json:"type"`
	TranscriptType string `json:"transcriptType,omitempty"`
	Role           string `json:"role,omitempty"`
	Transcript     string `json:"transcript,omitempty"`
}

// IsFinalTranscript reports whether m carries a finished utterance.
func (m Message) IsFinalTranscript() bool {
	return m.Type == MessageTypeTranscript && m.TranscriptType == TranscriptTypeFinal
}

// ErrorPayload is the payload of [EventError] and [EventFault]. Producers use
// either field.
type ErrorPayload struct {
	Message  string `json:"message,omitempty"`
	ErrorMsg string `json:"errorMsg,omitempty"`
}

// Text returns Message, or ErrorMsg when Message is empty.
func (p ErrorPayload) Text() string {
	if p.Message != "" {
		return p.Message
	}
	return p.ErrorMsg
}

// Event is a single notification from the transport.
type Event struct {
	Type    EventType     `json:"type"`
	Message *Message      `json:"message,omitempty"`
	Error   *ErrorPayload `json:"error,omitempty"`
}

// ErrorText returns the error text of an error or fault event, or "".
func (e Event) ErrorText() string {
	if e.Error == nil {
		return ""
	}
	return e.Error.Text()
}

// Handler receives transport events.
type Handler func(Event)

// Target selects what the remote side runs for a call: either a pre-built
// workflow or an inline assistant. Exactly one should be set.
type Target struct {
	WorkflowID string     `json:"workflowId,omitempty"`
	Assistant  *Assistant `json:"assistant,omitempty"`
}

// Assistant describes an inline conversational agent. Strings may contain
// {{name}} placeholders that the remote side fills from the variable values
// passed to Start.
type Assistant struct {
	Name         string       `json:"name"`
	FirstMessage string       `json:"firstMessage"`
	SystemPrompt string       `json:"systemPrompt"`
	Transcriber  *Transcriber `json:"transcriber,omitempty"`
	Voice        *Voice       `json:"voice,omitempty"`
	Model        *Model       `json:"model,omitempty"`
}

// Transcriber selects the speech-to-text engine used by the remote side.
type Transcriber struct {
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
	Language string `json:"language,omitempty"`
}

// Voice selects the text-to-speech voice used by the remote side.
type Voice struct {
	Provider        string  `json:"provider"`
	VoiceID         string  `json:"voiceId"`
	Stability       float64 `json:"stability,omitempty"`
	SimilarityBoost float64 `json:"similarityBoost,omitempty"`
	Speed           float64 `json:"speed,omitempty"`
}

// Model selects the language model that drives the assistant.
type Model struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Transport is the real-time call bridge.
//
// Implementations must be safe for concurrent use.
type Transport interface {
	// Start begins a call against target. vars are substituted into the
	// target's placeholders by the remote side.
	Start(ctx context.Context, target Target, vars map[string]string) error

	// Stop ends the current call. Stopping when no call is running is a no-op.
	Stop(ctx context.Context) error

	// Subscribe registers h for all future events and returns a function that
	// removes it again. The returned function is idempotent.
	Subscribe(h Handler) (unsubscribe func())
}
