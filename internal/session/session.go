// Package session drives a single voice-interview call: it starts and stops
// the call transport, folds transport events into a call status and an
// ordered transcript, and runs the end-of-call flow exactly once.
//
// In [ModeGenerate] the end-of-call flow infers interview parameters from the
// conversation and stores an interview. In [ModeStructured] it asks the
// [FeedbackService] for feedback and navigates to it.
//
// Event handlers are serialized by one mutex. Work that may block (saving,
// feedback, stopping the transport) runs outside the lock, and event-driven
// work runs on background goroutines that [Session.Wait] waits for.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/MrWong99/prepwise/internal/interview"
	"github.com/MrWong99/prepwise/internal/observe"
	"github.com/MrWong99/prepwise/internal/transcript"
	"github.com/MrWong99/prepwise/internal/utterance"
	"github.com/MrWong99/prepwise/pkg/transport"
)

// Sentinel errors.
var (
	// ErrInvalidTransition is returned when an operation is not allowed in
	// the current status.
	ErrInvalidTransition = errors.New("session: invalid transition")

	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session: closed")
)

// User-visible texts.
const (
	MsgDisconnected    = "Call disconnected: Session ended unexpectedly"
	NoticeDisconnected = "Call disconnected. Please try again later."
	NoticeCallError    = "Call error. Please try again."
	NoticeSaveFailed   = "Failed to save interview"
	MsgConnectionError = "Connection error. Please try again."
)

// RouteHome is where the user is sent after a call.
const RouteHome = "/"

// FeedbackRoute returns the route of the feedback page of an interview.
func FeedbackRoute(interviewID string) string {
	return "/interview/" + interviewID + "/feedback"
}

const (
	defaultHomeDelay   = 2 * time.Second
	defaultStopTimeout = 5 * time.Second
)

// disconnectMarkers identify errors that mean the remote side ended the call.
var disconnectMarkers = []string{
	"meeting ended due to ejection",
	"meeting has ended",
	"disconnected",
}

// connectionMarkers identify environment faults of the connection itself.
var connectionMarkers = []string{"websocket", "network"}

func containsAny(msg string, markers []string) bool {
	lower := strings.ToLower(msg)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// IsDisconnect reports whether msg describes the call being ended by the
// remote side. Matching is case-insensitive.
func IsDisconnect(msg string) bool {
	return containsAny(msg, disconnectMarkers)
}

// Navigator moves the user to another page.
type Navigator interface {
	Navigate(route string)
}

// Notifier shows a short, non-blocking notice to the user.
type Notifier interface {
	Notify(msg string)
}

// Inferrer derives interview parameters from a conversation.
type Inferrer interface {
	Infer(utterances []transcript.Utterance) (interview.Request, bool)
}

// Saver stores an interview built from a request and its questions.
type Saver interface {
	Persist(ctx context.Context, req interview.Request, questions []string) (string, error)
}

// FeedbackService produces feedback for a finished interview and returns the
// feedback id.
type FeedbackService interface {
	Generate(ctx context.Context, interviewID, userID string, utterances []transcript.Utterance) (string, error)
}

// Config configures a [Session].
type Config struct {
	// ID identifies the session in logs and snapshots.
	ID string

	Mode Mode

	// UserName and UserID identify the caller. UserID is the owner of any
	// stored interview; without it nothing is saved.
	UserName string
	UserID   string

	// InterviewID and Questions are used in ModeStructured.
	InterviewID string
	Questions   []string

	// WorkflowID is the remote workflow run in ModeGenerate.
	WorkflowID string

	// Assistant overrides [Interviewer] in ModeStructured.
	Assistant *transport.Assistant

	// Transport carries the call. Required.
	Transport transport.Transport

	// Inferrer defaults to a plain [utterance.Classifier].
	Inferrer  Inferrer
	Saver     Saver
	Feedback  FeedbackService
	Navigator Navigator
	Notifier  Notifier

	// Metrics defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics

	// HomeDelay is the pause between the end of a generate call and the
	// navigation home. Defaults to 2s.
	HomeDelay time.Duration

	// StopTimeout bounds each transport stop request. Defaults to 5s.
	StopTimeout time.Duration
}

// Session is one call view. All methods are safe for concurrent use.
type Session struct {
	cfg     Config
	log     *slog.Logger
	metrics *observe.Metrics

	mu        sync.Mutex
	status    Status
	errMsg    string
	speaking  bool
	conv      transcript.Log
	call      uint64 // incremented by every StartCall
	settled   bool   // end-of-call flow claimed for the current call
	closed    bool
	savedID   string
	redirect  string
	notices   []string
	homeTimer *time.Timer

	unsubscribe func()
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// New creates a session in [StatusInactive] and subscribes it to the
// transport.
func New(cfg Config) *Session {
	if cfg.HomeDelay <= 0 {
		cfg.HomeDelay = defaultHomeDelay
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = defaultStopTimeout
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.Inferrer == nil {
		cfg.Inferrer = utterance.New(nil)
	}
	s := &Session{
		cfg:     cfg,
		log:     slog.With("session_id", cfg.ID, "mode", cfg.Mode.String()),
		metrics: cfg.Metrics,
	}
	s.unsubscribe = cfg.Transport.Subscribe(s.HandleEvent)
	s.metrics.ActiveSessions.Add(context.Background(), 1)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.cfg.ID }

// Mode returns the session mode.
func (s *Session) Mode() Mode { return s.cfg.Mode }

// setStatusLocked moves to status to. Must be called with s.mu held.
func (s *Session) setStatusLocked(to Status) {
	from := s.status
	s.status = to
	s.metrics.RecordTransition(context.Background(), from.String(), to.String())
	s.log.Debug("call status changed", "from", from, "to", to)
}

// StartCall begins a new call. It is only valid while no call is in
// progress. A transport start failure moves the session to StatusError and
// is returned.
func (s *Session) StartCall(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	switch s.status {
	case StatusInactive, StatusFinished, StatusError:
	default:
		st := s.status
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot start a call while %s", ErrInvalidTransition, st)
	}
	s.setStatusLocked(StatusConnecting)
	s.call++
	s.errMsg = ""
	s.speaking = false
	s.settled = false
	s.savedID = ""
	s.redirect = ""
	s.conv.Reset()
	if s.homeTimer != nil {
		s.homeTimer.Stop()
		s.homeTimer = nil
	}
	target, vars := s.target()
	s.mu.Unlock()

	if err := s.cfg.Transport.Start(ctx, target, vars); err != nil {
		s.mu.Lock()
		if !s.closed && s.status == StatusConnecting {
			s.setStatusLocked(StatusError)
			s.errMsg = "Failed to start call: " + err.Error()
		}
		s.mu.Unlock()
		s.log.Error("failed to start call", "err", err)
		return fmt.Errorf("session: start call: %w", err)
	}
	s.log.Info("call starting")
	return nil
}

func (s *Session) target() (transport.Target, map[string]string) {
	if s.cfg.Mode == ModeStructured {
		a := Interviewer()
		if s.cfg.Assistant != nil {
			a = *s.cfg.Assistant
		}
		return transport.Target{Assistant: &a},
			map[string]string{"questions": FormatQuestions(s.cfg.Questions)}
	}
	return transport.Target{WorkflowID: s.cfg.WorkflowID},
		map[string]string{"username": s.cfg.UserName, "userid": s.cfg.UserID}
}

// EndCall ends the call at the user's request: the session moves to
// StatusFinished, the end-of-call flow runs on the caller's goroutine and
// the transport is asked to stop.
func (s *Session) EndCall(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	switch s.status {
	case StatusConnecting, StatusActive, StatusError:
	default:
		st := s.status
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot end a call while %s", ErrInvalidTransition, st)
	}
	s.setStatusLocked(StatusFinished)
	fl := s.claimLocked(StatusFinished)
	s.mu.Unlock()

	s.log.Info("call ended by user")
	s.runFinish(context.WithoutCancel(ctx), fl)
	s.stopTransport()
	return nil
}

// Close tears the session down: it unsubscribes from the transport, asks it
// to stop once, and turns every later event into a no-op. In-flight saves
// are not cancelled. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.homeTimer != nil {
		s.homeTimer.Stop()
		s.homeTimer = nil
	}
	unsubscribe := s.unsubscribe
	s.mu.Unlock()

	unsubscribe()
	s.stopOnce.Do(s.stopTransport)
	s.metrics.ActiveSessions.Add(context.Background(), -1)
	s.log.Info("session closed")
}

// Wait blocks until all background work started by events has finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) goTracked(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *Session) stopTransport() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.StopTimeout)
	defer cancel()
	if err := s.cfg.Transport.Stop(ctx); err != nil {
		s.log.Warn("failed to stop call transport", "err", err)
	}
}

// HandleEvent applies a transport event. It is registered with the
// transport by [New] and may also be called directly, e.g. for faults
// observed outside the transport.
func (s *Session) HandleEvent(ev transport.Event) {
	switch ev.Type {
	case transport.EventCallStart:
		s.onCallStart()
	case transport.EventCallEnd:
		s.onCallEnd()
	case transport.EventMessage:
		if ev.Message != nil {
			s.onMessage(*ev.Message)
		}
	case transport.EventSpeechStart:
		s.setSpeaking(true)
	case transport.EventSpeechEnd:
		s.setSpeaking(false)
	case transport.EventError:
		s.onError(ev.ErrorText())
	case transport.EventFault:
		s.ReportFault(ev.ErrorText())
	default:
		s.log.Debug("ignoring unknown transport event", "type", ev.Type)
	}
}

// ReportFault handles an environment-level failure. Faults that describe a
// remote disconnect are treated like a transport error. WebSocket and
// network faults move a call in progress to StatusError with
// [MsgConnectionError]. Anything else is ignored.
func (s *Session) ReportFault(msg string) {
	switch {
	case IsDisconnect(msg):
		s.onError(msg)
	case containsAny(msg, connectionMarkers):
		s.onConnectionFault(msg)
	default:
		s.log.Debug("ignoring fault", "msg", msg)
	}
}

func (s *Session) onConnectionFault(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	switch s.status {
	case StatusConnecting, StatusActive, StatusError:
	default:
		return
	}
	s.setStatusLocked(StatusError)
	s.speaking = false
	s.errMsg = MsgConnectionError
	s.metrics.RecordTransportError(context.Background(), "connection")
	s.log.Error("call connection fault", "msg", msg)
}

func (s *Session) onCallStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.status != StatusConnecting {
		return
	}
	s.setStatusLocked(StatusActive)
	s.errMsg = ""
	s.log.Info("call started")
}

func (s *Session) onMessage(m transport.Message) {
	if !m.IsFinalTranscript() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || (s.status != StatusConnecting && s.status != StatusActive) {
		return
	}
	s.conv.AppendMessage(m)
}

func (s *Session) setSpeaking(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.speaking = v
}

func (s *Session) onCallEnd() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	switch s.status {
	case StatusConnecting, StatusActive, StatusError:
	default:
		s.mu.Unlock()
		return
	}
	s.setStatusLocked(StatusFinished)
	s.speaking = false
	fl := s.claimLocked(StatusFinished)
	s.mu.Unlock()

	s.log.Info("call ended")
	s.goTracked(func() { s.runFinish(context.Background(), fl) })
}

func (s *Session) onError(msg string) {
	disconnect := IsDisconnect(msg)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	switch s.status {
	case StatusConnecting, StatusActive, StatusError:
	default:
		s.mu.Unlock()
		s.log.Debug("ignoring transport error outside a call", "msg", msg)
		return
	}
	s.setStatusLocked(StatusError)
	s.speaking = false
	call := s.call
	var fl finishFlow
	if disconnect {
		s.errMsg = MsgDisconnected
		fl = s.claimLocked(StatusError)
	} else {
		s.errMsg = "Error: " + msg
	}
	s.mu.Unlock()

	ctx := context.Background()
	if !disconnect {
		s.metrics.RecordTransportError(ctx, "generic")
		s.log.Error("call error", "msg", msg)
		s.notify(call, NoticeCallError)
		return
	}

	s.metrics.RecordTransportError(ctx, "disconnect")
	s.log.Warn("call disconnected", "msg", msg)
	s.notify(call, NoticeDisconnected)
	if fl.kind == flowSave {
		s.goTracked(func() { s.save(ctx, fl) })
	}
	s.goTracked(s.stopTransport)
}

// notify shows msg unless the session was closed or a newer call has
// started since call.
func (s *Session) notify(call uint64, msg string) {
	s.mu.Lock()
	if s.closed || s.call != call {
		s.mu.Unlock()
		return
	}
	s.notices = append(s.notices, msg)
	n := s.cfg.Notifier
	s.mu.Unlock()
	if n != nil {
		n.Notify(msg)
	}
}

// navigate redirects the user unless the session was closed or a newer call
// has started since call.
func (s *Session) navigate(call uint64, route string) {
	s.mu.Lock()
	if s.closed || s.call != call {
		s.mu.Unlock()
		return
	}
	s.redirect = route
	nav := s.cfg.Navigator
	s.mu.Unlock()
	s.log.Debug("navigating", "route", route)
	if nav != nil {
		nav.Navigate(route)
	}
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	ID           string                 `json:"id"`
	Mode         Mode                   `json:"mode"`
	Status       Status                 `json:"status"`
	ErrorMessage string                 `json:"errorMessage,omitempty"`
	IsSpeaking   bool                   `json:"isSpeaking"`
	Transcript   []transcript.Utterance `json:"transcript"`
	InterviewID  string                 `json:"interviewId,omitempty"`
	Redirect     string                 `json:"redirect,omitempty"`
	Notices      []string               `json:"notices,omitempty"`
}

// Snapshot returns the current state. The returned slices are copies.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	interviewID := s.savedID
	if s.cfg.Mode == ModeStructured {
		interviewID = s.cfg.InterviewID
	}
	return Snapshot{
		ID:           s.cfg.ID,
		Mode:         s.cfg.Mode,
		Status:       s.status,
		ErrorMessage: s.errMsg,
		IsSpeaking:   s.speaking,
		Transcript:   s.conv.Snapshot(),
		InterviewID:  interviewID,
		Redirect:     s.redirect,
		Notices:      append([]string(nil), s.notices...),
	}
}
