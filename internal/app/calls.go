package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/MrWong99/prepwise/internal/api"
	"github.com/MrWong99/prepwise/internal/config"
	"github.com/MrWong99/prepwise/internal/observe"
	"github.com/MrWong99/prepwise/internal/session"
	"github.com/MrWong99/prepwise/internal/techstack"
	"github.com/MrWong99/prepwise/internal/utterance"
	"github.com/MrWong99/prepwise/pkg/transport"
)

// CallManagerConfig holds all dependencies for a [CallManager].
type CallManagerConfig struct {
	// Transport returns the process-wide call transport. Required.
	Transport func() transport.Transport

	Saver    session.Saver
	Feedback session.FeedbackService
	Metrics  *observe.Metrics

	// Settings returns the interview settings applied to new calls. It is
	// consulted on every Open so reloaded settings take effect on the next
	// call. Nil means zero settings.
	Settings func() config.InterviewConfig

	// NewID generates call view ids. Defaults to random UUIDs.
	NewID func() string
}

// CallManager owns the single call view of the process. Opening a new view
// closes the previous one. All exported methods are safe for concurrent use.
type CallManager struct {
	cfg CallManagerConfig

	mu       sync.Mutex
	current  *session.Session
	starting *session.Session // current, until its StartCall returns
}

var _ api.Calls = (*CallManager)(nil)

// NewCallManager creates a CallManager with the given dependencies.
func NewCallManager(cfg CallManagerConfig) *CallManager {
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if cfg.Settings == nil {
		cfg.Settings = func() config.InterviewConfig { return config.InterviewConfig{} }
	}
	return &CallManager{cfg: cfg}
}

// Open replaces the current call view with a new one and starts its call.
// It returns [api.ErrCallInProgress] while the current view is starting,
// connecting or in a call. When the transport fails to start, the new view
// stays current and its snapshot is returned alongside the error.
//
// The transport is started without holding the manager lock, so Current, End
// and Close stay responsive while the call connects.
func (m *CallManager) Open(ctx context.Context, req api.CallRequest) (session.Snapshot, error) {
	m.mu.Lock()
	if m.current != nil {
		if m.starting == m.current || m.current.Snapshot().Status.InCall() {
			id := m.current.ID()
			m.mu.Unlock()
			return session.Snapshot{}, fmt.Errorf("%w (id=%s)", api.ErrCallInProgress, id)
		}
		m.current.Close()
		m.current = nil
	}

	s := session.New(m.sessionConfig(req))
	m.current = s
	m.starting = s
	m.mu.Unlock()

	slog.Info("call view opened",
		"session_id", s.ID(),
		"mode", req.Mode.String(),
		"user_id", req.UserID,
		"interview_id", req.InterviewID,
	)

	err := s.StartCall(ctx)

	m.mu.Lock()
	if m.starting == s {
		m.starting = nil
	}
	m.mu.Unlock()

	if err != nil {
		return s.Snapshot(), err
	}
	return s.Snapshot(), nil
}

// sessionConfig builds the configuration of a new call view from req and the
// current interview settings.
func (m *CallManager) sessionConfig(req api.CallRequest) session.Config {
	settings := m.cfg.Settings()
	id := m.cfg.NewID()

	var techOpts []techstack.Option
	if settings.PhoneticTechMatching {
		techOpts = append(techOpts, techstack.WithPhoneticFallback(settings.PhoneticThreshold))
	}

	cfg := session.Config{
		ID:          id,
		Mode:        req.Mode,
		UserName:    req.UserName,
		UserID:      req.UserID,
		InterviewID: req.InterviewID,
		Questions:   req.Questions,
		WorkflowID:  settings.WorkflowID,
		Transport:   m.cfg.Transport(),
		Inferrer:    utterance.New(techstack.New(techOpts...)),
		Saver:       m.cfg.Saver,
		Feedback:    m.cfg.Feedback,
		Metrics:     m.cfg.Metrics,
		HomeDelay:   settings.HomeRedirectDelay,
	}
	view := viewLog{log: slog.With("session_id", id)}
	cfg.Navigator = view
	cfg.Notifier = view
	if settings.Assistant != nil {
		a := settings.Assistant.Apply(session.Interviewer())
		cfg.Assistant = &a
	}
	return cfg
}

// Current returns the snapshot of the open call view.
func (m *CallManager) Current() (session.Snapshot, bool) {
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()
	if s == nil {
		return session.Snapshot{}, false
	}
	return s.Snapshot(), true
}

// End ends the call of the open view at the user's request.
func (m *CallManager) End(ctx context.Context) (session.Snapshot, error) {
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()
	if s == nil {
		return session.Snapshot{}, api.ErrNoCall
	}
	err := s.EndCall(ctx)
	return s.Snapshot(), err
}

// Close tears the open view down. It reports whether one was open.
func (m *CallManager) Close() bool {
	m.mu.Lock()
	s := m.current
	m.current = nil
	m.mu.Unlock()
	if s == nil {
		return false
	}
	s.Close()
	slog.Info("call view closed", "session_id", s.ID())
	return true
}

// Shutdown closes the open view and waits for its background work.
func (m *CallManager) Shutdown() {
	m.mu.Lock()
	s := m.current
	m.current = nil
	m.mu.Unlock()
	if s == nil {
		return
	}
	s.Close()
	s.Wait()
}

// viewLog stands in for the browser of a call view. Routes and notices also
// surface in the view's snapshot, which is what clients poll.
type viewLog struct {
	log *slog.Logger
}

func (v viewLog) Navigate(route string) { v.log.Info("call view navigating", "route", route) }

func (v viewLog) Notify(msg string) { v.log.Info("call notice", "notice", msg) }
