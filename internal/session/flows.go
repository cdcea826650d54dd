package session

import (
	"context"
	"time"

	"github.com/MrWong99/prepwise/internal/observe"
	"github.com/MrWong99/prepwise/internal/transcript"
)

type flowKind int

const (
	flowNone flowKind = iota
	flowSave
	flowFeedback
)

// finishFlow is the end-of-call work claimed for one call.
type finishFlow struct {
	kind       flowKind
	call       uint64
	utterances []transcript.Utterance
}

// claimLocked claims the end-of-call flow for the current call, at most once
// per call. Feedback is only claimed on StatusFinished. Must be called with
// s.mu held.
func (s *Session) claimLocked(at Status) finishFlow {
	fl := finishFlow{call: s.call}
	if s.settled {
		return fl
	}
	switch {
	case s.cfg.Mode == ModeGenerate:
		fl.kind = flowSave
	case at == StatusFinished:
		fl.kind = flowFeedback
	default:
		return fl
	}
	s.settled = true
	fl.utterances = s.conv.Snapshot()
	return fl
}

// callContext tags ctx with this session for spans and logs.
func (s *Session) callContext(ctx context.Context) context.Context {
	return observe.WithCall(ctx, observe.Call{
		SessionID:   s.cfg.ID,
		InterviewID: s.cfg.InterviewID,
		UserID:      s.cfg.UserID,
	})
}

// runFinish runs the work that follows StatusFinished.
func (s *Session) runFinish(ctx context.Context, fl finishFlow) {
	switch fl.kind {
	case flowFeedback:
		s.feedback(ctx, fl)
		return
	case flowSave:
		s.save(ctx, fl)
	}
	if s.cfg.Mode == ModeGenerate {
		s.scheduleHome(fl.call)
	}
}

// save stores an interview inferred from the conversation of fl.call.
// Failures are reported to the user and logged, never returned. The outcome
// is dropped when the session was closed or restarted in the meantime.
func (s *Session) save(ctx context.Context, fl finishFlow) {
	ctx = s.callContext(ctx)
	utterances := fl.utterances
	questions := transcript.TextsBy(utterances, transcript.SpeakerAssistant)
	if len(utterances) == 0 || len(questions) == 0 || s.cfg.UserID == "" || s.cfg.Saver == nil {
		s.metrics.RecordSave(ctx, "skipped")
		s.log.Debug("nothing to save", "utterances", len(utterances), "has_user", s.cfg.UserID != "")
		return
	}

	req, _ := s.cfg.Inferrer.Infer(utterances)
	req.Amount = len(questions)
	req.OwnerID = s.cfg.UserID

	id, err := s.cfg.Saver.Persist(ctx, req, questions)
	if err != nil {
		s.metrics.RecordSave(ctx, "failed")
		s.log.Error("failed to save interview", "err", err)
		s.notify(fl.call, NoticeSaveFailed)
		return
	}
	s.metrics.RecordSave(ctx, "saved")
	s.log.Info("interview saved", "interview_id", id, "role", req.Role, "questions", len(questions))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.call != fl.call {
		s.log.Debug("dropping saved interview id of an earlier call", "interview_id", id)
		return
	}
	s.savedID = id
}

// feedback asks for feedback on a structured interview and navigates to it,
// or home when that fails.
func (s *Session) feedback(ctx context.Context, fl finishFlow) {
	ctx = s.callContext(ctx)
	if s.cfg.Feedback == nil {
		s.log.Warn("no feedback service configured")
		s.navigate(fl.call, RouteHome)
		return
	}
	id, err := s.cfg.Feedback.Generate(ctx, s.cfg.InterviewID, s.cfg.UserID, fl.utterances)
	if err != nil {
		s.log.Error("failed to generate feedback", "interview_id", s.cfg.InterviewID, "err", err)
		s.navigate(fl.call, RouteHome)
		return
	}
	s.log.Info("feedback generated", "interview_id", s.cfg.InterviewID, "feedback_id", id)
	s.navigate(fl.call, FeedbackRoute(s.cfg.InterviewID))
}

func (s *Session) scheduleHome(call uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.call != call {
		return
	}
	if s.homeTimer != nil {
		s.homeTimer.Stop()
	}
	s.homeTimer = time.AfterFunc(s.cfg.HomeDelay, func() { s.navigate(call, RouteHome) })
}
