// Package feedback records the outcome of structured interviews.
//
// Scoring is done elsewhere; this package only captures the conversation of
// a finished call together with its interview and user, and hands the record
// to a [Store].
package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrWong99/prepwise/internal/interview"
	"github.com/MrWong99/prepwise/internal/observe"
	"github.com/MrWong99/prepwise/internal/transcript"
)

var (
	// ErrMissingInterview is returned when no interview id is given.
	ErrMissingInterview = errors.New("feedback: missing interview id")

	// ErrEmptyTranscript is returned when the call produced no utterances.
	ErrEmptyTranscript = errors.New("feedback: empty transcript")
)

// Record is a single feedback entry.
type Record struct {
	ID          string                 `json:"id,omitempty" firestore:"-"`
	InterviewID string                 `json:"interviewId" firestore:"interviewId"`
	UserID      string                 `json:"userId" firestore:"userId"`
	Transcript  []transcript.Utterance `json:"transcript" firestore:"transcript"`
	CreatedAt   string                 `json:"createdAt" firestore:"createdAt"`
}

// Store persists feedback records and returns the id assigned to each.
//
// Implementations must be safe for concurrent use.
type Store interface {
	Save(ctx context.Context, rec Record) (string, error)
}

// Service builds feedback records from finished calls.
type Service struct {
	store Store
	now   func() time.Time
}

// Option configures a [Service].
type Option func(*Service)

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService returns a Service writing to store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Generate stores feedback for interviewID and returns its id.
func (s *Service) Generate(ctx context.Context, interviewID, userID string, utterances []transcript.Utterance) (string, error) {
	if interviewID == "" {
		return "", ErrMissingInterview
	}
	if len(utterances) == 0 {
		return "", ErrEmptyTranscript
	}

	ctx = observe.WithCall(ctx, observe.Call{InterviewID: interviewID, UserID: userID})
	ctx, span := observe.StartSpan(ctx, "feedback.Generate")
	defer span.End()

	rec := Record{
		InterviewID: interviewID,
		UserID:      userID,
		Transcript:  utterances,
		CreatedAt:   interview.FormatTime(s.now()),
	}
	id, err := s.store.Save(ctx, rec)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("feedback: save: %w", err)
	}
	observe.Logger(ctx).Info("feedback stored", "feedback_id", id, "utterances", len(utterances))
	return id, nil
}
