package interview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/prepwise/internal/observe"
	"github.com/MrWong99/prepwise/pkg/docstore"
)

// Pipeline generates and persists interviews. It is safe for concurrent use.
type Pipeline struct {
	gen        TextGenerator
	store      docstore.Store
	collection string
	covers     []string
	pickCover  func([]string) string
	now        func() time.Time
	metrics    *observe.Metrics
}

// Option configures a [Pipeline].
type Option func(*Pipeline)

// WithCollection overrides the interviews collection name.
func WithCollection(name string) Option {
	return func(p *Pipeline) {
		if name != "" {
			p.collection = name
		}
	}
}

// WithCovers replaces [DefaultCovers]. An empty list keeps the defaults.
func WithCovers(covers []string) Option {
	return func(p *Pipeline) {
		if len(covers) > 0 {
			p.covers = append([]string(nil), covers...)
		}
	}
}

// WithCoverPicker replaces [RandomCover].
func WithCoverPicker(pick func([]string) string) Option {
	return func(p *Pipeline) { p.pickCover = pick }
}

// WithClock replaces time.Now for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithMetrics records generation and store metrics on m instead of
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline returns a Pipeline that writes to the "interviews" collection
// of store.
func NewPipeline(gen TextGenerator, store docstore.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		gen:        gen,
		store:      store,
		collection: docstore.CollectionInterviews,
		covers:     DefaultCovers,
		pickCover:  RandomCover,
		now:        time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	return p
}

// Generate validates req, asks the generator for questions and persists the
// result. It returns the new interview id.
//
// Errors match [ErrValidation], [ErrGeneration] or [ErrPersistence]. Output
// that is not a JSON array of strings is stored as a single question rather
// than rejected.
func (p *Pipeline) Generate(ctx context.Context, req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	ctx = observe.WithCall(ctx, observe.Call{UserID: req.OwnerID})
	ctx, span := observe.StartSpan(ctx, "interview.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String(observe.KeyRole, req.Role),
		attribute.Int("interview.amount", req.Amount),
	)
	log := observe.Logger(ctx)

	start := time.Now()
	raw, err := p.gen.Generate(ctx, Prompt(req))
	p.metrics.GenerationDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordGeneration(ctx, "error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		log.Error("question generation failed", "err", err)
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	questions, degraded := ParseQuestions(raw)
	if degraded {
		p.metrics.RecordGeneration(ctx, "degraded")
		log.Warn("model output is not a JSON array, storing it verbatim", "bytes", len(raw))
	} else {
		p.metrics.RecordGeneration(ctx, "ok")
	}

	id, err := p.Persist(ctx, req, questions)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return "", err
	}
	log.Info("interview generated", "interview_id", id, "questions", len(questions), "degraded", degraded)
	return id, nil
}

// Persist stores an interview built from req and questions without calling
// the generator. Errors match [ErrValidation] or [ErrPersistence].
func (p *Pipeline) Persist(ctx context.Context, req Request, questions []string) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	rec := p.newRecord(req, questions)

	start := time.Now()
	id, err := p.store.Add(ctx, p.collection, rec)
	p.metrics.StoreDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("collection", p.collection)))
	if err != nil {
		observe.Logger(ctx).Error("saving interview failed", "collection", p.collection, "err", err)
		return "", fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return id, nil
}

// Get loads a stored interview.
func (p *Pipeline) Get(ctx context.Context, id string) (Record, error) {
	var rec Record
	if err := p.store.Get(ctx, p.collection, id, &rec); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Record{}, fmt.Errorf("interview: load %s: %w", id, err)
	}
	rec.ID = id
	return rec, nil
}

func (p *Pipeline) newRecord(req Request, questions []string) Record {
	return Record{
		Role:       req.Role,
		Type:       req.Type,
		Level:      req.Level,
		TechStack:  append([]string(nil), req.TechStack...),
		Amount:     req.Amount,
		Questions:  append([]string(nil), questions...),
		UserID:     req.OwnerID,
		Finalized:  true,
		CoverImage: p.pickCover(p.covers),
		CreatedAt:  FormatTime(p.now()),
	}
}
