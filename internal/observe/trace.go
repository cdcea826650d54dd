package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/MrWong99/prepwise"

// Keys of the call attributes shared by spans and log records.
const (
	KeySessionID   = "session_id"
	KeyInterviewID = "interview_id"
	KeyUserID      = "user_id"
	KeyRole        = "interview.role"
)

// Call identifies the call view and interview a unit of work belongs to.
// Empty fields are omitted from spans and logs.
type Call struct {
	SessionID   string
	InterviewID string
	UserID      string
}

type callKey struct{}

// WithCall returns a copy of ctx carrying c. Non-empty fields of c override
// those already carried by ctx.
func WithCall(ctx context.Context, c Call) context.Context {
	prev, _ := CallFrom(ctx)
	if c.SessionID == "" {
		c.SessionID = prev.SessionID
	}
	if c.InterviewID == "" {
		c.InterviewID = prev.InterviewID
	}
	if c.UserID == "" {
		c.UserID = prev.UserID
	}
	return context.WithValue(ctx, callKey{}, c)
}

// CallFrom returns the call carried by ctx.
func CallFrom(ctx context.Context) (Call, bool) {
	c, ok := ctx.Value(callKey{}).(Call)
	return c, ok
}

func (c Call) attributes() []attribute.KeyValue {
	var kv []attribute.KeyValue
	if c.SessionID != "" {
		kv = append(kv, attribute.String(KeySessionID, c.SessionID))
	}
	if c.InterviewID != "" {
		kv = append(kv, attribute.String(KeyInterviewID, c.InterviewID))
	}
	if c.UserID != "" {
		kv = append(kv, attribute.String(KeyUserID, c.UserID))
	}
	return kv
}

// Tracer returns the prepwise tracer of the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a span tagged with the call carried by ctx. The caller
// must end it.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if c, ok := CallFrom(ctx); ok {
		if kv := c.attributes(); len(kv) > 0 {
			opts = append(opts, trace.WithAttributes(kv...))
		}
	}
	return Tracer().Start(ctx, name, opts...)
}

// CorrelationID returns the trace id of the span in ctx, or "".
func CorrelationID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger returns the default logger enriched with the trace and call
// carried by ctx.
func Logger(ctx context.Context) *slog.Logger {
	var args []any
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		args = append(args,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	if c, ok := CallFrom(ctx); ok {
		for _, kv := range c.attributes() {
			args = append(args, slog.String(string(kv.Key), kv.Value.AsString()))
		}
	}
	if len(args) == 0 {
		return slog.Default()
	}
	return slog.Default().With(args...)
}
