// Package observe provides application-wide observability primitives for
// prepwise: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API and bridged to
// Prometheus by [InitProvider], so they can be scraped from /metrics. A
// package-level [DefaultMetrics] instance is provided for convenience; tests
// should use [NewMetrics] with their own [metric.MeterProvider].
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/MrWong99/prepwise"

// Metrics holds all OpenTelemetry instruments of the application.
type Metrics struct {
	// GenerationDuration tracks question generation latency (one LLM call).
	GenerationDuration metric.Float64Histogram

	// StoreDuration tracks document store write latency. Use with attribute:
	//   attribute.String("collection", ...)
	StoreDuration metric.Float64Histogram

	// Generations counts question generation outcomes. Use with attribute:
	//   attribute.String("status", "ok"|"degraded"|"error")
	Generations metric.Int64Counter

	// ProviderErrors counts provider failures. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// SessionTransitions counts call status changes. Use with attributes:
	//   attribute.String("from", ...), attribute.String("to", ...)
	SessionTransitions metric.Int64Counter

	// Saves counts save-flow outcomes. Use with attribute:
	//   attribute.String("status", "saved"|"failed"|"skipped")
	Saves metric.Int64Counter

	// TransportErrors counts call transport errors. Use with attribute:
	//   attribute.String("kind", "disconnect"|"generic")
	TransportErrors metric.Int64Counter

	// ActiveSessions tracks the number of open call views.
	ActiveSessions metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are histogram boundaries in seconds. LLM generation and
// remote store writes sit between tens of milliseconds and tens of seconds.
var latencyBuckets = []float64{
	0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates all instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.GenerationDuration, err = m.Float64Histogram("prepwise.generation.duration",
		metric.WithDescription("Latency of interview question generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.StoreDuration, err = m.Float64Histogram("prepwise.docstore.duration",
		metric.WithDescription("Latency of document store writes."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.Generations, err = m.Int64Counter("prepwise.generation.requests",
		metric.WithDescription("Question generation outcomes by status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("prepwise.provider.errors",
		metric.WithDescription("Provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.SessionTransitions, err = m.Int64Counter("prepwise.session.transitions",
		metric.WithDescription("Call status transitions."),
	); err != nil {
		return nil, err
	}
	if met.Saves, err = m.Int64Counter("prepwise.session.saves",
		metric.WithDescription("Transcript save outcomes by status."),
	); err != nil {
		return nil, err
	}
	if met.TransportErrors, err = m.Int64Counter("prepwise.transport.errors",
		metric.WithDescription("Call transport errors by kind."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("prepwise.active_sessions",
		metric.WithDescription("Number of open call views."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("prepwise.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route and status class."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call from [otel.GetMeterProvider]. Panics if instrument creation
// fails, which does not happen with the global provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a shorthand for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordGeneration counts one question generation with the given status.
func (m *Metrics) RecordGeneration(ctx context.Context, status string) {
	m.Generations.Add(ctx, 1, metric.WithAttributes(Attr("status", status)))
}

// RecordProviderError counts one provider failure.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(Attr("provider", provider), Attr("kind", kind)),
	)
}

// RecordTransition counts one call status transition.
func (m *Metrics) RecordTransition(ctx context.Context, from, to string) {
	m.SessionTransitions.Add(ctx, 1,
		metric.WithAttributes(Attr("from", from), Attr("to", to)),
	)
}

// RecordSave counts one save-flow outcome.
func (m *Metrics) RecordSave(ctx context.Context, status string) {
	m.Saves.Add(ctx, 1, metric.WithAttributes(Attr("status", status)))
}

// RecordTransportError counts one transport error of the given kind.
func (m *Metrics) RecordTransportError(ctx context.Context, kind string) {
	m.TransportErrors.Add(ctx, 1, metric.WithAttributes(Attr("kind", kind)))
}
