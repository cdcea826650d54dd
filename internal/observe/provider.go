package observe

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

// ProviderConfig configures the telemetry installed by [InitProvider].
type ProviderConfig struct {
	// ServiceName defaults to "prepwise".
	ServiceName    string
	ServiceVersion string

	// Registerer receives the Prometheus collector that backs /metrics.
	// Defaults to [prometheus.DefaultRegisterer], which promhttp.Handler
	// serves.
	Registerer prometheus.Registerer

	// TraceExporter receives finished spans (interview generation, feedback,
	// HTTP requests). When nil, spans are recorded for log correlation only.
	TraceExporter sdktrace.SpanExporter

	// SampleRatio is the fraction of new traces sampled. Values outside
	// (0, 1) sample everything. Incoming sampled traces are always kept.
	SampleRatio float64
}

// Telemetry owns the SDK providers registered as the OTel globals.
type Telemetry struct {
	meters  *sdkmetric.MeterProvider
	tracers *sdktrace.TracerProvider
}

// InitProvider builds the meter and tracer providers, bridges metrics to
// Prometheus and installs both as the global providers, so that
// [DefaultMetrics] and [StartSpan] use them.
func InitProvider(ctx context.Context, cfg ProviderConfig) (*Telemetry, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "prepwise"
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("observe: resource: %w", err)
	}

	exp, err := promexporter.New(promexporter.WithRegisterer(cfg.Registerer))
	if err != nil {
		return nil, fmt.Errorf("observe: prometheus exporter: %w", err)
	}
	meters := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(exp))

	sampler := sdktrace.AlwaysSample()
	if cfg.SampleRatio > 0 && cfg.SampleRatio < 1 {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRatio)
	}
	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
	}
	if cfg.TraceExporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(cfg.TraceExporter))
	}
	tracers := sdktrace.NewTracerProvider(tpOpts...)

	otel.SetMeterProvider(meters)
	otel.SetTracerProvider(tracers)
	return &Telemetry{meters: meters, tracers: tracers}, nil
}

// Metrics returns prepwise instruments created on this telemetry's meter
// provider.
func (t *Telemetry) Metrics() (*Metrics, error) {
	return NewMetrics(t.meters)
}

// Shutdown flushes pending spans, then stops metric collection.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(t.tracers.Shutdown(ctx), t.meters.Shutdown(ctx))
}
