package observe

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
)

func TestInitProvider_ExportsToRegisterer(t *testing.T) {
	origMP, origTP := otel.GetMeterProvider(), otel.GetTracerProvider()
	t.Cleanup(func() {
		otel.SetMeterProvider(origMP)
		otel.SetTracerProvider(origTP)
	})

	reg := prometheus.NewRegistry()
	tel, err := InitProvider(context.Background(), ProviderConfig{
		ServiceVersion: "test",
		Registerer:     reg,
		SampleRatio:    0.5,
	})
	if err != nil {
		t.Fatalf("InitProvider: %v", err)
	}
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })

	m, err := tel.Metrics()
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	m.RecordSave(context.Background(), "saved")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var found bool
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "prepwise_session_saves") {
			found = true
		}
	}
	if !found {
		t.Error("session saves not exported to the registry")
	}

	// The tracer provider is global, so call spans come from it.
	_, span := StartSpan(context.Background(), "interview.Generate")
	defer span.End()
	if !span.SpanContext().IsValid() {
		t.Error("StartSpan after InitProvider produced an invalid span")
	}
}
