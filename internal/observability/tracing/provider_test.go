package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func restoreGlobals(t *testing.T) {
	t.Helper()
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
}

func TestSetup_SamplesEverythingAtRatioOne(t *testing.T) {
	restoreGlobals(t)
	exporter := tracetest.NewInMemoryExporter()
	shutdown := Setup(1, sdktrace.WithSyncer(exporter))

	ctx, span := StartSpan(context.Background(), "ingest.category")
	assert.NotEmpty(t, TraceID(ctx))
	span.End()

	require.NoError(t, shutdown(context.Background()))
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "ingest.category", spans[0].Name)
	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
}

func TestSetup_RatioZeroKeepsTraceIDs(t *testing.T) {
	restoreGlobals(t)
	exporter := tracetest.NewInMemoryExporter()
	shutdown := Setup(-3, sdktrace.WithSyncer(exporter))

	ctx, span := StartSpan(context.Background(), "search.Waterfall")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.NotEmpty(t, TraceID(ctx), "unsampled spans still carry a trace id for log correlation")
	assert.Empty(t, exporter.GetSpans())
}
