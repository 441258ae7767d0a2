package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Setup installs a global tracer provider sampling ratio of new traces
// (parent decisions are honoured) and the W3C trace-context propagator.
// Exporters are attached by the caller through opts. The returned function
// flushes and stops the provider.
func Setup(ratio float64, opts ...sdktrace.TracerProviderOption) func(context.Context) error {
	ratio = min(max(ratio, 0), 1)
	opts = append([]sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	}, opts...)

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown
}
