// Package tracing wires OpenTelemetry spans into the HTTP layer and the use cases.
//
// Spans are created through the global tracer provider; without a configured
// provider they are no-ops.
//
//	ctx, span := tracing.StartSpan(ctx, "ingest.category",
//	    attribute.String("category", "deportes"))
//	defer func() { tracing.EndSpan(span, err) }()
package tracing
