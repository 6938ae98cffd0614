package otel

import (
	"context"
	"crypto/rand"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// fixedTraceID puts every new root span into one trace.
type fixedTraceID struct {
	traceID trace.TraceID
}

// FixedTraceID returns an ID generator that starts every root span in
// traceID. Span IDs stay random.
func FixedTraceID(traceID trace.TraceID) sdktrace.IDGenerator {
	return fixedTraceID{traceID: traceID}
}

// NewIDs implements sdktrace.IDGenerator.
func (g fixedTraceID) NewIDs(ctx context.Context) (trace.TraceID, trace.SpanID) {
	return g.traceID, g.NewSpanID(ctx, g.traceID)
}

// NewSpanID implements sdktrace.IDGenerator.
func (g fixedTraceID) NewSpanID(_ context.Context, _ trace.TraceID) trace.SpanID {
	var id trace.SpanID
	for !id.IsValid() {
		_, _ = rand.Read(id[:])
	}
	return id
}
