package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/deadbeesec/sysmon-pstree/internal/config"
)

func TestInitProvider_NoEndpointIsNoop(t *testing.T) {
	p, err := InitProvider(context.Background(), &config.OTELConfig{ServiceName: "test"}, "dev")
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	_, span := p.Tracer().Start(context.Background(), "phase")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInitProvider_WithEndpoint(t *testing.T) {
	cfg := &config.OTELConfig{ServiceName: "test", ExporterEndpoint: "localhost:4318"}

	p, err := InitProvider(context.Background(), cfg, "dev")
	require.NoError(t, err)
	assert.True(t, p.Enabled())

	_, span := p.Tracer().Start(context.Background(), "phase")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
}

func TestProvider_NilShutdown(t *testing.T) {
	var p *Provider
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestFixedTraceID(t *testing.T) {
	traceID, err := trace.TraceIDFromHex("a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4")
	require.NoError(t, err)

	gen := FixedTraceID(traceID)
	gotTrace, span1 := gen.NewIDs(context.Background())
	span2 := gen.NewSpanID(context.Background(), gotTrace)

	assert.Equal(t, traceID, gotTrace)
	assert.True(t, span1.IsValid())
	assert.True(t, span2.IsValid())
	assert.NotEqual(t, span1, span2)
}

func TestInitProvider_AppliesOptions(t *testing.T) {
	traceID, err := trace.TraceIDFromHex("a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4")
	require.NoError(t, err)
	cfg := &config.OTELConfig{ServiceName: "test", TracesEndpoint: "localhost:4318"}

	p, err := InitProvider(context.Background(), cfg, "dev", sdktrace.WithIDGenerator(FixedTraceID(traceID)))
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), "phase")
	assert.Equal(t, traceID, span.SpanContext().TraceID())
	span.End()
}
