package output

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/deadbeesec/sysmon-pstree/internal/processtree"
	"github.com/deadbeesec/sysmon-pstree/internal/procmeta"
	"github.com/deadbeesec/sysmon-pstree/internal/summary"
	"github.com/deadbeesec/sysmon-pstree/internal/timesync"
)

const (
	ReportSpanName  = "sysmon.report"
	ProcessSpanName = "process.create"
)

// SpanExporter converts a forest into spans.
type SpanExporter struct {
	tracer    trace.Tracer
	converter *timesync.Converter
	parent    trace.SpanContext
	extra     []attribute.KeyValue
	now       func() time.Time
}

// NewSpanExporter creates an exporter. parent, when valid, becomes the
// remote parent of the report span. extra is added to the report span.
func NewSpanExporter(tracer trace.Tracer, converter *timesync.Converter, parent trace.SpanContext, extra []attribute.KeyValue) *SpanExporter {
	return &SpanExporter{
		tracer:    tracer,
		converter: converter,
		parent:    parent,
		extra:     extra,
		now:       time.Now,
	}
}

// Export emits the report span and one span per reachable process. It
// returns the number of process spans.
func (e *SpanExporter) Export(ctx context.Context, forest *processtree.Forest, sum *summary.Summary) int {
	if e.parent.IsValid() {
		ctx = trace.ContextWithRemoteSpanContext(ctx, e.parent)
	}

	nodes := forest.Nodes()
	start := e.now()
	if earliest, ok := e.earliest(nodes); ok {
		start = earliest
	}

	ctx, span := e.tracer.Start(ctx, ReportSpanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(start),
	)

	attrs := []attribute.KeyValue{
		attribute.Int("sysmon.total_processes", forest.Size()),
		attribute.Int("sysmon.root_processes", len(forest.Roots())),
	}
	if sum != nil {
		attrs = append(attrs,
			attribute.Int("sysmon.scanned_events", sum.TotalEvents),
			attribute.Int("sysmon.process_events", sum.ProcessEvents),
			attribute.Bool("sysmon.capped", sum.Capped),
		)
	}
	span.SetAttributes(attrs...)
	span.SetAttributes(e.extra...)

	count := 0
	end := start
	for _, n := range nodes {
		if last := e.exportNode(ctx, n, start, &count); last.After(end) {
			end = last
		}
	}

	span.End(trace.WithTimestamp(end))
	return count
}

// exportNode emits n and its subtree and returns the latest start time in it.
func (e *SpanExporter) exportNode(ctx context.Context, n *processtree.Node, fallback time.Time, count *int) time.Time {
	if n.Cycle {
		return fallback
	}

	start, ok := e.converter.ToWallClock(n.Record.Timestamp)
	if !ok {
		start = fallback
	}

	ctx, span := e.tracer.Start(ctx, ProcessSpanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(start),
	)
	span.SetAttributes(processAttributes(n.Record)...)
	*count++

	end := start
	for _, child := range n.Children {
		if last := e.exportNode(ctx, child, start, count); last.After(end) {
			end = last
		}
	}

	span.End(trace.WithTimestamp(end))
	return end
}

func (e *SpanExporter) earliest(nodes []*processtree.Node) (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, n := range nodes {
		t, ok := e.converter.ToWallClock(n.Record.Timestamp)
		if ok && (!found || t.Before(earliest)) {
			earliest = t
			found = true
		}
	}
	return earliest, found
}

func processAttributes(rec *procmeta.ProcessRecord) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int("process.pid", rec.PID),
		attribute.String("process.executable.name", rec.Name),
	}
	if rec.HasParent {
		attrs = append(attrs, attribute.Int("process.parent_pid", rec.ParentPID))
	}

	optional := []struct {
		key   string
		value string
	}{
		{"process.executable.path", rec.Image},
		{"process.command_line", rec.CommandLine},
		{"process.working_directory", rec.WorkingDirectory},
		{"process.owner", rec.User},
		{"sysmon.timestamp", rec.Timestamp},
	}
	for _, o := range optional {
		if o.value != "" {
			attrs = append(attrs, attribute.String(o.key, o.value))
		}
	}
	return attrs
}
