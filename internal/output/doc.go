// Package output exports a reconstructed process forest as OpenTelemetry
// spans.
//
// SpanExporter is a pure formatting layer that:
//   - Receives the linked forest and run summary
//   - Creates one report span plus one span per process
//   - Sets span attributes from the process records
//
// It does NOT:
//   - Decode input logs
//   - Link or sort records
//   - Configure exporters or providers
//
// Parent/child span relationships mirror the forest. Span start times come
// from the records' creation timestamps; a process span ends when the last
// process in its subtree started, since process creation events carry no
// exit time.
package output
