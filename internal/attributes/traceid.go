package attributes

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ResolveTraceID validates a user supplied trace ID.
// Returns the trace ID and any warnings to attach to the report span.
// An empty value returns a zero trace ID (caller should generate random).
func ResolveTraceID(value string) (trace.TraceID, []attribute.KeyValue, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return trace.TraceID{}, nil, nil
	}

	// Try to parse as valid trace ID (32 hex chars)
	if len(value) == 32 {
		if traceID, err := trace.TraceIDFromHex(strings.ToLower(value)); err == nil {
			return traceID, nil, nil
		}
	}

	// Invalid trace ID - hash it with SHA-256 and use first 32 hex chars
	hash := sha256.Sum256([]byte(value))
	traceID, err := trace.TraceIDFromHex(hex.EncodeToString(hash[:16]))
	if err != nil {
		return trace.TraceID{}, nil, fmt.Errorf("failed to create trace ID from hash: %w", err)
	}

	warnings := []attribute.KeyValue{
		attribute.String("_trace_id_input", value),
		attribute.String("_trace_id_invalid_warning", fmt.Sprintf("Value %q is not a valid 32-char hex trace ID, used SHA-256 hash instead", value)),
	}

	return traceID, warnings, nil
}

// ResolveParentID validates a user supplied parent span ID.
// If the value is empty or invalid, returns zero span ID (no parent).
func ResolveParentID(value string) (trace.SpanID, []attribute.KeyValue) {
	value = strings.TrimSpace(value)
	if value == "" {
		return trace.SpanID{}, nil
	}

	// Try to parse as valid span ID (16 hex chars)
	if len(value) == 16 {
		if spanID, err := trace.SpanIDFromHex(strings.ToLower(value)); err == nil {
			return spanID, nil
		}
	}

	warnings := []attribute.KeyValue{
		attribute.String("_parent_id_input", value),
		attribute.String("_parent_id_invalid_warning", fmt.Sprintf("Value %q is not a valid 16-char hex span ID, using null parent ID instead", value)),
	}

	return trace.SpanID{}, warnings
}
