// SPDX-License-Identifier: MIT

package telemetry

import "go.opentelemetry.io/otel/attribute"

// Attribute keys shared across spans so traces stay queryable.
const (
	SessionIDKey    = "session.id"
	SessionStateKey = "session.state"
	SessionEventKey = "session.event"

	RecordingIDKey       = "recording.id"
	RecordingDurationKey = "recording.duration_ms"
	RecordingSizeKey     = "recording.size_bytes"
	RecordingScreenKey   = "recording.has_screen"

	EnrichOpKey = "enrich.op"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// SessionAttributes creates session span attributes.
func SessionAttributes(id string, state, event string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if id != "" {
		attrs = append(attrs, attribute.String(SessionIDKey, id))
	}
	if state != "" {
		attrs = append(attrs, attribute.String(SessionStateKey, state))
	}
	if event != "" {
		attrs = append(attrs, attribute.String(SessionEventKey, event))
	}
	return attrs
}

// RecordingAttributes creates recording span attributes.
func RecordingAttributes(id string, durationMS, sizeBytes int64, hasScreen bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(RecordingIDKey, id),
		attribute.Int64(RecordingDurationKey, durationMS),
		attribute.Int64(RecordingSizeKey, sizeBytes),
		attribute.Bool(RecordingScreenKey, hasScreen),
	}
}

// ErrorAttributes creates error span attributes.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
