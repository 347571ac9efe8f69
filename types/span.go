package types

// Span represents one completed unit of traced work. It is produced by an
// external instrumentation collaborator and consumed read-only by the engine.

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultErrorCode is the error bucket used when an errored span carries no
// status description.
const DefaultErrorCode = "error"

// Span is a completed span as delivered by the instrumentation boundary.
type Span struct {
	Name              string               // operation name
	Kind              trace.SpanKind       // internal/server/client/producer/consumer
	Attributes        []attribute.KeyValue // attribute map, string key to scalar value
	StartTime         time.Time            // start timestamp, nanosecond resolution
	EndTime           time.Time            // end timestamp, nanosecond resolution
	StatusCode        codes.Code           // status code, codes.Error marks a failed span
	StatusDescription string               // optional status description
	Sampled           bool                 // unsampled spans are discarded by the engine
}

// Latency returns the wall-clock duration of the span.
func (s Span) Latency() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// IsError reports whether the span completed with an error status.
func (s Span) IsError() bool {
	return s.StatusCode == codes.Error
}

// ErrorCode returns the error bucket label for the span: the status
// description when present, DefaultErrorCode otherwise. Empty for
// non-errored spans.
func (s Span) ErrorCode() string {
	if !s.IsError() {
		return ""
	}

	if s.StatusDescription != "" {
		return s.StatusDescription
	}

	return DefaultErrorCode
}

// Attr looks up a single attribute by key. The last occurrence wins when the
// instrumentation set the same key twice.
func (s Span) Attr(key attribute.Key) (attribute.Value, bool) {
	for i := len(s.Attributes) - 1; i >= 0; i-- {
		if s.Attributes[i].Key == key {
			return s.Attributes[i].Value, true
		}
	}

	return attribute.Value{}, false
}
