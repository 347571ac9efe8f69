// Package attrs provides reusable OpenTelemetry attribute key constants
// to avoid duplication across middlewares.
package attrs

const (
	// AttrSpanKind carries the kind of the span handed to the engine.
	AttrSpanKind = "span.kind"
	// AttrPathKeyLen carries the length of the composed path key; zero means
	// the span was discarded or left the incoming key untouched.
	AttrPathKeyLen = "path.key.len"
	// AttrFlushResult carries the outcome of a flush cycle.
	AttrFlushResult = "flush.result"
	// AttrPathCount carries the number of path entries in a snapshot.
	AttrPathCount = "paths.count"
	// AttrErrorCount carries the number of error entries in a snapshot.
	AttrErrorCount = "errors.count"
)
