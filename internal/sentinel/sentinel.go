// Package sentinel provides standardized error definitions for the tracepath
// engine. This package centralizes all error types used across the engine
// components, ensuring consistent error handling and messaging throughout the
// application.
//
// The errors defined here cover various scenarios including:
// - Invalid configuration parameters (identity, thresholds, intervals, accuracy)
// - Flush and export failures (timeouts, exporter faults)
// - Component initialization errors (nil clients, missing serializers)
//
// All errors are created using the ewrap package to provide enhanced error
// wrapping and context capabilities.
package sentinel

import (
	"github.com/hyp3rd/ewrap"
)

var (
	// ErrEmptyAppIdentity is returned when the application identity string is empty.
	ErrEmptyAppIdentity = ewrap.New("application identity cannot be empty")

	// ErrInvalidCardinalityThreshold is returned when the cardinality threshold is not positive.
	ErrInvalidCardinalityThreshold = ewrap.New("cardinality threshold must be positive")

	// ErrInvalidFlushInterval is returned when the flush interval is not positive.
	ErrInvalidFlushInterval = ewrap.New("flush interval must be positive")

	// ErrInvalidFlushTimeout is returned when the flush timeout is not positive.
	ErrInvalidFlushTimeout = ewrap.New("flush timeout must be positive")

	// ErrInvalidRelativeAccuracy is returned when the sketch accuracy is outside (0, 1).
	ErrInvalidRelativeAccuracy = ewrap.New("relative accuracy must be between 0 and 1 exclusive")

	// ErrInvalidMaxSketchBins is returned when the sketch bin budget is not positive.
	ErrInvalidMaxSketchBins = ewrap.New("max sketch bins must be positive")

	// ErrFlushTimeout is returned when an export attempt does not answer before the deadline.
	ErrFlushTimeout = ewrap.New("flush timed out before the exporter answered")

	// ErrNilWriter is returned when a nil writer is passed to an exporter.
	ErrNilWriter = ewrap.New("nil writer")

	// ErrNilClient is returned when a nil client is passed to an exporter.
	ErrNilClient = ewrap.New("nil client")

	// ErrParamCannotBeEmpty is returned when a parameter cannot be empty.
	ErrParamCannotBeEmpty = ewrap.New("param cannot be empty")

	// ErrSerializerNotFound is returned when a serializer is not found.
	ErrSerializerNotFound = ewrap.New("serializer not found")

	// ErrEngineStopped is returned when an operation is attempted on a stopped engine.
	ErrEngineStopped = ewrap.New("engine is stopped")

	// ErrMgmtHTTPShutdownTimeout is returned when the management HTTP server fails to shutdown before context deadline.
	ErrMgmtHTTPShutdownTimeout = ewrap.New("management http shutdown timeout")
)
