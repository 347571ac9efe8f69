// Package middleware provides various middleware implementations for the
// tracepath service. This package includes logging middleware that wraps the
// engine to provide execution time logging and method call tracing for
// debugging and monitoring purposes.
package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/propagation"

	"github.com/hyp3rd/tracepath"
	"github.com/hyp3rd/tracepath/pkg/aggregator"
	"github.com/hyp3rd/tracepath/types"
)

// Logger describes a logging interface allowing to implement different external, or custom logger.
// Tested with logrus, and Uber's Zap (high-performance), but should work with any other logger that matches the interface.
type Logger interface {
	Printf(format string, v ...any)
}

// LoggingMiddleware is a middleware that logs the time it takes to execute the next middleware.
// Must implement the tracepath.Service interface.
type LoggingMiddleware struct {
	next   tracepath.Service
	logger Logger
}

// NewLoggingMiddleware returns a new LoggingMiddleware.
func NewLoggingMiddleware(next tracepath.Service, logger Logger) tracepath.Service {
	return &LoggingMiddleware{next: next, logger: logger}
}

// OnSpanEnd logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) OnSpanEnd(ctx context.Context, span types.Span) (context.Context, string) {
	defer func(begin time.Time) {
		mw.logger.Printf("method OnSpanEnd took: %s", time.Since(begin))
	}(time.Now())

	mw.logger.Printf("OnSpanEnd method called with span: %s kind: %s", span.Name, span.Kind)

	return mw.next.OnSpanEnd(ctx, span)
}

// Extract logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) Extract(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	defer func(begin time.Time) {
		mw.logger.Printf("method Extract took: %s", time.Since(begin))
	}(time.Now())

	return mw.next.Extract(ctx, carrier)
}

// Inject logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) Inject(ctx context.Context, carrier propagation.TextMapCarrier) {
	defer func(begin time.Time) {
		mw.logger.Printf("method Inject took: %s", time.Since(begin))
	}(time.Now())

	mw.next.Inject(ctx, carrier)
}

// Snapshot logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) Snapshot() *aggregator.Snapshot {
	defer func(begin time.Time) {
		mw.logger.Printf("method Snapshot took: %s", time.Since(begin))
	}(time.Now())

	return mw.next.Snapshot()
}

// Flush logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) Flush(ctx context.Context) (types.FlushResult, error) {
	defer func(begin time.Time) {
		mw.logger.Printf("method Flush took: %s", time.Since(begin))
	}(time.Now())

	result, err := mw.next.Flush(ctx)

	mw.logger.Printf("Flush finished with result: %s", result)

	return result, err
}

// DistinctPaths returns the number of distinct path keys currently retained.
func (mw LoggingMiddleware) DistinctPaths() int {
	return mw.next.DistinctPaths()
}

// CardinalityThreshold returns the configured path cardinality bound.
func (mw LoggingMiddleware) CardinalityThreshold() int {
	return mw.next.CardinalityThreshold()
}

// FlushInterval returns the period of the background flush loop.
func (mw LoggingMiddleware) FlushInterval() time.Duration {
	return mw.next.FlushInterval()
}

// AppIdentity returns the application identity mixed into every path key.
func (mw LoggingMiddleware) AppIdentity() string {
	return mw.next.AppIdentity()
}

// Faults returns the number of span records dropped due to internal faults.
func (mw LoggingMiddleware) Faults() uint64 {
	return mw.next.Faults()
}

// Stop logs the service shutdown and stops the next middleware.
func (mw LoggingMiddleware) Stop() {
	defer func(begin time.Time) {
		mw.logger.Printf("method Stop took: %s", time.Since(begin))
	}(time.Now())

	mw.next.Stop()
}
