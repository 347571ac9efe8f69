package middleware

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"

	"github.com/hyp3rd/tracepath"
	"github.com/hyp3rd/tracepath/internal/telemetry/attrs"
	"github.com/hyp3rd/tracepath/pkg/aggregator"
	"github.com/hyp3rd/tracepath/types"
)

// OTelMetricsMiddleware emits OpenTelemetry metrics for service methods.
type OTelMetricsMiddleware struct {
	next  tracepath.Service
	meter metric.Meter

	// instruments
	calls     metric.Int64Counter
	durations metric.Float64Histogram
}

// NewOTelMetricsMiddleware constructs a metrics middleware using the provided meter.
func NewOTelMetricsMiddleware(next tracepath.Service, meter metric.Meter) (tracepath.Service, error) {
	calls, err := meter.Int64Counter("tracepath.calls")
	if err != nil {
		return nil, fmt.Errorf("create counter: %w", err)
	}

	durations, err := meter.Float64Histogram("tracepath.duration.ms")
	if err != nil {
		return nil, fmt.Errorf("create histogram: %w", err)
	}

	return &OTelMetricsMiddleware{next: next, meter: meter, calls: calls, durations: durations}, nil
}

// OnSpanEnd implements Service.OnSpanEnd with metrics.
func (mw *OTelMetricsMiddleware) OnSpanEnd(ctx context.Context, span types.Span) (context.Context, string) {
	start := time.Now()
	outCtx, pathKey := mw.next.OnSpanEnd(ctx, span)
	mw.rec(ctx, "OnSpanEnd", start,
		attribute.String(attrs.AttrSpanKind, span.Kind.String()),
		attribute.Int(attrs.AttrPathKeyLen, len(pathKey)))

	return outCtx, pathKey
}

// Extract implements Service.Extract with metrics.
func (mw *OTelMetricsMiddleware) Extract(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	start := time.Now()
	outCtx := mw.next.Extract(ctx, carrier)
	mw.rec(ctx, "Extract", start)

	return outCtx
}

// Inject implements Service.Inject with metrics.
func (mw *OTelMetricsMiddleware) Inject(ctx context.Context, carrier propagation.TextMapCarrier) {
	start := time.Now()
	mw.next.Inject(ctx, carrier)
	mw.rec(ctx, "Inject", start)
}

// Snapshot implements Service.Snapshot with metrics.
func (mw *OTelMetricsMiddleware) Snapshot() *aggregator.Snapshot {
	start := time.Now()
	snap := mw.next.Snapshot()
	mw.rec(context.Background(), "Snapshot", start,
		attribute.Int(attrs.AttrPathCount, len(snap.Paths)),
		attribute.Int(attrs.AttrErrorCount, len(snap.Errors)))

	return snap
}

// Flush implements Service.Flush with metrics.
func (mw *OTelMetricsMiddleware) Flush(ctx context.Context) (types.FlushResult, error) {
	start := time.Now()
	result, err := mw.next.Flush(ctx)
	mw.rec(ctx, "Flush", start, attribute.String(attrs.AttrFlushResult, result.String()))

	return result, err
}

// DistinctPaths returns the number of distinct path keys currently retained.
func (mw *OTelMetricsMiddleware) DistinctPaths() int {
	return mw.next.DistinctPaths()
}

// CardinalityThreshold returns the configured path cardinality bound.
func (mw *OTelMetricsMiddleware) CardinalityThreshold() int {
	return mw.next.CardinalityThreshold()
}

// FlushInterval returns the period of the background flush loop.
func (mw *OTelMetricsMiddleware) FlushInterval() time.Duration {
	return mw.next.FlushInterval()
}

// AppIdentity returns the application identity mixed into every path key.
func (mw *OTelMetricsMiddleware) AppIdentity() string {
	return mw.next.AppIdentity()
}

// Faults returns the number of span records dropped due to internal faults.
func (mw *OTelMetricsMiddleware) Faults() uint64 {
	return mw.next.Faults()
}

// Stop stops the next middleware.
func (mw *OTelMetricsMiddleware) Stop() {
	mw.next.Stop()
}

// rec records one call on both instruments.
func (mw *OTelMetricsMiddleware) rec(ctx context.Context, method string, start time.Time, attributes ...attribute.KeyValue) {
	attributes = append(attributes, attribute.String("method", method))
	opt := metric.WithAttributes(attributes...)

	mw.calls.Add(ctx, 1, opt)
	mw.durations.Record(ctx, float64(time.Since(start).Microseconds())/1000.0, opt)
}
