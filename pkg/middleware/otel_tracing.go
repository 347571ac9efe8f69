package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/hyp3rd/tracepath"
	"github.com/hyp3rd/tracepath/internal/telemetry/attrs"
	"github.com/hyp3rd/tracepath/pkg/aggregator"
	"github.com/hyp3rd/tracepath/types"
)

// OTelTracingMiddleware wraps the control-plane methods of tracepath.Service
// with OpenTelemetry spans. The per-span methods (OnSpanEnd, Extract, Inject)
// pass through untraced: they run inside span processing, and starting a span
// there would feed the engine its own telemetry.
type OTelTracingMiddleware struct {
	next   tracepath.Service
	tracer trace.Tracer
	// static attributes applied to all spans
	commonAttrs []attribute.KeyValue
}

// OTelTracingOption allows configuring the tracing middleware.
type OTelTracingOption func(*OTelTracingMiddleware)

// WithCommonAttributes sets attributes applied to all spans.
func WithCommonAttributes(attributes ...attribute.KeyValue) OTelTracingOption {
	return func(m *OTelTracingMiddleware) { m.commonAttrs = append(m.commonAttrs, attributes...) }
}

// NewOTelTracingMiddleware creates a tracing middleware.
func NewOTelTracingMiddleware(next tracepath.Service, tracer trace.Tracer, opts ...OTelTracingOption) tracepath.Service {
	mw := &OTelTracingMiddleware{next: next, tracer: tracer}
	for _, o := range opts {
		o(mw)
	}

	return mw
}

// OnSpanEnd passes through untraced.
func (mw OTelTracingMiddleware) OnSpanEnd(ctx context.Context, span types.Span) (context.Context, string) {
	return mw.next.OnSpanEnd(ctx, span)
}

// Extract passes through untraced.
func (mw OTelTracingMiddleware) Extract(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return mw.next.Extract(ctx, carrier)
}

// Inject passes through untraced.
func (mw OTelTracingMiddleware) Inject(ctx context.Context, carrier propagation.TextMapCarrier) {
	mw.next.Inject(ctx, carrier)
}

// Snapshot implements Service.Snapshot with tracing.
func (mw OTelTracingMiddleware) Snapshot() *aggregator.Snapshot {
	_, span := mw.startSpan(context.Background(), "tracepath.Snapshot")
	defer span.End()

	snap := mw.next.Snapshot()
	span.SetAttributes(
		attribute.Int(attrs.AttrPathCount, len(snap.Paths)),
		attribute.Int(attrs.AttrErrorCount, len(snap.Errors)))

	return snap
}

// Flush implements Service.Flush with tracing.
func (mw OTelTracingMiddleware) Flush(ctx context.Context) (types.FlushResult, error) {
	ctx, span := mw.startSpan(ctx, "tracepath.Flush")
	defer span.End()

	result, err := mw.next.Flush(ctx)
	span.SetAttributes(attribute.String(attrs.AttrFlushResult, result.String()))

	if err != nil {
		span.RecordError(err)
	}

	return result, err
}

// DistinctPaths returns the number of distinct path keys currently retained.
func (mw OTelTracingMiddleware) DistinctPaths() int {
	return mw.next.DistinctPaths()
}

// CardinalityThreshold returns the configured path cardinality bound.
func (mw OTelTracingMiddleware) CardinalityThreshold() int {
	return mw.next.CardinalityThreshold()
}

// FlushInterval returns the period of the background flush loop.
func (mw OTelTracingMiddleware) FlushInterval() time.Duration {
	return mw.next.FlushInterval()
}

// AppIdentity returns the application identity mixed into every path key.
func (mw OTelTracingMiddleware) AppIdentity() string {
	return mw.next.AppIdentity()
}

// Faults returns the number of span records dropped due to internal faults.
func (mw OTelTracingMiddleware) Faults() uint64 {
	return mw.next.Faults()
}

// Stop implements Service.Stop with tracing.
func (mw OTelTracingMiddleware) Stop() {
	_, span := mw.startSpan(context.Background(), "tracepath.Stop")
	defer span.End()

	mw.next.Stop()
}

// startSpan begins a span with the common attributes applied.
func (mw OTelTracingMiddleware) startSpan(ctx context.Context, name string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	all := make([]attribute.KeyValue, 0, len(mw.commonAttrs)+len(attributes))
	all = append(all, mw.commonAttrs...)
	all = append(all, attributes...)

	return mw.tracer.Start(ctx, name, trace.WithAttributes(all...))
}
