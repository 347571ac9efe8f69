package tracepath_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/longbridgeapp/assert"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelpropagation "go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/hyp3rd/tracepath"
	"github.com/hyp3rd/tracepath/internal/constants"
	"github.com/hyp3rd/tracepath/internal/sentinel"
	"github.com/hyp3rd/tracepath/pkg/classifier"
	"github.com/hyp3rd/tracepath/pkg/pathkey"
	"github.com/hyp3rd/tracepath/types"
)

func digest(appIdentity, parent, canonical string) string {
	sum := sha256.Sum256([]byte(appIdentity + "|" + parent + "|" + canonical))

	return hex.EncodeToString(sum[:])
}

func newTestEngine(t *testing.T, options ...tracepath.Option) *tracepath.Engine {
	t.Helper()

	engine, err := tracepath.NewEngine(tracepath.NewConfig("checkout-service", options...))
	assert.Nil(t, err)
	t.Cleanup(engine.Stop)

	return engine
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	tests := []struct {
		name        string
		config      *tracepath.Config
		expectedErr error
	}{
		{
			name:        "empty app identity",
			config:      tracepath.NewConfig(""),
			expectedErr: sentinel.ErrEmptyAppIdentity,
		},
		{
			name:        "zero cardinality threshold",
			config:      tracepath.NewConfig("svc", tracepath.WithCardinalityThreshold(0)),
			expectedErr: sentinel.ErrInvalidCardinalityThreshold,
		},
		{
			name:        "zero flush interval",
			config:      tracepath.NewConfig("svc", tracepath.WithFlushInterval(0)),
			expectedErr: sentinel.ErrInvalidFlushInterval,
		},
		{
			name:        "zero flush timeout",
			config:      tracepath.NewConfig("svc", tracepath.WithFlushTimeout(0)),
			expectedErr: sentinel.ErrInvalidFlushTimeout,
		},
		{
			name:        "accuracy out of range",
			config:      tracepath.NewConfig("svc", tracepath.WithRelativeAccuracy(1.5)),
			expectedErr: sentinel.ErrInvalidRelativeAccuracy,
		},
		{
			name:        "zero sketch bins",
			config:      tracepath.NewConfig("svc", tracepath.WithMaxSketchBins(0)),
			expectedErr: sentinel.ErrInvalidMaxSketchBins,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := tracepath.NewEngine(test.config)
			assert.Equal(t, test.expectedErr, err)
		})
	}
}

func TestEngine_RequestChain(t *testing.T) {
	engine := newTestEngine(t)

	// An inbound request with no propagation header is a root of graph.
	ctx := engine.Extract(context.Background(), otelpropagation.MapCarrier{})

	now := time.Now()

	ctx, serverKey := engine.OnSpanEnd(ctx, types.Span{
		Name: "GET /orders/{id}",
		Kind: trace.SpanKindServer,
		Attributes: []attribute.KeyValue{
			semconv.HTTPRequestMethodKey.String("GET"),
			semconv.HTTPRouteKey.String("/orders/{id}"),
		},
		StartTime: now,
		EndTime:   now.Add(40 * time.Millisecond),
		Sampled:   true,
	})

	assert.Equal(t, digest("checkout-service", constants.RootSentinel, "http:GET:/orders/{id}"), serverKey)

	// The database call chains off the server span's key.
	ctx, dbKey := engine.OnSpanEnd(ctx, types.Span{
		Name:       "SELECT orders",
		Kind:       trace.SpanKindClient,
		Attributes: []attribute.KeyValue{semconv.DBSystemKey.String("postgres")},
		StartTime:  now,
		EndTime:    now.Add(5 * time.Millisecond),
		Sampled:    true,
	})

	assert.Equal(t, digest("checkout-service", serverKey, "db:postgres"), dbKey)

	// Outbound carriers pick up the most recent key.
	outbound := otelpropagation.MapCarrier{}
	engine.Inject(ctx, outbound)
	assert.Equal(t, dbKey, outbound.Get(constants.PropagationKey))

	snap := engine.Snapshot()
	assert.Equal(t, 2, len(snap.Paths))
	assert.Equal(t, 2, engine.DistinctPaths())
}

func TestEngine_InboundKeyContinuation(t *testing.T) {
	engine := newTestEngine(t)

	upstreamKey := pathkey.NewComposer("gateway").Compose("", classifier.HTTPElement{Method: "GET", Route: "/"})

	ctx := engine.Extract(context.Background(), otelpropagation.MapCarrier{
		constants.PropagationKey: upstreamKey,
	})

	now := time.Now()

	_, serverKey := engine.OnSpanEnd(ctx, types.Span{
		Name:       "GET /orders",
		Kind:       trace.SpanKindServer,
		Attributes: []attribute.KeyValue{semconv.HTTPRequestMethodKey.String("GET")},
		StartTime:  now,
		EndTime:    now.Add(time.Millisecond),
		Sampled:    true,
	})

	assert.Equal(t, digest("checkout-service", upstreamKey, "http:GET"), serverKey)
}

func TestEngine_UnsampledSpanPassesThrough(t *testing.T) {
	engine := newTestEngine(t)

	now := time.Now()

	ctx, key := engine.OnSpanEnd(context.Background(), types.Span{
		Name:       "GET /orders",
		Kind:       trace.SpanKindServer,
		Attributes: []attribute.KeyValue{semconv.HTTPRequestMethodKey.String("GET")},
		StartTime:  now,
		EndTime:    now.Add(time.Millisecond),
		Sampled:    false,
	})

	assert.Equal(t, "", key)
	assert.Equal(t, 0, engine.DistinctPaths())

	// The carrier still gets the no-prior-path marker on the way out.
	outbound := otelpropagation.MapCarrier{}
	engine.Inject(ctx, outbound)
	assert.Equal(t, constants.NoPriorPathSentinel, outbound.Get(constants.PropagationKey))
}

func TestEngine_UnclassifiableSpanKeepsKey(t *testing.T) {
	engine := newTestEngine(t)

	now := time.Now()

	ctx, serverKey := engine.OnSpanEnd(context.Background(), types.Span{
		Name:       "GET /orders",
		Kind:       trace.SpanKindServer,
		Attributes: []attribute.KeyValue{semconv.HTTPRequestMethodKey.String("GET")},
		StartTime:  now,
		EndTime:    now.Add(time.Millisecond),
		Sampled:    true,
	})

	// An internal span with no recognized attributes is counted by kind and
	// leaves the propagated key untouched.
	ctx, key := engine.OnSpanEnd(ctx, types.Span{
		Name:      "compute-discount",
		Kind:      trace.SpanKindInternal,
		StartTime: now,
		EndTime:   now.Add(time.Millisecond),
		Sampled:   true,
	})

	assert.Equal(t, serverKey, key)

	// A later child still chains off the server key, skipping the
	// unclassifiable hop.
	_, dbKey := engine.OnSpanEnd(ctx, types.Span{
		Name:       "SELECT discounts",
		Kind:       trace.SpanKindClient,
		Attributes: []attribute.KeyValue{semconv.DBSystemKey.String("postgres")},
		StartTime:  now,
		EndTime:    now.Add(time.Millisecond),
		Sampled:    true,
	})

	assert.Equal(t, digest("checkout-service", serverKey, "db:postgres"), dbKey)

	snap := engine.Snapshot()
	assert.Equal(t, 1, len(snap.Unclassified))
	assert.Equal(t, trace.SpanKindInternal.String(), snap.Unclassified[0].SpanKind)
	assert.Equal(t, uint64(1), snap.Unclassified[0].Count)
}

func TestEngine_ErrorSpansBucketedByCode(t *testing.T) {
	engine := newTestEngine(t)

	now := time.Now()

	span := types.Span{
		Name:       "SELECT orders",
		Kind:       trace.SpanKindClient,
		Attributes: []attribute.KeyValue{semconv.DBSystemKey.String("postgres")},
		StartTime:  now,
		EndTime:    now.Add(time.Millisecond),
		Sampled:    true,
	}

	_, _ = engine.OnSpanEnd(context.Background(), span)

	span.StatusCode = codes.Error
	span.StatusDescription = "TIMEOUT"
	_, _ = engine.OnSpanEnd(context.Background(), span)

	snap := engine.Snapshot()
	assert.Equal(t, 1, len(snap.Paths))
	assert.Equal(t, uint64(2), snap.Paths[0].Throughput)
	assert.Equal(t, 1, len(snap.Errors))
	assert.Equal(t, "TIMEOUT", snap.Errors[0].ErrorCode)
	assert.Equal(t, uint64(1), snap.Errors[0].Count)
}

func TestEngine_FlushWithoutExporter(t *testing.T) {
	engine := newTestEngine(t)

	now := time.Now()

	_, _ = engine.OnSpanEnd(context.Background(), types.Span{
		Kind:       trace.SpanKindClient,
		Attributes: []attribute.KeyValue{semconv.DBSystemKey.String("postgres")},
		StartTime:  now,
		EndTime:    now.Add(time.Millisecond),
		Sampled:    true,
	})

	result, err := engine.Flush(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, types.FlushSuccess, result)
}

func TestEngine_StopIsIdempotent(t *testing.T) {
	engine, err := tracepath.NewEngine(tracepath.NewConfig("svc"))
	assert.Nil(t, err)

	engine.Stop()
	engine.Stop()
}
