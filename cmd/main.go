package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelpropagation "go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/hyp3rd/tracepath"
	"github.com/hyp3rd/tracepath/pkg/export"
	"github.com/hyp3rd/tracepath/types"
)

func main() {
	exporter, err := export.NewWriterExporter(os.Stdout, "default")
	if err != nil {
		fmt.Println(err)

		return
	}

	engine, err := tracepath.NewEngine(tracepath.NewConfig("checkout-service",
		tracepath.WithFlushInterval(30*time.Second),
		tracepath.WithCardinalityThreshold(500),
		tracepath.WithExporter(exporter),
		tracepath.WithLogger(log.Default()),
	))
	if err != nil {
		fmt.Println(err)

		return
	}
	defer engine.Stop()

	// Simulate an inbound request that already carries a path key from an
	// upstream service.
	inbound := otelpropagation.MapCarrier{}
	ctx := engine.Extract(context.Background(), inbound)

	now := time.Now()

	// The HTTP server span for the request itself.
	ctx, serverKey := engine.OnSpanEnd(ctx, types.Span{
		Name: "GET /orders/{id}",
		Kind: trace.SpanKindServer,
		Attributes: []attribute.KeyValue{
			semconv.HTTPRequestMethodKey.String("GET"),
			semconv.HTTPRouteKey.String("/orders/{id}"),
		},
		StartTime: now,
		EndTime:   now.Add(42 * time.Millisecond),
		Sampled:   true,
	})
	fmt.Println("server path key:", serverKey)

	// A database call made while handling the request chains off the server key.
	ctx, dbKey := engine.OnSpanEnd(ctx, types.Span{
		Name: "SELECT orders",
		Kind: trace.SpanKindClient,
		Attributes: []attribute.KeyValue{
			semconv.DBSystemKey.String("postgresql"),
		},
		StartTime:  now,
		EndTime:    now.Add(7 * time.Millisecond),
		StatusCode: codes.Error,
		Sampled:    true,
	})
	fmt.Println("db path key:", dbKey)

	// Outbound carriers pick up the latest key.
	outbound := otelpropagation.MapCarrier{}
	engine.Inject(ctx, outbound)
	fmt.Println("outbound carrier:", outbound)

	snap := engine.Snapshot()
	for _, stat := range snap.Paths {
		fmt.Printf("path %s: p99=%.0fns throughput=%d\n", stat.PathKey, stat.P99, stat.Throughput)
	}

	for _, errStat := range snap.Errors {
		fmt.Printf("errors on %s: %s=%d\n", errStat.PathKey, errStat.ErrorCode, errStat.Count)
	}
}
