package tracepath

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/propagation"

	"github.com/hyp3rd/tracepath/pkg/aggregator"
	"github.com/hyp3rd/tracepath/types"
)

// Service is the service interface for the tracepath Engine.
// It enables middleware to be added to the service.
type Service interface {
	observe
	// Snapshot returns a deterministic, non-destructive view of all current path metrics
	Snapshot() *aggregator.Snapshot
	// Flush exports the current snapshot and commits the exported deltas
	Flush(ctx context.Context) (types.FlushResult, error)
	// DistinctPaths returns the number of distinct path keys currently retained
	DistinctPaths() int
	// CardinalityThreshold returns the configured path cardinality bound
	CardinalityThreshold() int
	// FlushInterval returns the period of the background flush loop
	FlushInterval() time.Duration
	// AppIdentity returns the application identity mixed into every path key
	AppIdentity() string
	// Faults returns the number of span records dropped due to internal faults
	Faults() uint64
	// Stop stops the flush loop and performs a final bounded flush
	Stop()
}

type observe interface {
	// OnSpanEnd folds one finished span into the path metrics and returns the
	// context carrying the derived path key along with the key itself
	OnSpanEnd(ctx context.Context, span types.Span) (context.Context, string)
	// Extract reads the inbound path key from a carrier into the context
	Extract(ctx context.Context, carrier propagation.TextMapCarrier) context.Context
	// Inject writes the current path key, or the no-prior-path marker, into a carrier
	Inject(ctx context.Context, carrier propagation.TextMapCarrier)
}

// Middleware describes a service middleware.
type Middleware func(Service) Service

// ApplyMiddleware applies middlewares to a service.
func ApplyMiddleware(svc Service, mw ...Middleware) Service {
	// Apply each middleware in the chain
	for _, m := range mw {
		svc = m(svc)
	}
	// Return the decorated service
	return svc
}
