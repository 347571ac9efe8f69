// Package tracepath turns finished spans into bounded-cardinality path
// metrics. The Engine classifies each span into a generalized path element,
// folds the element into a propagated path key, aggregates latency,
// throughput, and error counts per key, and flushes snapshots to an exporter
// on a fixed cycle.
package tracepath

import (
	"context"
	"sync"
	"time"

	otelpropagation "go.opentelemetry.io/otel/propagation"

	"github.com/hyp3rd/tracepath/internal/constants"
	"github.com/hyp3rd/tracepath/pkg/aggregator"
	"github.com/hyp3rd/tracepath/pkg/classifier"
	"github.com/hyp3rd/tracepath/pkg/pathkey"
	"github.com/hyp3rd/tracepath/pkg/propagation"
	"github.com/hyp3rd/tracepath/types"
)

// Logger describes a logging interface allowing to plug in different external,
// or custom loggers.
type Logger interface {
	Printf(format string, v ...any)
}

// Engine coordinates the classifier, path-key composer, propagation bridge,
// and aggregator. The classifier, composer, and bridge are stateless; the
// aggregator is the only component with shared mutable state. The background
// flush loop is started in NewEngine and runs until Stop.
type Engine struct {
	config     *Config
	classifier *classifier.Classifier
	composer   *pathkey.Composer
	bridge     propagation.Bridge
	aggregator *aggregator.Aggregator
	stop       chan bool // channel to signal the flush loop to stop
	once       sync.Once // used to ensure that the flush loop is only started once
	stopOnce   sync.Once
}

var _ Service = (*Engine)(nil)

// NewEngine creates an engine from the given configuration and starts the
// background flush loop. Invalid configuration is fatal here; nothing on the
// recording path returns an error afterwards.
func NewEngine(config *Config) (*Engine, error) {
	err := config.validate()
	if err != nil {
		return nil, err
	}

	agg, err := aggregator.New(
		aggregator.WithCardinalityThreshold(config.CardinalityThreshold),
		aggregator.WithRelativeAccuracy(config.RelativeAccuracy),
		aggregator.WithMaxSketchBins(config.MaxSketchBins),
		aggregator.WithFlushTimeout(config.FlushTimeout),
		aggregator.WithExporter(config.Exporter),
		aggregator.WithLogger(config.Logger),
		aggregator.WithLogInterval(config.FlushInterval),
	)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:     config,
		classifier: classifier.New(config.Rules...),
		composer:   pathkey.NewComposer(config.AppIdentity),
		aggregator: agg,
		stop:       make(chan bool, 1),
	}

	engine.once.Do(func() {
		tick := time.NewTicker(config.FlushInterval)
		go func() {
			defer tick.Stop()

			for {
				select {
				case <-tick.C:
					engine.flushCycle()
				case <-engine.stop:
					return
				}
			}
		}()
	})

	return engine, nil
}

// flushCycle runs one scheduled flush. Failures are logged and otherwise
// absorbed; the unexported deltas stay in place for the next cycle.
func (e *Engine) flushCycle() {
	result, err := e.aggregator.Flush(context.Background())
	if err != nil && e.config.Logger != nil {
		e.config.Logger.Printf("flush finished with result %s: %v", result, err)
	}
}

// OnSpanEnd folds one finished span into the path metrics. It returns the
// context carrying the derived path key, ready for injection into outbound
// carriers, along with the key itself.
//
// Unsampled spans pass through untouched. Unclassifiable spans are counted by
// kind and leave the propagated key unchanged, so a child of an
// unclassifiable span chains from the nearest classified ancestor.
func (e *Engine) OnSpanEnd(ctx context.Context, span types.Span) (context.Context, string) {
	incoming, _ := propagation.FromContext(ctx)

	if !span.Sampled {
		return ctx, incoming
	}

	element, ok := e.classifier.Classify(span)
	if !ok {
		e.aggregator.RecordUnclassified(span.Kind)

		return ctx, incoming
	}

	pathKey := e.composer.Compose(incoming, element)
	e.aggregator.Record(pathKey, span.Latency(), span.IsError(), span.ErrorCode())

	return propagation.ContextWithPathKey(ctx, pathKey), pathKey
}

// Extract reads the inbound path key from the carrier into the context.
func (e *Engine) Extract(ctx context.Context, carrier otelpropagation.TextMapCarrier) context.Context {
	return e.bridge.Extract(ctx, carrier)
}

// Inject writes the current path key, or the no-prior-path marker, into the
// carrier.
func (e *Engine) Inject(ctx context.Context, carrier otelpropagation.TextMapCarrier) {
	e.bridge.Inject(ctx, carrier)
}

// Snapshot returns a deterministic, non-destructive view of all current path
// metrics.
func (e *Engine) Snapshot() *aggregator.Snapshot {
	return e.aggregator.Snapshot()
}

// Flush exports the current snapshot and commits the exported deltas.
func (e *Engine) Flush(ctx context.Context) (types.FlushResult, error) {
	return e.aggregator.Flush(ctx)
}

// DistinctPaths returns the number of distinct path keys currently retained,
// excluding the overflow bucket.
func (e *Engine) DistinctPaths() int {
	return e.aggregator.DistinctPaths()
}

// CardinalityThreshold returns the configured path cardinality bound.
func (e *Engine) CardinalityThreshold() int {
	return e.aggregator.Threshold()
}

// FlushInterval returns the period of the background flush loop.
func (e *Engine) FlushInterval() time.Duration {
	return e.config.FlushInterval
}

// AppIdentity returns the application identity mixed into every path key.
func (e *Engine) AppIdentity() string {
	return e.composer.AppIdentity()
}

// Faults returns the number of span records dropped due to internal faults.
func (e *Engine) Faults() uint64 {
	return e.aggregator.Faults()
}

// Stop stops the flush loop and performs one final flush bounded by the
// shutdown timeout, so the last partial cycle is not lost.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.stop <- true
		close(e.stop)

		ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultShutdownTimeout)
		defer cancel()

		result, err := e.aggregator.Flush(ctx)
		if err != nil && e.config.Logger != nil {
			e.config.Logger.Printf("final flush finished with result %s: %v", result, err)
		}
	})
}
