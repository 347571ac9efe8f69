// Package aggregator provides the concurrent, bounded-cardinality store
// mapping path keys to latency distribution summaries, throughput counters,
// and error counters. Recording never blocks the caller meaningfully and
// never panics out; snapshots are taken on a fixed cycle independent of
// request traffic.
package aggregator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyp3rd/ewrap"
	"go.opentelemetry.io/otel/trace"

	"github.com/hyp3rd/tracepath/internal/constants"
	"github.com/hyp3rd/tracepath/internal/sentinel"
	"github.com/hyp3rd/tracepath/types"
)

// Exporter ships a flushed snapshot to an external metrics consumer.
type Exporter interface {
	// Export delivers one snapshot. It must honor ctx cancellation.
	Export(ctx context.Context, snapshot *Snapshot) error
}

// Logger describes a logging interface allowing to plug in different
// external, or custom loggers.
type Logger interface {
	Printf(format string, v ...any)
}

// kindCounter counts unclassified spans of one kind.
type kindCounter struct {
	count   uint64
	flushed uint64
}

// Aggregator is the only engine component with shared mutable state. All
// mutation goes through Record and RecordUnclassified; reads go through
// Snapshot.
type Aggregator struct {
	records  *recordStore
	overflow *record
	distinct atomic.Int64
	faults   atomic.Uint64

	unclassifiedMu sync.Mutex
	unclassified   map[string]*kindCounter

	threshold        int64
	relativeAccuracy float64
	maxSketchBins    int
	flushTimeout     time.Duration
	logInterval      time.Duration
	overflowLoggedAt atomic.Int64

	exporter Exporter
	logger   Logger
}

// Option is a function type that can be used to configure the Aggregator.
type Option func(*Aggregator)

// WithCardinalityThreshold sets the maximum number of distinct path keys
// retained with individual metric state. Beyond it, new keys coalesce into
// the overflow bucket.
func WithCardinalityThreshold(threshold int) Option {
	return func(a *Aggregator) {
		a.threshold = int64(threshold)
	}
}

// WithRelativeAccuracy sets the relative error tolerance of the per-key
// latency sketches.
func WithRelativeAccuracy(accuracy float64) Option {
	return func(a *Aggregator) {
		a.relativeAccuracy = accuracy
	}
}

// WithMaxSketchBins bounds the memory of a single latency sketch.
func WithMaxSketchBins(maxBins int) Option {
	return func(a *Aggregator) {
		a.maxSketchBins = maxBins
	}
}

// WithFlushTimeout bounds a single export attempt.
func WithFlushTimeout(timeout time.Duration) Option {
	return func(a *Aggregator) {
		a.flushTimeout = timeout
	}
}

// WithExporter sets the snapshot exporter. Without one, Flush commits
// locally and the snapshot is only observable through Snapshot.
func WithExporter(exporter Exporter) Option {
	return func(a *Aggregator) {
		a.exporter = exporter
	}
}

// WithLogger sets the logger used for the rate-limited overflow line.
func WithLogger(logger Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// WithLogInterval sets the window of the overflow log rate limit; it should
// match the engine's flush interval.
func WithLogInterval(interval time.Duration) Option {
	return func(a *Aggregator) {
		a.logInterval = interval
	}
}

// New creates an aggregator with the given options. Invalid settings are
// fatal here rather than surfacing later on the recording path.
func New(options ...Option) (*Aggregator, error) {
	agg := &Aggregator{
		records:          newRecordStore(),
		unclassified:     make(map[string]*kindCounter),
		threshold:        constants.DefaultCardinalityThreshold,
		relativeAccuracy: constants.DefaultRelativeAccuracy,
		maxSketchBins:    constants.DefaultMaxSketchBins,
		flushTimeout:     constants.DefaultFlushTimeout,
		logInterval:      constants.DefaultFlushInterval,
	}

	for _, option := range options {
		option(agg)
	}

	if agg.threshold <= 0 {
		return nil, sentinel.ErrInvalidCardinalityThreshold
	}

	if agg.relativeAccuracy <= 0 || agg.relativeAccuracy >= 1 {
		return nil, sentinel.ErrInvalidRelativeAccuracy
	}

	if agg.maxSketchBins <= 0 {
		return nil, sentinel.ErrInvalidMaxSketchBins
	}

	if agg.flushTimeout <= 0 {
		return nil, sentinel.ErrInvalidFlushTimeout
	}

	overflow, err := newRecord(agg.relativeAccuracy, agg.maxSketchBins)
	if err != nil {
		return nil, err
	}

	agg.overflow = overflow

	return agg, nil
}

// Record folds one span outcome into the per-path state. It never raises: on
// any internal fault the record is dropped and the fault counter incremented.
func (a *Aggregator) Record(pathKey string, latency time.Duration, isError bool, errorCode string) {
	defer func() {
		if recovered := recover(); recovered != nil {
			a.faults.Add(1)
		}
	}()

	rec := a.lookup(pathKey)
	rec.observe(latency, isError, errorCode)
}

// lookup resolves the record for a path key, redirecting to the overflow
// bucket once the cardinality threshold is reached.
func (a *Aggregator) lookup(pathKey string) *record {
	if rec, ok := a.records.get(pathKey); ok {
		return rec
	}

	rec, overflowed := a.records.getOrCreate(pathKey, &a.distinct, a.threshold, func() *record {
		// The sketch parameters were validated at construction time, so the
		// only failure mode left is allocation, which panics on its own.
		newRec, _ := newRecord(a.relativeAccuracy, a.maxSketchBins)

		return newRec
	})
	if overflowed {
		a.noteOverflow()

		return a.overflow
	}

	return rec
}

// RecordUnclassified counts a span that failed classification, keyed only by
// its kind. Unclassified spans never contribute to a path key.
func (a *Aggregator) RecordUnclassified(kind trace.SpanKind) {
	a.unclassifiedMu.Lock()
	defer a.unclassifiedMu.Unlock()

	counter, ok := a.unclassified[kind.String()]
	if !ok {
		counter = &kindCounter{}
		a.unclassified[kind.String()] = counter
	}

	counter.count++
}

// Snapshot returns an immutable, deterministic view of all current records.
// It mutates nothing: calling it twice without intervening records yields
// equal results.
func (a *Aggregator) Snapshot() *Snapshot {
	snap := &Snapshot{}

	a.records.iter(func(pathKey string, rec *record) {
		stat, errStats := rec.capture(pathKey)
		snap.Paths = append(snap.Paths, stat)
		snap.Errors = append(snap.Errors, errStats...)
	})

	overflowStat, overflowErrs := a.overflow.capture(constants.OverflowPathKey)
	if overflowStat.Throughput > 0 || len(overflowErrs) > 0 {
		snap.Overflow = &overflowStat
		snap.Errors = append(snap.Errors, overflowErrs...)
	}

	a.unclassifiedMu.Lock()
	for kind, counter := range a.unclassified {
		delta := counter.count - counter.flushed
		if delta > 0 {
			snap.Unclassified = append(snap.Unclassified, KindStat{SpanKind: kind, Count: delta})
		}
	}
	a.unclassifiedMu.Unlock()

	snap.sort()

	return snap
}

// Flush takes a snapshot, hands it to the exporter bounded by the flush
// timeout, and commits the exported deltas on success. On exporter failure
// or timeout nothing is committed; the outstanding deltas ride along into
// the next cycle, so no data is lost short of process death.
func (a *Aggregator) Flush(ctx context.Context) (types.FlushResult, error) {
	snap := a.Snapshot()

	if a.exporter == nil {
		a.commit(snap)

		return types.FlushSuccess, nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.flushTimeout)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- a.exporter.Export(ctx, snap)
	}()

	select {
	case err := <-done:
		if err != nil {
			return types.FlushPartial, ewrap.Wrap(err, "export snapshot")
		}

		a.commit(snap)

		return types.FlushSuccess, nil
	case <-ctx.Done():
		return types.FlushTimeout, sentinel.ErrFlushTimeout
	}
}

// commit advances the flush watermarks by the deltas the snapshot carried.
func (a *Aggregator) commit(snap *Snapshot) {
	errsByKey := make(map[string][]ErrorStat, len(snap.Errors))
	for _, errStat := range snap.Errors {
		errsByKey[errStat.PathKey] = append(errsByKey[errStat.PathKey], errStat)
	}

	for _, stat := range snap.Paths {
		if rec, ok := a.records.get(stat.PathKey); ok {
			rec.commit(stat, errsByKey[stat.PathKey])
		}
	}

	if snap.Overflow != nil {
		a.overflow.commit(*snap.Overflow, errsByKey[constants.OverflowPathKey])
	}

	a.unclassifiedMu.Lock()
	for _, kindStat := range snap.Unclassified {
		if counter, ok := a.unclassified[kindStat.SpanKind]; ok {
			counter.flushed += kindStat.Count
		}
	}
	a.unclassifiedMu.Unlock()
}

// noteOverflow logs the threshold transition at most once per log interval,
// so the logging path cannot become a throughput bottleneck.
func (a *Aggregator) noteOverflow() {
	if a.logger == nil {
		return
	}

	now := time.Now().UnixNano()

	last := a.overflowLoggedAt.Load()
	if now-last < a.logInterval.Nanoseconds() {
		return
	}

	if a.overflowLoggedAt.CompareAndSwap(last, now) {
		a.logger.Printf("path cardinality threshold %d reached, coalescing new keys into the overflow bucket", a.threshold)
	}
}

// DistinctPaths returns the number of distinct path keys currently retained,
// excluding the overflow bucket.
func (a *Aggregator) DistinctPaths() int {
	return a.records.count()
}

// Threshold returns the configured cardinality threshold.
func (a *Aggregator) Threshold() int {
	return int(a.threshold)
}

// Faults returns the number of records dropped due to internal faults.
func (a *Aggregator) Faults() uint64 {
	return a.faults.Load()
}
