package aggregator

import (
	"sync"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"
	"github.com/hyp3rd/ewrap"
)

// record holds the aggregation state for one path key: a latency sketch with
// bounded relative error and bounded memory, a monotonic throughput counter,
// and per-error-code monotonic counters. The flushed watermarks track what
// has already been committed to the exporter, so snapshots are
// non-destructive and a failed flush loses nothing.
type record struct {
	mu sync.Mutex

	sketch        *ddsketch.DDSketch
	count         uint64
	flushedCount  uint64
	errors        map[string]uint64
	flushedErrors map[string]uint64
}

// newRecord creates a record whose sketch guarantees the given relative
// accuracy while collapsing the lowest bins once maxBins is reached, keeping
// per-key memory bounded regardless of sample count.
func newRecord(relativeAccuracy float64, maxBins int) (*record, error) {
	sketch, err := ddsketch.LogCollapsingLowestDenseDDSketch(relativeAccuracy, maxBins)
	if err != nil {
		return nil, ewrap.Wrap(err, "create latency sketch")
	}

	return &record{sketch: sketch}, nil
}

// observe folds one span outcome into the record.
func (r *record) observe(latency time.Duration, isError bool, errorCode string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Sketch insertion only fails on non-finite values, which a duration
	// cannot produce; the count stays authoritative either way.
	_ = r.sketch.Add(float64(latency.Nanoseconds()))
	r.count++

	if isError {
		if r.errors == nil {
			r.errors = make(map[string]uint64)
		}

		r.errors[errorCode]++
	}
}

// capture reads the record's current deltas and quantiles without mutating
// anything. Quantiles are cumulative over the sketch lifetime; counters are
// deltas since the last committed flush.
func (r *record) capture(pathKey string) (PathStat, []ErrorStat) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stat := PathStat{
		PathKey:    pathKey,
		Throughput: r.count - r.flushedCount,
	}

	if r.sketch.GetCount() > 0 {
		stat.P50 = r.quantile(0.50)
		stat.P90 = r.quantile(0.90)
		stat.P95 = r.quantile(0.95)
		stat.P99 = r.quantile(0.99)
	}

	var errStats []ErrorStat

	for code, count := range r.errors {
		delta := count - r.flushedErrors[code]
		if delta == 0 {
			continue
		}

		errStats = append(errStats, ErrorStat{PathKey: pathKey, ErrorCode: code, Count: delta})
	}

	return stat, errStats
}

// quantile must be called with the record lock held.
func (r *record) quantile(q float64) float64 {
	value, err := r.sketch.GetValueAtQuantile(q)
	if err != nil {
		return 0
	}

	return value
}

// commit advances the flush watermarks by the deltas that were just exported.
// Records keep accumulating while a flush is in flight, so the watermark
// moves by the exported amount rather than jumping to the live counters.
func (r *record) commit(stat PathStat, errStats []ErrorStat) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.flushedCount += stat.Throughput

	if len(errStats) > 0 && r.flushedErrors == nil {
		r.flushedErrors = make(map[string]uint64)
	}

	for _, errStat := range errStats {
		r.flushedErrors[errStat.ErrorCode] += errStat.Count
	}
}
