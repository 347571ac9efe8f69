package aggregator_test

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/longbridgeapp/assert"
	"go.opentelemetry.io/otel/trace"

	"github.com/hyp3rd/tracepath/internal/sentinel"
	"github.com/hyp3rd/tracepath/pkg/aggregator"
	"github.com/hyp3rd/tracepath/types"
)

// captureExporter records exported snapshots and returns a scripted error.
type captureExporter struct {
	mu        sync.Mutex
	snapshots []*aggregator.Snapshot
	err       error
	block     bool
}

func (e *captureExporter) Export(ctx context.Context, snapshot *aggregator.Snapshot) error {
	if e.block {
		<-ctx.Done()

		return ctx.Err()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.snapshots = append(e.snapshots, snapshot)

	return e.err
}

func (e *captureExporter) exported() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.snapshots)
}

func TestAggregator_InvalidOptions(t *testing.T) {
	tests := []struct {
		name        string
		options     []aggregator.Option
		expectedErr error
	}{
		{
			name:        "zero threshold",
			options:     []aggregator.Option{aggregator.WithCardinalityThreshold(0)},
			expectedErr: sentinel.ErrInvalidCardinalityThreshold,
		},
		{
			name:        "accuracy too large",
			options:     []aggregator.Option{aggregator.WithRelativeAccuracy(1)},
			expectedErr: sentinel.ErrInvalidRelativeAccuracy,
		},
		{
			name:        "negative accuracy",
			options:     []aggregator.Option{aggregator.WithRelativeAccuracy(-0.5)},
			expectedErr: sentinel.ErrInvalidRelativeAccuracy,
		},
		{
			name:        "zero bins",
			options:     []aggregator.Option{aggregator.WithMaxSketchBins(0)},
			expectedErr: sentinel.ErrInvalidMaxSketchBins,
		},
		{
			name:        "zero flush timeout",
			options:     []aggregator.Option{aggregator.WithFlushTimeout(0)},
			expectedErr: sentinel.ErrInvalidFlushTimeout,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := aggregator.New(test.options...)
			assert.Equal(t, test.expectedErr, err)
		})
	}
}

func TestAggregator_CardinalityBound(t *testing.T) {
	const (
		threshold  = 100
		uniqueKeys = 10000
	)

	agg, err := aggregator.New(aggregator.WithCardinalityThreshold(threshold))
	assert.Nil(t, err)

	for i := range uniqueKeys {
		agg.Record(fmt.Sprintf("key-%05d", i), time.Millisecond, false, "")
	}

	assert.Equal(t, threshold, agg.DistinctPaths())

	snap := agg.Snapshot()
	assert.Equal(t, threshold, len(snap.Paths))
	assert.True(t, snap.Overflow != nil)
	assert.Equal(t, uint64(uniqueKeys-threshold), snap.Overflow.Throughput)
}

func TestAggregator_KnownKeysKeepRecordingPastThreshold(t *testing.T) {
	agg, err := aggregator.New(aggregator.WithCardinalityThreshold(2))
	assert.Nil(t, err)

	agg.Record("key-a", time.Millisecond, false, "")
	agg.Record("key-b", time.Millisecond, false, "")
	agg.Record("key-c", time.Millisecond, false, "")
	agg.Record("key-a", time.Millisecond, false, "")

	snap := agg.Snapshot()
	assert.Equal(t, 2, len(snap.Paths))

	for _, stat := range snap.Paths {
		if stat.PathKey == "key-a" {
			assert.Equal(t, uint64(2), stat.Throughput)
		}
	}

	assert.True(t, snap.Overflow != nil)
	assert.Equal(t, uint64(1), snap.Overflow.Throughput)
}

func TestAggregator_ErrorCounting(t *testing.T) {
	agg, err := aggregator.New()
	assert.Nil(t, err)

	agg.Record("key-a", time.Millisecond, false, "")
	agg.Record("key-a", time.Millisecond, true, "TIMEOUT")
	agg.Record("key-a", time.Millisecond, true, "TIMEOUT")
	agg.Record("key-b", time.Millisecond, true, "error")

	snap := agg.Snapshot()
	assert.Equal(t, 2, len(snap.Errors))

	assert.Equal(t, "key-a", snap.Errors[0].PathKey)
	assert.Equal(t, "TIMEOUT", snap.Errors[0].ErrorCode)
	assert.Equal(t, uint64(2), snap.Errors[0].Count)

	assert.Equal(t, "key-b", snap.Errors[1].PathKey)
	assert.Equal(t, "error", snap.Errors[1].ErrorCode)
	assert.Equal(t, uint64(1), snap.Errors[1].Count)
}

func TestAggregator_SnapshotIsNonDestructive(t *testing.T) {
	agg, err := aggregator.New()
	assert.Nil(t, err)

	agg.Record("key-a", 5*time.Millisecond, true, "error")
	agg.Record("key-b", 10*time.Millisecond, false, "")
	agg.RecordUnclassified(trace.SpanKindInternal)

	first := agg.Snapshot()
	second := agg.Snapshot()

	assert.Equal(t, first, second)
}

func TestAggregator_QuantileAccuracy(t *testing.T) {
	const accuracy = 0.01

	agg, err := aggregator.New(aggregator.WithRelativeAccuracy(accuracy))
	assert.Nil(t, err)

	for i := 1; i <= 1000; i++ {
		agg.Record("key-a", time.Duration(i)*time.Millisecond, false, "")
	}

	snap := agg.Snapshot()
	assert.Equal(t, 1, len(snap.Paths))

	stat := snap.Paths[0]
	assert.Equal(t, uint64(1000), stat.Throughput)

	// The sketch guarantees a relative error bound; allow a little slack on
	// top for rank interpolation.
	for expected, actual := range map[float64]float64{
		500: stat.P50,
		900: stat.P90,
		950: stat.P95,
		990: stat.P99,
	} {
		expectedNs := expected * float64(time.Millisecond)
		if math.Abs(actual-expectedNs)/expectedNs >= 3*accuracy {
			t.Errorf("quantile %vns off: got %vns", expectedNs, actual)
		}
	}
}

func TestAggregator_FlushCommitsDeltas(t *testing.T) {
	exporter := &captureExporter{}

	agg, err := aggregator.New(aggregator.WithExporter(exporter))
	assert.Nil(t, err)

	agg.Record("key-a", time.Millisecond, true, "error")
	agg.RecordUnclassified(trace.SpanKindInternal)

	result, err := agg.Flush(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, types.FlushSuccess, result)
	assert.Equal(t, 1, exporter.exported())

	// All deltas were committed: the next snapshot is empty of activity.
	snap := agg.Snapshot()
	assert.Equal(t, uint64(0), snap.Paths[0].Throughput)
	assert.Equal(t, 0, len(snap.Errors))
	assert.Equal(t, 0, len(snap.Unclassified))
}

func TestAggregator_FailedFlushKeepsDeltas(t *testing.T) {
	exporter := &captureExporter{err: sentinel.ErrNilWriter}

	agg, err := aggregator.New(aggregator.WithExporter(exporter))
	assert.Nil(t, err)

	agg.Record("key-a", time.Millisecond, false, "")

	result, err := agg.Flush(context.Background())
	assert.Equal(t, types.FlushPartial, result)
	assert.True(t, err != nil)

	// Nothing was committed, so the delta rides into the next cycle.
	snap := agg.Snapshot()
	assert.Equal(t, uint64(1), snap.Paths[0].Throughput)

	exporter.err = nil

	result, err = agg.Flush(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, types.FlushSuccess, result)

	snap = agg.Snapshot()
	assert.Equal(t, uint64(0), snap.Paths[0].Throughput)
}

func TestAggregator_FlushTimeout(t *testing.T) {
	exporter := &captureExporter{block: true}

	agg, err := aggregator.New(
		aggregator.WithExporter(exporter),
		aggregator.WithFlushTimeout(20*time.Millisecond),
	)
	assert.Nil(t, err)

	agg.Record("key-a", time.Millisecond, false, "")

	result, err := agg.Flush(context.Background())
	assert.Equal(t, types.FlushTimeout, result)
	assert.Equal(t, sentinel.ErrFlushTimeout, err)

	snap := agg.Snapshot()
	assert.Equal(t, uint64(1), snap.Paths[0].Throughput)
}

func TestAggregator_FlushWithoutExporter(t *testing.T) {
	agg, err := aggregator.New()
	assert.Nil(t, err)

	agg.Record("key-a", time.Millisecond, false, "")

	result, err := agg.Flush(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, types.FlushSuccess, result)

	snap := agg.Snapshot()
	assert.Equal(t, uint64(0), snap.Paths[0].Throughput)
}

func TestAggregator_RecordsAccumulateDuringFlush(t *testing.T) {
	agg, err := aggregator.New()
	assert.Nil(t, err)

	agg.Record("key-a", time.Millisecond, false, "")

	snap := agg.Snapshot()

	// A record lands between snapshot and commit; the watermark must advance
	// only by the exported amount.
	agg.Record("key-a", time.Millisecond, false, "")

	_, err = agg.Flush(context.Background())
	assert.Nil(t, err)

	final := agg.Snapshot()
	assert.Equal(t, uint64(1), snap.Paths[0].Throughput)
	assert.True(t, final.Paths[0].Throughput >= 1)
}

func TestAggregator_ConcurrentRecord(t *testing.T) {
	const (
		workers   = 8
		perWorker = 500
	)

	agg, err := aggregator.New(aggregator.WithCardinalityThreshold(4))
	assert.Nil(t, err)

	var wg sync.WaitGroup

	for w := range workers {
		wg.Add(1)

		go func(worker int) {
			defer wg.Done()

			for i := range perWorker {
				agg.Record(fmt.Sprintf("key-%d", (worker+i)%16), time.Millisecond, false, "")
			}
		}(w)
	}

	wg.Wait()

	assert.Equal(t, 4, agg.DistinctPaths())

	snap := agg.Snapshot()

	var total uint64
	for _, stat := range snap.Paths {
		total += stat.Throughput
	}

	if snap.Overflow != nil {
		total += snap.Overflow.Throughput
	}

	assert.Equal(t, uint64(workers*perWorker), total)
	assert.Equal(t, uint64(0), agg.Faults())
}

func TestAggregator_UnclassifiedCountedByKind(t *testing.T) {
	agg, err := aggregator.New()
	assert.Nil(t, err)

	agg.RecordUnclassified(trace.SpanKindInternal)
	agg.RecordUnclassified(trace.SpanKindInternal)
	agg.RecordUnclassified(trace.SpanKindProducer)

	snap := agg.Snapshot()
	assert.Equal(t, 2, len(snap.Unclassified))
	assert.Equal(t, trace.SpanKindInternal.String(), snap.Unclassified[0].SpanKind)
	assert.Equal(t, uint64(2), snap.Unclassified[0].Count)
	assert.Equal(t, trace.SpanKindProducer.String(), snap.Unclassified[1].SpanKind)
	assert.Equal(t, uint64(1), snap.Unclassified[1].Count)
}
