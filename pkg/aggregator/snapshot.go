package aggregator

import (
	"cmp"
	"slices"
)

// PathStat is the aggregated view of one path key at snapshot time. Latency
// quantiles are nanoseconds; Throughput is the delta since the last
// committed flush.
type PathStat struct {
	PathKey    string  `json:"path_key"`
	P50        float64 `json:"p50"`
	P90        float64 `json:"p90"`
	P95        float64 `json:"p95"`
	P99        float64 `json:"p99"`
	Throughput uint64  `json:"throughput_delta"`
}

// ErrorStat is the error-count delta for one (path key, error code) pair.
type ErrorStat struct {
	PathKey   string `json:"path_key"`
	ErrorCode string `json:"error_code"`
	Count     uint64 `json:"error_count_delta"`
}

// KindStat counts spans that failed classification, keyed only by span kind.
type KindStat struct {
	SpanKind string `json:"span_kind"`
	Count    uint64 `json:"count"`
}

// Snapshot is an immutable, deterministic view of all current records.
// Entries are sorted, so two snapshots taken without intervening records are
// equal.
type Snapshot struct {
	Paths        []PathStat  `json:"paths"`
	Errors       []ErrorStat `json:"errors"`
	Overflow     *PathStat   `json:"overflow,omitempty"`
	Unclassified []KindStat  `json:"unclassified,omitempty"`
}

// sort orders all snapshot entries deterministically.
func (s *Snapshot) sort() {
	slices.SortFunc(s.Paths, func(a, b PathStat) int {
		return cmp.Compare(a.PathKey, b.PathKey)
	})
	slices.SortFunc(s.Errors, func(a, b ErrorStat) int {
		if c := cmp.Compare(a.PathKey, b.PathKey); c != 0 {
			return c
		}

		return cmp.Compare(a.ErrorCode, b.ErrorCode)
	})
	slices.SortFunc(s.Unclassified, func(a, b KindStat) int {
		return cmp.Compare(a.SpanKind, b.SpanKind)
	})
}
