// Package constants defines default configuration values and reserved tokens
// for the tracepath engine. It provides the well-known propagation key, the
// path-key sentinels, and the standard aggregation settings.
package constants

import "time"

const (
	// PropagationKey is the well-known carrier key used to move path keys
	// across process boundaries. A single key serves header-based,
	// message-property-based, and metadata-based carriers alike.
	PropagationKey = "x-path-key"

	// RootSentinel is substituted for an absent incoming path key before
	// hashing, so that root-of-graph spans stay distinguishable from hops
	// whose upstream never propagated anything.
	RootSentinel = "0000000000000000"

	// NoPriorPathSentinel is written to outbound carriers when no path key
	// exists yet. It lets the downstream hop tell "instrumented but empty"
	// apart from "never instrumented". Distinct from RootSentinel.
	NoPriorPathSentinel = "ffffffffffffffff"

	// OverflowPathKey is the single shared bucket that absorbs new path keys
	// once the cardinality threshold is reached.
	OverflowPathKey = "overflow"

	// PathKeyLength is the length of a composed path key: a hex-encoded
	// 256-bit digest.
	PathKeyLength = 64

	// DefaultCardinalityThreshold is the default maximum number of distinct
	// path keys retained with individual metric state.
	DefaultCardinalityThreshold = 2000

	// DefaultFlushInterval is the default period of the background flush loop.
	DefaultFlushInterval = 60 * time.Second

	// DefaultFlushTimeout bounds a single export attempt.
	DefaultFlushTimeout = 10 * time.Second

	// DefaultShutdownTimeout bounds the best-effort final flush on Stop.
	DefaultShutdownTimeout = 5 * time.Second

	// DefaultRelativeAccuracy is the default relative error tolerance of the
	// per-key latency sketches.
	DefaultRelativeAccuracy = 0.01

	// DefaultMaxSketchBins bounds the memory of a single latency sketch
	// regardless of sample count.
	DefaultMaxSketchBins = 1024

	// RedisSnapshotList is the default Redis list receiving exported snapshots.
	RedisSnapshotList = "tracepath:snapshots"
)
