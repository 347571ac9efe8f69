package tracepath

import (
	"time"

	"github.com/hyp3rd/tracepath/internal/constants"
	"github.com/hyp3rd/tracepath/internal/sentinel"
	"github.com/hyp3rd/tracepath/pkg/aggregator"
	"github.com/hyp3rd/tracepath/pkg/classifier"
)

// Config wraps all the configuration options to set up an Engine. Build it
// with NewConfig and the functional options; invalid values are fatal in
// NewEngine, never at runtime.
type Config struct {
	// AppIdentity is the application/service identity string mixed into
	// every path-key digest.
	AppIdentity string
	// CardinalityThreshold is the maximum number of distinct path keys
	// retained with individual metric state.
	CardinalityThreshold int
	// FlushInterval is the period of the background flush loop.
	FlushInterval time.Duration
	// FlushTimeout bounds a single export attempt.
	FlushTimeout time.Duration
	// RelativeAccuracy is the relative error tolerance of the per-path
	// latency summaries.
	RelativeAccuracy float64
	// MaxSketchBins bounds the memory of a single latency summary.
	MaxSketchBins int
	// Exporter receives flushed snapshots. Optional: without one, flushes
	// commit locally and snapshots stay observable through Snapshot.
	Exporter aggregator.Exporter
	// Logger receives the engine's own diagnostics (flush failures, the
	// rate-limited overflow line). Optional.
	Logger Logger
	// Rules replaces the default classification table when non-empty.
	Rules []classifier.Rule
}

// Option is a function type that can be used to configure the Config.
type Option func(*Config)

// NewConfig returns a Config for the given application identity with default
// values:
//   - CardinalityThreshold: constants.DefaultCardinalityThreshold
//   - FlushInterval: constants.DefaultFlushInterval
//   - FlushTimeout: constants.DefaultFlushTimeout
//   - RelativeAccuracy: constants.DefaultRelativeAccuracy
//   - MaxSketchBins: constants.DefaultMaxSketchBins
//
// Each of the above can be overridden by passing options.
func NewConfig(appIdentity string, options ...Option) *Config {
	config := &Config{
		AppIdentity:          appIdentity,
		CardinalityThreshold: constants.DefaultCardinalityThreshold,
		FlushInterval:        constants.DefaultFlushInterval,
		FlushTimeout:         constants.DefaultFlushTimeout,
		RelativeAccuracy:     constants.DefaultRelativeAccuracy,
		MaxSketchBins:        constants.DefaultMaxSketchBins,
	}

	for _, option := range options {
		option(config)
	}

	return config
}

// WithCardinalityThreshold sets the maximum number of distinct path keys
// retained with individual metric state.
func WithCardinalityThreshold(threshold int) Option {
	return func(config *Config) {
		config.CardinalityThreshold = threshold
	}
}

// WithFlushInterval sets the period of the background flush loop.
func WithFlushInterval(interval time.Duration) Option {
	return func(config *Config) {
		config.FlushInterval = interval
	}
}

// WithFlushTimeout bounds a single export attempt.
func WithFlushTimeout(timeout time.Duration) Option {
	return func(config *Config) {
		config.FlushTimeout = timeout
	}
}

// WithRelativeAccuracy sets the relative error tolerance of the per-path
// latency summaries.
func WithRelativeAccuracy(accuracy float64) Option {
	return func(config *Config) {
		config.RelativeAccuracy = accuracy
	}
}

// WithMaxSketchBins bounds the memory of a single latency summary.
func WithMaxSketchBins(maxBins int) Option {
	return func(config *Config) {
		config.MaxSketchBins = maxBins
	}
}

// WithExporter sets the snapshot exporter.
func WithExporter(exporter aggregator.Exporter) Option {
	return func(config *Config) {
		config.Exporter = exporter
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger Logger) Option {
	return func(config *Config) {
		config.Logger = logger
	}
}

// WithClassifierRules replaces the default classification table.
func WithClassifierRules(rules ...classifier.Rule) Option {
	return func(config *Config) {
		config.Rules = rules
	}
}

// validate rejects configurations the engine must refuse to start with.
func (config *Config) validate() error {
	if config.AppIdentity == "" {
		return sentinel.ErrEmptyAppIdentity
	}

	if config.CardinalityThreshold <= 0 {
		return sentinel.ErrInvalidCardinalityThreshold
	}

	if config.FlushInterval <= 0 {
		return sentinel.ErrInvalidFlushInterval
	}

	if config.FlushTimeout <= 0 {
		return sentinel.ErrInvalidFlushTimeout
	}

	if config.RelativeAccuracy <= 0 || config.RelativeAccuracy >= 1 {
		return sentinel.ErrInvalidRelativeAccuracy
	}

	if config.MaxSketchBins <= 0 {
		return sentinel.ErrInvalidMaxSketchBins
	}

	return nil
}
