package mseed

import (
	"log/slog"

	"github.com/hupe1980/mseed/record"
)

const (
	// DefaultTimeTolerance is the fraction of a sample period within which
	// data is considered contiguous.
	DefaultTimeTolerance = 0.5

	// DefaultSampleRateTolerance is the relative difference within which two
	// sample rates are considered equal.
	DefaultSampleRateTolerance = 1e-4
)

type options struct {
	timeTolerance    float64
	absTimeTolerance NSTime // < 0 when unset
	rateTolerance    float64
	splitVersion     bool
	codec            record.Codec
	diagnostics      *record.Diagnostics
	memoryLimit      int64
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures a TraceList.
type Option func(*options)

// WithTimeTolerance sets the contiguity tolerance as a fraction of the sample
// period. Negative values are ignored.
func WithTimeTolerance(fraction float64) Option {
	return func(o *options) {
		if fraction >= 0 {
			o.timeTolerance = fraction
		}
	}
}

// WithAbsoluteTimeTolerance sets the contiguity tolerance in nanoseconds,
// overriding WithTimeTolerance.
func WithAbsoluteTimeTolerance(ns NSTime) Option {
	return func(o *options) {
		o.absTimeTolerance = ns
	}
}

// WithSampleRateTolerance sets the relative tolerance within which two sample
// rates are treated as equal.
func WithSampleRateTolerance(rel float64) Option {
	return func(o *options) {
		if rel >= 0 {
			o.rateTolerance = rel
		}
	}
}

// WithSplitVersion keeps data of different publication versions in separate
// TraceIDs instead of resolving overlaps between them.
func WithSplitVersion(split bool) Option {
	return func(o *options) {
		o.splitVersion = split
	}
}

// WithCodec configures the record codec. If nil is passed,
// record.DefaultCodec is used.
func WithCodec(c record.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = record.DefaultCodec
		}
		o.codec = c
	}
}

// WithDiagnostics sets the collector that receives codec warnings for this
// list. Messages of failed operations are attached to the returned error.
func WithDiagnostics(d *record.Diagnostics) Option {
	return func(o *options) {
		o.diagnostics = d
	}
}

// WithMemoryLimit caps the bytes of decoded samples the list may buffer.
// Adding data beyond the limit fails with ErrMemoryLimitExceeded.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithMetricsCollector configures metrics collection.
// Pass nil to disable metrics (uses NoopMetricsCollector).
//
// Example:
//
//	metrics := &mseed.BasicMetricsCollector{}
//	tl := mseed.New(mseed.WithMetricsCollector(metrics))
//	// ... use tl ...
//	stats := metrics.GetStats()
//	fmt.Printf("Records packed: %d\n", stats.PackRecords)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := mseed.NewJSONLogger(slog.LevelDebug)
//	tl := mseed.New(mseed.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		timeTolerance:    DefaultTimeTolerance,
		absTimeTolerance: -1,
		rateTolerance:    DefaultSampleRateTolerance,
		codec:            record.DefaultCodec,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// timeTol returns the contiguity tolerance in nanoseconds for rate.
func (o *options) timeTol(rate float64) float64 {
	if o.absTimeTolerance >= 0 {
		return float64(o.absTimeTolerance)
	}
	return o.timeTolerance * SamplePeriod(rate)
}

// rateMatch reports whether two sample rates are equal within tolerance.
func (o *options) rateMatch(a, b float64) bool {
	if a == b {
		return true
	}
	if a == 0 || b == 0 {
		return false
	}
	d := 1 - a/b
	if d < 0 {
		d = -d
	}
	return d <= o.rateTolerance
}
