package mseed

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus; see package prommetrics.
type MetricsCollector interface {
	// RecordIngest is called after each record or sample run is merged.
	// samples is the number of samples added.
	RecordIngest(samples int64, duration time.Duration, err error)

	// RecordPack is called once per emitted record and once per failed
	// encode.
	RecordPack(samples int64, bytes int, duration time.Duration, err error)

	// RecordTrim is called after each TrimRecord.
	RecordTrim(status TrimStatus, duration time.Duration, err error)

	// RecordMaterialize is called after a segment's record list is decoded.
	RecordMaterialize(records int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordIngest(int64, time.Duration, error)    {}
func (NoopMetricsCollector) RecordPack(int64, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordTrim(TrimStatus, time.Duration, error) {}
func (NoopMetricsCollector) RecordMaterialize(int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	IngestCount       atomic.Int64
	IngestSamples     atomic.Int64
	IngestErrors      atomic.Int64
	IngestTotalNanos  atomic.Int64
	PackRecords       atomic.Int64
	PackSamples       atomic.Int64
	PackBytes         atomic.Int64
	PackErrors        atomic.Int64
	PackTotalNanos    atomic.Int64
	TrimCount         atomic.Int64
	TrimEmpty         atomic.Int64
	TrimErrors        atomic.Int64
	MaterializeCount  atomic.Int64
	MaterializeErrors atomic.Int64
}

// RecordIngest implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIngest(samples int64, duration time.Duration, err error) {
	b.IngestCount.Add(1)
	b.IngestTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.IngestErrors.Add(1)
		return
	}
	b.IngestSamples.Add(samples)
}

// RecordPack implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPack(samples int64, bytes int, duration time.Duration, err error) {
	b.PackTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.PackErrors.Add(1)
		return
	}
	b.PackRecords.Add(1)
	b.PackSamples.Add(samples)
	b.PackBytes.Add(int64(bytes))
}

// RecordTrim implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTrim(status TrimStatus, duration time.Duration, err error) {
	b.TrimCount.Add(1)
	if err != nil {
		b.TrimErrors.Add(1)
	}
	if status == TrimEmpty {
		b.TrimEmpty.Add(1)
	}
}

// RecordMaterialize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMaterialize(records int, duration time.Duration, err error) {
	b.MaterializeCount.Add(1)
	if err != nil {
		b.MaterializeErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		IngestCount:       b.IngestCount.Load(),
		IngestSamples:     b.IngestSamples.Load(),
		IngestErrors:      b.IngestErrors.Load(),
		IngestAvgNanos:    avg(b.IngestTotalNanos.Load(), b.IngestCount.Load()),
		PackRecords:       b.PackRecords.Load(),
		PackSamples:       b.PackSamples.Load(),
		PackBytes:         b.PackBytes.Load(),
		PackErrors:        b.PackErrors.Load(),
		PackAvgNanos:      avg(b.PackTotalNanos.Load(), b.PackRecords.Load()+b.PackErrors.Load()),
		TrimCount:         b.TrimCount.Load(),
		TrimEmpty:         b.TrimEmpty.Load(),
		TrimErrors:        b.TrimErrors.Load(),
		MaterializeCount:  b.MaterializeCount.Load(),
		MaterializeErrors: b.MaterializeErrors.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	IngestCount       int64
	IngestSamples     int64
	IngestErrors      int64
	IngestAvgNanos    int64
	PackRecords       int64
	PackSamples       int64
	PackBytes         int64
	PackErrors        int64
	PackAvgNanos      int64
	TrimCount         int64
	TrimEmpty         int64
	TrimErrors        int64
	MaterializeCount  int64
	MaterializeErrors int64
}
