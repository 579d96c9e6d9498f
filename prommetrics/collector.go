// Package prommetrics exports mseed metrics to Prometheus.
//
//	c := prommetrics.NewCollector("seedlink")
//	prometheus.MustRegister(c)
//	tl := mseed.New(mseed.WithMetricsCollector(c))
package prommetrics

import (
	"time"

	"github.com/hupe1980/mseed"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements mseed.MetricsCollector and prometheus.Collector.
type Collector struct {
	opLatency *prometheus.HistogramVec
	ops       *prometheus.CounterVec
	samples   *prometheus.CounterVec
	bytes     prometheus.Counter
	trims     *prometheus.CounterVec
	records   prometheus.Counter
}

var _ mseed.MetricsCollector = (*Collector)(nil)

// NewCollector creates a Collector whose metric names start with namespace.
// An empty namespace yields names starting with "mseed_".
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "mseed"
	}
	return &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of ingest, pack, trim and materialize operations",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"op", "status"}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total operations by kind and outcome",
		}, []string{"op", "status"}),
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Total samples ingested or packed",
		}, []string{"op"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packed_bytes_total",
			Help:      "Total bytes of generated records",
		}),
		trims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trims_total",
			Help:      "Total trimmed records by result",
		}, []string{"result"}),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "materialized_records_total",
			Help:      "Total records decoded by Materialize",
		}),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (c *Collector) observe(op string, d time.Duration, err error) {
	s := status(err)
	c.opLatency.WithLabelValues(op, s).Observe(d.Seconds())
	c.ops.WithLabelValues(op, s).Inc()
}

// RecordIngest implements mseed.MetricsCollector.
func (c *Collector) RecordIngest(samples int64, d time.Duration, err error) {
	c.observe("ingest", d, err)
	if err == nil {
		c.samples.WithLabelValues("ingest").Add(float64(samples))
	}
}

// RecordPack implements mseed.MetricsCollector.
func (c *Collector) RecordPack(samples int64, bytes int, d time.Duration, err error) {
	c.observe("pack", d, err)
	if err == nil {
		c.samples.WithLabelValues("pack").Add(float64(samples))
		c.bytes.Add(float64(bytes))
	}
}

// RecordTrim implements mseed.MetricsCollector.
func (c *Collector) RecordTrim(st mseed.TrimStatus, d time.Duration, err error) {
	c.observe("trim", d, err)
	if err == nil {
		c.trims.WithLabelValues(st.String()).Inc()
	}
}

// RecordMaterialize implements mseed.MetricsCollector.
func (c *Collector) RecordMaterialize(records int, d time.Duration, err error) {
	c.observe("materialize", d, err)
	if err == nil {
		c.records.Add(float64(records))
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.opLatency.Describe(ch)
	c.ops.Describe(ch)
	c.samples.Describe(ch)
	c.bytes.Describe(ch)
	c.trims.Describe(ch)
	c.records.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.opLatency.Collect(ch)
	c.ops.Collect(ch)
	c.samples.Collect(ch)
	c.bytes.Collect(ch)
	c.trims.Collect(ch)
	c.records.Collect(ch)
}
