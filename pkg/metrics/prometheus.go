package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	partitions      *prometheus.CounterVec
	recordsDecoded  prometheus.Counter
	candlesResolved *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		partitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "histpull_partitions_total",
				Help: "Partition lookups by outcome (located, missing)",
			},
			[]string{"outcome"},
		),
		recordsDecoded: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "histpull_records_decoded_total",
				Help: "Total raw records decoded from partition files",
			},
		),
		candlesResolved: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "histpull_candles_resolved_total",
				Help: "Candles resolved per base symbol",
			},
			[]string{"symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "histpull_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "histpull_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordPartition records a partition lookup outcome.
func (r *Recorder) RecordPartition(outcome string) {
	r.partitions.WithLabelValues(outcome).Inc()
}

// RecordRecordsDecoded counts decoded raw records.
func (r *Recorder) RecordRecordsDecoded(n int) {
	r.recordsDecoded.Add(float64(n))
}

// RecordCandles records resolved candle counts per symbol.
func (r *Recorder) RecordCandles(symbol string, n int) {
	r.candlesResolved.WithLabelValues(symbol).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
