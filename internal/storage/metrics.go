package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors the storage writer updates,
// grounded on internal/orderbook.Metrics's promauto idiom.
type Metrics struct {
	FlushTotal     prometheus.Counter
	FlushErrors    prometheus.Counter
	Reconnects     prometheus.Counter
	RowsWritten    prometheus.Counter
	FlushDuration  prometheus.Histogram
	FlushBatchSize prometheus.Histogram
}

// NewMetrics registers and returns the storage writer metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		FlushTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "storage_flush_total",
			Help: "Total number of successful bulk-load flushes.",
		}),
		FlushErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "storage_flush_errors_total",
			Help: "Total number of failed bulk-load flush attempts.",
		}),
		Reconnects: promauto.NewCounter(prometheus.CounterOpts{
			Name: "storage_reconnects_total",
			Help: "Total number of reconnect attempts after a connection-classified flush error.",
		}),
		RowsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "storage_rows_written_total",
			Help: "Total number of snapshot rows committed to the database.",
		}),
		FlushDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "storage_flush_duration_seconds",
			Help:    "Duration of a single bulk-load flush.",
			Buckets: prometheus.DefBuckets,
		}),
		FlushBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "storage_flush_batch_size",
			Help:    "Number of snapshot rows in a single flush.",
			Buckets: []float64{1, 10, 100, 500, 1000, 5000, 10000},
		}),
	}
}
