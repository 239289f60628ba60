package orderbook

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the book engine. Kept separate
// from Market/Book so those types stay pure and easy to unit test without
// a metrics registry. Nothing in this repository calls NewMetrics or
// updates these collectors; the ingest driver reports its figures through
// internal/ingest.Metrics.
type Metrics struct {
	EventsApplied   *prometheus.CounterVec
	EventsSkipped   *prometheus.CounterVec
	ApplyErrors     *prometheus.CounterVec
	ApplyDuration   prometheus.Histogram
	BooksTracked    prometheus.Gauge
	OrdersResting   prometheus.Gauge
}

// NewMetrics registers and returns the order book metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		EventsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "orderbook_events_applied_total",
			Help: "Total MBO events that changed a book's structure.",
		}, []string{"action"}),
		EventsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "orderbook_events_skipped_total",
			Help: "Total MBO events that did not change any book (trade/fill/none reports).",
		}, []string{"action"}),
		ApplyErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "orderbook_apply_errors_total",
			Help: "Total MBO events rejected by the book engine as invalid.",
		}, []string{"action"}),
		ApplyDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "orderbook_apply_duration_seconds",
			Help:    "Time to apply a single MBO event to the market.",
			Buckets: []float64{0.0000001, 0.0000005, 0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001},
		}),
		BooksTracked: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "orderbook_books_tracked",
			Help: "Number of distinct (instrument, publisher) books currently tracked.",
		}),
		OrdersResting: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "orderbook_orders_resting",
			Help: "Total resting orders across all tracked books.",
		}),
	}
}
