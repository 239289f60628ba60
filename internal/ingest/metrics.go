package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors the ingest driver updates,
// mirroring the end-of-run figures the original binary prints via
// emit_metrics, grounded on internal/orderbook.Metrics's promauto idiom.
type Metrics struct {
	MessagesProcessed prometheus.Gauge
	MessagesSkipped   prometheus.Gauge
	Dropped           *prometheus.CounterVec
	AverageApplyNs    prometheus.Gauge
	P99ApplyNs        prometheus.Gauge
	MessageThroughput prometheus.Gauge
	ElapsedNs         prometheus.Gauge
}

// NewMetrics registers and returns the ingest driver metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		MessagesProcessed: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ingest_messages_processed",
			Help: "Total MBO messages processed in the current run.",
		}),
		MessagesSkipped: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ingest_messages_skipped",
			Help: "Total MBO messages the market reported as not applied in the current run.",
		}),
		Dropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_fanout_dropped_total",
			Help: "Total snapshots dropped for a fan-out consumer after exhausting retries.",
		}, []string{"consumer"}),
		AverageApplyNs: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ingest_apply_duration_avg_ns",
			Help: "Mean Market.Apply duration in nanoseconds for the current run.",
		}),
		P99ApplyNs: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ingest_apply_duration_p99_ns",
			Help: "P99 Market.Apply duration in nanoseconds for the current run.",
		}),
		MessageThroughput: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ingest_message_throughput_per_second",
			Help: "Messages processed per second for the current run.",
		}),
		ElapsedNs: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ingest_elapsed_ns",
			Help: "Wall-clock duration of the current ingest run in nanoseconds.",
		}),
	}
}
