package replay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors the TCP replay server updates,
// grounded on internal/orderbook.Metrics's promauto idiom.
type Metrics struct {
	ClientsConnected    prometheus.Gauge
	ClientSessionsTotal prometheus.Counter
	BatchesSent         prometheus.Counter
	BytesSent           prometheus.Counter
}

// NewMetrics registers and returns the TCP replay server metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		ClientsConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "tcp_replay_clients_connected",
			Help: "Number of currently connected replay clients.",
		}),
		ClientSessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tcp_replay_client_sessions_total",
			Help: "Total number of replay client sessions that have ended.",
		}),
		BatchesSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tcp_replay_batches_sent_total",
			Help: "Total number of batch frames sent to replay clients.",
		}),
		BytesSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tcp_replay_bytes_sent_total",
			Help: "Total bytes sent to replay clients, including frame length prefixes.",
		}),
	}
}
