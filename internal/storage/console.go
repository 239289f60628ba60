package storage

import (
	"go.uber.org/zap"

	"github.com/mselser95/orderbook-snapshotter/internal/snapshot"
)

// ConsoleWriter implements Writer by logging each snapshot instead of
// persisting it, grounded on the teacher's ConsoleStorage: a
// dependency-free stand-in selected via STORAGE_MODE=console for local
// runs without a Postgres instance.
type ConsoleWriter struct {
	logger *zap.Logger
	count  uint64
}

// NewConsoleWriter creates a new console writer.
func NewConsoleWriter(logger *zap.Logger) *ConsoleWriter {
	logger.Info("console-writer-initialized")
	return &ConsoleWriter{logger: logger}
}

// Run logs a line per received snapshot until rx is closed.
func (c *ConsoleWriter) Run(rx <-chan *snapshot.Record) error {
	for rec := range rx {
		c.count++
		c.logger.Info("snapshot",
			zap.String("symbol", rec.Payload.Symbol),
			zap.Int64("ts_event", rec.TsEvent),
			zap.Uint32("bid_levels", rec.Payload.BidLevels),
			zap.Uint32("ask_levels", rec.Payload.AskLevels),
			zap.Uint32("total_orders", rec.Payload.TotalOrders),
		)
	}
	c.logger.Info("console-writer-done", zap.Uint64("snapshots_logged", c.count))
	return nil
}

// Close is a no-op for the console writer.
func (c *ConsoleWriter) Close() error {
	c.logger.Info("closing-console-writer")
	return nil
}
