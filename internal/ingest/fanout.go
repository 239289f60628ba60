package ingest

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/orderbook-snapshotter/internal/snapshot"
)

// backoffSteps is the bounded exponential retry schedule from spec.md §4.E:
// three retries at 10, 20, and 40ms before a snapshot is dropped.
var backoffSteps = []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}

// disconnectedError reports that a fan-out consumer has gone away. Go
// channels panic on a send to a closed channel, so unlike the reference
// mpsc implementation (where a send to a disconnected receiver returns an
// error), disconnection here is detected by selecting against a done
// channel the consumer closes on exit, rather than by attempting the send.
type disconnectedError struct {
	consumer string
}

func (e *disconnectedError) Error() string {
	return fmt.Sprintf("%s fan-out consumer disconnected", e.consumer)
}

// trySend delivers rec to ch with up to three retries of bounded
// exponential backoff when the channel is full. If still full after the
// retries it drops the snapshot for that consumer and logs once. If done
// is closed at any point (the consumer goroutine has exited), trySend
// returns a disconnectedError so the caller can abort ingest.
func trySend(ch chan<- *snapshot.Record, done <-chan struct{}, rec *snapshot.Record, consumer string, logger *zap.Logger, metrics *Metrics) error {
	select {
	case ch <- rec:
		return nil
	case <-done:
		return &disconnectedError{consumer: consumer}
	default:
	}

	for _, d := range backoffSteps {
		time.Sleep(d)
		select {
		case ch <- rec:
			return nil
		case <-done:
			return &disconnectedError{consumer: consumer}
		default:
		}
	}

	logger.Warn("fanout-snapshot-dropped",
		zap.String("consumer", consumer),
		zap.Uint32("instrument_id", rec.InstrumentID),
		zap.Int64("ts_event", rec.TsEvent))
	if metrics != nil {
		metrics.Dropped.WithLabelValues(consumer).Inc()
	}
	return nil
}
