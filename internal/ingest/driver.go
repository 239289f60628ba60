// Package ingest drives the single-threaded MBO decode/apply loop: for
// each event it applies it to the Market, builds a snapshot on success,
// publishes it to the Latest-Snapshot Cell, and fans it out to the
// storage and MBP JSON writer channels.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mselser95/orderbook-snapshotter/internal/decode"
	"github.com/mselser95/orderbook-snapshotter/internal/orderbook"
	"github.com/mselser95/orderbook-snapshotter/internal/snapshot"
)

// Config wires a Driver's collaborators. StorageDone/JSONLogDone must be
// closed by the respective consumer goroutine when it exits.
type Config struct {
	Decoder     decode.Decoder
	Market      *orderbook.Market
	Cell        *snapshot.Cell
	StorageCh   chan<- *snapshot.Record
	JSONLogCh   chan<- *snapshot.Record
	StorageDone <-chan struct{}
	JSONLogDone <-chan struct{}
	Symbol      string
	Depth       int
	Logger      *zap.Logger
	Metrics     *Metrics
	RunID       string
}

// Driver runs the ingest loop described in spec.md §4.H.
type Driver struct {
	cfg Config
}

// NewDriver builds a Driver from cfg.
func NewDriver(cfg Config) *Driver {
	return &Driver{cfg: cfg}
}

// Run decodes events until EOF, applying each to the Market and
// publishing a snapshot on every successful apply. It closes both
// fan-out channels when the decoder is exhausted and, if at least one
// event was decoded, writes a full-depth final snapshot artifact to
// finalSnapshotPath (skipped entirely if finalSnapshotPath is empty).
func (d *Driver) Run(finalSnapshotPath string) error {
	cfg := d.cfg
	logger := cfg.Logger.With(zap.String("run_id", cfg.RunID))
	logger.Info("ingest-starting", zap.String("symbol", cfg.Symbol), zap.Int("depth", cfg.Depth))

	start := time.Now()
	var processed, skipped uint64
	var totalApplyNs uint64
	var applyDurationsNs []uint64
	var lastTsEvent int64
	var lastInstrument uint32

	defer close(cfg.StorageCh)
	defer close(cfg.JSONLogCh)

	for {
		ev, err := cfg.Decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Warn("decode-error-continuing", zap.Error(err))
			continue
		}

		lastTsEvent = int64(ev.TsEvent)
		lastInstrument = ev.InstrumentID

		t0 := time.Now()
		applied, applyErr := cfg.Market.Apply(ev)
		dt := uint64(time.Since(t0).Nanoseconds())
		if applyErr != nil {
			logger.Error("apply-error-fatal", zap.Error(applyErr), zap.Uint32("instrument_id", ev.InstrumentID))
			return fmt.Errorf("ingest aborted: book invariant violated: %w", applyErr)
		}

		if applied {
			rec := snapshot.BuildSnapshotRecord(cfg.Market, ev.InstrumentID, cfg.Symbol, int64(ev.TsEvent), cfg.Depth)
			cfg.Cell.Store(rec)

			if err := trySend(cfg.StorageCh, cfg.StorageDone, rec, "storage", logger, cfg.Metrics); err != nil {
				return fmt.Errorf("ingest aborted: %w", err)
			}
			if err := trySend(cfg.JSONLogCh, cfg.JSONLogDone, rec, "jsonlog", logger, cfg.Metrics); err != nil {
				return fmt.Errorf("ingest aborted: %w", err)
			}
		} else {
			skipped++
		}

		totalApplyNs += dt
		applyDurationsNs = append(applyDurationsNs, dt)
		processed++
	}

	elapsed := time.Since(start)
	d.emitMetrics(logger, elapsed, processed, totalApplyNs, applyDurationsNs)
	if cfg.Metrics != nil {
		cfg.Metrics.MessagesSkipped.Set(float64(skipped))
	}

	logger.Info("ingest-complete",
		zap.Uint32("instrument_id", lastInstrument),
		zap.Int64("last_ts_event", lastTsEvent),
		zap.Uint64("processed", processed),
		zap.Uint64("skipped", skipped))

	if processed > 0 && finalSnapshotPath != "" {
		final := snapshot.BuildFullSnapshotRecord(cfg.Market, lastInstrument, cfg.Symbol, lastTsEvent)
		if err := writeFinalSnapshot(finalSnapshotPath, final); err != nil {
			logger.Error("final-snapshot-write-failed", zap.Error(err))
		}
	}

	return nil
}

func (d *Driver) emitMetrics(logger *zap.Logger, elapsed time.Duration, processed, totalApplyNs uint64, applyDurationsNs []uint64) {
	var avgNs float64
	if processed > 0 {
		avgNs = float64(totalApplyNs) / float64(processed)
	}

	p99Ns := percentileNs(applyDurationsNs, 99)

	var throughput float64
	if elapsed.Seconds() > 0 {
		throughput = float64(processed) / elapsed.Seconds()
	}

	logger.Info("ingest-metrics",
		zap.Uint64("messages_processed", processed),
		zap.Float64("average_apply_ns", avgNs),
		zap.Uint64("p99_apply_ns", p99Ns),
		zap.Float64("message_throughput_per_sec", throughput),
		zap.Int64("elapsed_ns", elapsed.Nanoseconds()))

	if d.cfg.Metrics == nil {
		return
	}
	d.cfg.Metrics.MessagesProcessed.Set(float64(processed))
	d.cfg.Metrics.AverageApplyNs.Set(avgNs)
	d.cfg.Metrics.P99ApplyNs.Set(float64(p99Ns))
	d.cfg.Metrics.MessageThroughput.Set(throughput)
	d.cfg.Metrics.ElapsedNs.Set(float64(elapsed.Nanoseconds()))
}

// percentileNs returns the pct-th percentile (e.g. 99 for p99) of durations
// via nth-element selection rather than a full sort, mirroring the
// reference's apply_durations_ns.select_nth_unstable(idx - 1). durations is
// partitioned in place.
func percentileNs(durations []uint64, pct int) uint64 {
	n := len(durations)
	if n == 0 {
		return 0
	}
	idx := (n*pct + 99) / 100
	if idx < 1 {
		idx = 1
	}
	if idx > n {
		idx = n
	}
	return nthElement(durations, idx-1)
}

// nthElement partitions durations so that durations[k] holds the value it
// would have in sorted order (quickselect, Lomuto partitioning), and
// returns that value.
func nthElement(durations []uint64, k int) uint64 {
	lo, hi := 0, len(durations)-1
	for lo < hi {
		pivot := durations[hi]
		i := lo
		for j := lo; j < hi; j++ {
			if durations[j] < pivot {
				durations[i], durations[j] = durations[j], durations[i]
				i++
			}
		}
		durations[i], durations[hi] = durations[hi], durations[i]
		switch {
		case i == k:
			lo, hi = i, i
		case i < k:
			lo = i + 1
		default:
			hi = i - 1
		}
	}
	return durations[k]
}

func writeFinalSnapshot(path string, rec *snapshot.Record) error {
	data, err := json.MarshalIndent(rec.Payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal final snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
