package replay

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"go.uber.org/zap"
)

// BenchResult summarizes one Bench run.
type BenchResult struct {
	Duration time.Duration
	Messages uint64
	Batches  uint64
	Bytes    uint64
}

// Bench connects to serverAddr and reads frames for duration, decoding
// each batch to count messages, logging a throughput line once a second.
// It is a load-testing client for the TCP Frame Replay server, grounded on
// original_source/src/bin/bench_tcp.rs's read loop and periodic reporter.
func Bench(serverAddr string, duration time.Duration, logger *zap.Logger) (BenchResult, error) {
	conn, err := net.Dial("tcp", serverAddr)
	if err != nil {
		return BenchResult{}, fmt.Errorf("replay: connect to %s: %w", serverAddr, err)
	}
	defer conn.Close()

	logger.Info("tcp-bench-connected", zap.String("server", serverAddr), zap.Duration("duration", duration))

	var result BenchResult
	start := time.Now()
	lastReport := start
	var lastMsgs, lastBatches, lastBytes uint64

	for time.Since(start) < duration {
		payload, err := ReadFrame(conn)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Error("tcp-bench-read-error", zap.Error(err))
			break
		}
		result.Bytes += uint64(len(payload) + 4)

		batch, err := DecodeBatch(payload)
		if err != nil {
			logger.Error("tcp-bench-decode-error", zap.Error(err))
			break
		}
		result.Messages += uint64(len(batch.Msgs))
		result.Batches++

		if time.Since(lastReport) >= time.Second {
			interval := time.Since(lastReport).Seconds()
			msgRate := float64(result.Messages-lastMsgs) / interval
			batchRate := float64(result.Batches-lastBatches) / interval
			throughputMBps := float64(result.Bytes-lastBytes) / interval / (1024 * 1024)
			logger.Info("tcp-bench-progress",
				zap.Uint64("msgs", result.Messages), zap.Uint64("batches", result.Batches),
				zap.Float64("msg_rate_per_sec", msgRate), zap.Float64("batch_rate_per_sec", batchRate),
				zap.Float64("throughput_mb_per_sec", throughputMBps))
			lastMsgs, lastBatches, lastBytes = result.Messages, result.Batches, result.Bytes
			lastReport = time.Now()
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}
