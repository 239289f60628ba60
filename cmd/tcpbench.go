package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mselser95/orderbook-snapshotter/internal/replay"
	"github.com/mselser95/orderbook-snapshotter/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var tcpBenchCmd = &cobra.Command{
	Use:   "tcp-bench",
	Short: "Load-test a running tcp-replay server",
	Long: `Connects to TCP_BENCH_SERVER and reads frames for TCP_BENCH_DURATION
seconds, decoding each batch to count messages and reporting throughput
once a second, plus a final summary on exit.`,
	RunE: runTCPBench,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(tcpBenchCmd)
}

func runTCPBench(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadTCPBenchFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	result, err := replay.Bench(cfg.ServerAddr, cfg.Duration, logger)
	if err != nil {
		return fmt.Errorf("bench: %w", err)
	}

	elapsed := result.Duration.Seconds()
	var msgRate, batchRate, throughputMBps float64
	if elapsed > 0 {
		msgRate = float64(result.Messages) / elapsed
		batchRate = float64(result.Batches) / elapsed
		throughputMBps = float64(result.Bytes) / elapsed / (1024 * 1024)
	}

	logger.Info("tcp-bench-complete",
		zap.Float64("duration_sec", elapsed),
		zap.Uint64("total_messages", result.Messages),
		zap.Uint64("total_batches", result.Batches),
		zap.Uint64("total_bytes", result.Bytes),
		zap.Float64("avg_msg_rate_per_sec", msgRate),
		zap.Float64("avg_batch_rate_per_sec", batchRate),
		zap.Float64("avg_throughput_mb_per_sec", throughputMBps))

	return nil
}
