package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mselser95/orderbook-snapshotter/internal/replay"
	"github.com/mselser95/orderbook-snapshotter/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var tcpReplayCmd = &cobra.Command{
	Use:   "tcp-replay",
	Short: "Pre-encode MBO events and replay them to TCP clients",
	Long: `Pre-encodes MBO events from INPUT_PATH into a length-prefixed frame file
at ENCODED_PATH (skipped when PREENCODE=false and the file already exists),
then accepts TCP connections on TCP_BIND_ADDR and streams that file to each
one at maximum speed, looping from the start when TCP_LOOP_REPLAY is set.`,
	RunE: runTCPReplay,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(tcpReplayCmd)
}

func runTCPReplay(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadTCPReplayFromEnv()
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

	if cfg.Preencode {
		logger.Info("tcp-replay-preencoding", zap.String("input", cfg.InputPath), zap.String("encoded", cfg.EncodedPath))
		stats, err := replay.Preencode(cfg.InputPath, cfg.EncodedPath, cfg.BatchSize)
		if err != nil {
			return fmt.Errorf("preencode: %w", err)
		}
		logger.Info("tcp-replay-preencoded",
			zap.Int("batches", stats.Batches), zap.Int("messages", stats.Messages), zap.Int64("bytes", stats.Bytes))
	} else {
		if _, err := os.Stat(cfg.EncodedPath); err != nil {
			return fmt.Errorf("encoded file %s not found (set PREENCODE=true to rebuild): %w", cfg.EncodedPath, err)
		}
		logger.Info("tcp-replay-using-existing-encoded-file", zap.String("encoded", cfg.EncodedPath))
	}

	srv := replay.NewServer(replay.ServerConfig{
		BindAddr:    cfg.BindAddr,
		EncodedPath: cfg.EncodedPath,
		LoopReplay:  cfg.LoopReplay,
		BatchSize:   cfg.BatchSize,
		Logger:      logger,
		Metrics:     replay.NewMetrics(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("tcp-replay-shutdown-signal-received", zap.String("signal", sig.String()))
		cancel()
	}()

	if err := srv.Serve(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("tcp-replay-shutdown-complete")
	return nil
}
