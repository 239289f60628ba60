package ingest

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mselser95/orderbook-snapshotter/internal/decode"
	"github.com/mselser95/orderbook-snapshotter/internal/jsonlog"
	"github.com/mselser95/orderbook-snapshotter/internal/orderbook"
	"github.com/mselser95/orderbook-snapshotter/internal/snapshot"
	"github.com/mselser95/orderbook-snapshotter/internal/storage"
	"github.com/mselser95/orderbook-snapshotter/pkg/config"
	"github.com/mselser95/orderbook-snapshotter/pkg/healthprobe"
	"github.com/mselser95/orderbook-snapshotter/pkg/httpserver"
)

// New wires the full ingest pipeline from cfg: input decoder, order book
// market, Latest-Snapshot Cell, fan-out channels, storage and MBP JSON
// writers, the HTTP server, and the Driver that ties them together.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	inputFile, dec, err := setupDecoder(cfg)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup decoder: %w", err)
	}

	storageWriter, err := setupStorageWriter(cfg, logger)
	if err != nil {
		cancel()
		_ = inputFile.Close()
		return nil, fmt.Errorf("setup storage writer: %w", err)
	}

	jsonlogWriter, err := setupJSONLogWriter(cfg, logger)
	if err != nil {
		cancel()
		_ = inputFile.Close()
		return nil, fmt.Errorf("setup jsonlog writer: %w", err)
	}

	healthChecker := healthprobe.New()
	cell := &snapshot.Cell{}
	market := orderbook.NewMarket()

	httpServer := httpserver.New(&httpserver.Config{
		Addr:          cfg.ServerAddr,
		Logger:        logger,
		HealthChecker: healthChecker,
		Cell:          cell,
	})

	storageCh := make(chan *snapshot.Record, cfg.QueueCapacity)
	jsonlogCh := make(chan *snapshot.Record, cfg.QueueCapacity)
	storageDone := make(chan struct{})
	jsonlogDone := make(chan struct{})

	runID := uuid.NewString()

	driver := NewDriver(Config{
		Decoder:     dec,
		Market:      market,
		Cell:        cell,
		StorageCh:   storageCh,
		JSONLogCh:   jsonlogCh,
		StorageDone: storageDone,
		JSONLogDone: jsonlogDone,
		Symbol:      cfg.Symbol,
		Depth:       cfg.SnapshotDepth,
		Logger:      logger,
		Metrics:     NewMetrics(),
		RunID:       runID,
	})

	return &App{
		cfg:           cfg,
		logger:        logger,
		runID:         runID,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		inputFile:     inputFile,
		decoder:       dec,
		market:        market,
		cell:          cell,
		driver:        driver,
		storageWriter: storageWriter,
		jsonlogWriter: jsonlogWriter,
		storageCh:     storageCh,
		jsonlogCh:     jsonlogCh,
		storageDone:   storageDone,
		jsonlogDone:   jsonlogDone,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// setupDecoder opens cfg.InputPath and selects a Decoder by extension: a
// ".frames" file is the binary replay wire format written by
// internal/replay, anything else is read as the line-oriented text
// fixture format.
func setupDecoder(cfg *config.Config) (*os.File, decode.Decoder, error) {
	f, err := os.Open(cfg.InputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", cfg.InputPath, err)
	}

	if strings.HasSuffix(cfg.InputPath, ".frames") {
		return f, decode.NewFrameDecoder(f), nil
	}
	return f, decode.NewTextDecoder(f), nil
}

func setupStorageWriter(cfg *config.Config, logger *zap.Logger) (storage.Writer, error) {
	if cfg.StorageMode == "console" {
		return storage.NewConsoleWriter(logger), nil
	}

	return storage.NewPostgresWriter(storage.PostgresConfig{
		DSN:           cfg.DatabaseURL,
		BatchSize:     cfg.SnapshotBatch,
		FlushInterval: cfg.FlushInterval(),
		Logger:        logger,
		Metrics:       storage.NewMetrics(),
	}), nil
}

func setupJSONLogWriter(cfg *config.Config, logger *zap.Logger) (*jsonlog.Writer, error) {
	return jsonlog.NewWriter(cfg.MbpLogPath, logger)
}
