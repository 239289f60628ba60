package ingest

import (
	"context"
	"os"
	"sync"

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

// App orchestrates the full pipeline from spec.md §4: decode -> apply ->
// snapshot -> fan out to the storage and MBP JSON writers, serving the
// Latest-Snapshot Cell over HTTP for the app's whole lifetime. Structured
// after the teacher's internal/app.App (constructor/Start/Shutdown split
// across setup.go/run.go/shutdown.go), adapted to this pipeline's
// finite-producer, long-lived-server shape: ingest runs to completion,
// the two fan-out consumers drain and join, and only then does the app
// wait for a shutdown signal to stop serving HTTP.
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	runID  string

	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server

	inputFile *os.File
	decoder   decode.Decoder
	market    *orderbook.Market
	cell      *snapshot.Cell
	driver    *Driver

	storageWriter storage.Writer
	jsonlogWriter *jsonlog.Writer

	storageCh   chan *snapshot.Record
	jsonlogCh   chan *snapshot.Record
	storageDone chan struct{}
	jsonlogDone chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	httpWG     sync.WaitGroup
	consumerWG sync.WaitGroup
}
