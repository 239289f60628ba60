package ingest

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// Run starts the storage and MBP JSON writer consumers and the HTTP
// server, runs ingest to completion, waits for both consumers to drain
// and join, marks the app ready, then blocks serving HTTP until a
// shutdown signal arrives. This mirrors spec.md §4.H's close-order: the
// producer drops both sender sides on EOF, the consumers drain and
// exit, and only then does the process wait to be told to stop serving
// the still-populated Latest-Snapshot Cell.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("run_id", a.runID),
		zap.String("input_path", a.cfg.InputPath),
		zap.String("symbol", a.cfg.Symbol),
		zap.String("storage_mode", a.cfg.StorageMode))

	a.startComponents()

	a.logger.Info("ingest-running", zap.String("run_id", a.runID))
	if err := a.driver.Run(a.cfg.FinalSnapshotOut); err != nil {
		return err
	}

	a.consumerWG.Wait()
	a.logger.Info("ingest-consumers-drained", zap.String("run_id", a.runID))

	a.healthChecker.SetReady(true)
	a.logger.Info("application-ready", zap.String("http_addr", a.cfg.ServerAddr))

	return a.waitForShutdown()
}

func (a *App) startComponents() {
	a.httpWG.Add(1)
	go a.runHTTPServer()

	a.consumerWG.Add(1)
	go a.runStorageWriter()

	a.consumerWG.Add(1)
	go a.runJSONLogWriter()
}

func (a *App) runHTTPServer() {
	defer a.httpWG.Done()
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) runStorageWriter() {
	defer a.consumerWG.Done()
	defer close(a.storageDone)
	if err := a.storageWriter.Run(a.storageCh); err != nil {
		a.logger.Error("storage-writer-error", zap.Error(err))
	}
}

func (a *App) runJSONLogWriter() {
	defer a.consumerWG.Done()
	defer close(a.jsonlogDone)
	if err := a.jsonlogWriter.Run(a.jsonlogCh); err != nil {
		a.logger.Error("jsonlog-writer-error", zap.Error(err))
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
