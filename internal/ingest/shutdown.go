package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown stops the HTTP server and releases the writers' and input
// file's resources. The ingest consumers have already drained and
// joined by the time Shutdown is reachable from Run; Close here only
// releases what Run leaves open (the HTTP listener, the input file, and
// whatever handle each writer holds).
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down", zap.String("run_id", a.runID))

	a.healthChecker.SetReady(false)
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	if err := a.storageWriter.Close(); err != nil {
		a.logger.Error("storage-writer-close-error", zap.Error(err))
	}

	if err := a.jsonlogWriter.Close(); err != nil {
		a.logger.Error("jsonlog-writer-close-error", zap.Error(err))
	}

	if err := a.inputFile.Close(); err != nil {
		a.logger.Error("input-file-close-error", zap.Error(err))
	}

	a.httpWG.Wait()

	a.logger.Info("application-shutdown-complete", zap.String("run_id", a.runID))
	return nil
}
