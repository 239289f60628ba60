// Package jsonlog appends one line-delimited JSON object per snapshot to
// a log file, the second of the two fan-out consumers alongside
// internal/storage. It mirrors the teacher's postgres/console storage
// split structurally (a second, simpler consumer of the same domain
// data) while implementing the spec's actual MBP line-JSON contract.
package jsonlog

import (
	"bufio"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mselser95/orderbook-snapshotter/internal/snapshot"
)

// Writer appends one newline-terminated JSON object per received
// snapshot to an append-mode buffered file.
type Writer struct {
	path   string
	logger *zap.Logger
	file   *os.File
	buf    *bufio.Writer
	count  uint64
}

// NewWriter opens path in append mode (creating it if absent) and
// returns a Writer ready to have Run called on it.
func NewWriter(path string, logger *zap.Logger) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open mbp json log %s: %w", path, err)
	}
	logger.Info("jsonlog-writer-initialized", zap.String("path", path))
	return &Writer{
		path:   path,
		logger: logger,
		file:   f,
		buf:    bufio.NewWriter(f),
	}, nil
}

// Run blocks on rx, writing one JSON line per snapshot until rx closes,
// flushing after every write. A write failure is fatal for the writer,
// matching spec.md §4.G.
func (w *Writer) Run(rx <-chan *snapshot.Record) error {
	for rec := range rx {
		line, err := json.Marshal(rec.ToMbpOutput())
		if err != nil {
			return fmt.Errorf("marshal mbp output for instrument_id=%d ts_event=%d: %w", rec.InstrumentID, rec.TsEvent, err)
		}
		if _, err := w.buf.Write(line); err != nil {
			return fmt.Errorf("write mbp json line to %s: %w", w.path, err)
		}
		if err := w.buf.WriteByte('\n'); err != nil {
			return fmt.Errorf("write mbp json newline to %s: %w", w.path, err)
		}
		if err := w.buf.Flush(); err != nil {
			return fmt.Errorf("flush mbp json log %s: %w", w.path, err)
		}
		w.count++
	}
	w.logger.Info("jsonlog-writer-channel-disconnected", zap.Uint64("lines_written", w.count))
	return w.buf.Flush()
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	if w.buf != nil {
		if err := w.buf.Flush(); err != nil {
			return fmt.Errorf("flush mbp json log %s on close: %w", w.path, err)
		}
	}
	if w.file == nil {
		return nil
	}
	return w.file.Close()
}
