package replay

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/mselser95/orderbook-snapshotter/internal/decode"
)

// PreencodeStats reports the outcome of a Preencode run.
type PreencodeStats struct {
	Batches  int
	Messages int
	Bytes    int64
}

// Preencode reads MBO events from src via a TextDecoder and writes them to
// destPath as a sequence of length-prefixed, protobuf-shaped batches of up
// to batchSize messages each, grounded on
// original_source/src/bin/stream_tcp.rs's preencode_to_file: decode until
// EOF, buffer up to batchSize messages, flush a batch whenever the buffer
// fills, and flush the final partial batch on EOF.
func Preencode(inputPath, destPath string, batchSize int) (PreencodeStats, error) {
	src, err := os.Open(inputPath)
	if err != nil {
		return PreencodeStats{}, fmt.Errorf("open %s: %w", inputPath, err)
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return PreencodeStats{}, fmt.Errorf("create %s: %w", destPath, err)
	}
	defer dst.Close()

	w := bufio.NewWriterSize(dst, 8*1024*1024)
	dec := decode.NewTextDecoder(src)

	var stats PreencodeStats
	batch := make([]Msg, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		payload, err := EncodeBatch(Batch{Msgs: batch})
		if err != nil {
			return err
		}
		if err := WriteFrame(w, payload); err != nil {
			return err
		}
		stats.Batches++
		stats.Messages += len(batch)
		stats.Bytes += int64(len(payload) + 4)
		batch = batch[:0]
		return nil
	}

	for {
		ev, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("decode %s: %w", inputPath, err)
		}

		batch = append(batch, EventToMsg(ev))
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return stats, fmt.Errorf("flush batch: %w", err)
			}
		}
	}
	if err := flush(); err != nil {
		return stats, fmt.Errorf("flush final batch: %w", err)
	}

	if err := w.Flush(); err != nil {
		return stats, fmt.Errorf("flush encoded file: %w", err)
	}

	return stats, nil
}
