package decode

import (
	"io"

	"github.com/mselser95/orderbook-snapshotter/internal/replay"
)

// FrameDecoder decodes the same length-prefixed batch frames the TCP replay
// server writes to its socket, so a pre-encoded replay file (or a captured
// stream) can be fed directly into ingest without a live TCP hop.
type FrameDecoder struct {
	r       io.Reader
	pending []replay.Msg
}

// NewFrameDecoder builds a FrameDecoder reading frames from r.
func NewFrameDecoder(r io.Reader) *FrameDecoder {
	return &FrameDecoder{r: r}
}

func (d *FrameDecoder) Decode() (Event, error) {
	for len(d.pending) == 0 {
		payload, err := replay.ReadFrame(d.r)
		if err != nil {
			return Event{}, err
		}
		batch, err := replay.DecodeBatch(payload)
		if err != nil {
			return Event{}, err
		}
		d.pending = batch.Msgs
	}
	m := d.pending[0]
	d.pending = d.pending[1:]
	return m.ToEvent(), nil
}
