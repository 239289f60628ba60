// Package replay implements the length-prefixed framing used to ship MBO
// events over a TCP socket for replay and benchmarking. It is a hand-written
// binary codec rather than generated protobuf: the message shape is fixed
// and small, and nothing downstream needs schema evolution or cross-language
// codegen, so a deterministic encoding/binary layout serves the same purpose
// without a protoc step.
package replay

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mselser95/orderbook-snapshotter/internal/decode"
)

// MaxBatchBytes is the largest encoded batch this codec will write or
// accept. A peer advertising a length above this is treated as corrupt
// rather than as a legitimately huge batch.
const MaxBatchBytes = 512 * 1024

// Msg is the wire shape of a single MBO event. Field widths are fixed so
// encode/decode never needs to branch on value ranges.
type Msg struct {
	OrderID      uint64
	TsEvent      uint64
	Price        int64
	Size         uint32
	Sequence     uint32
	ChannelID    uint32
	PublisherID  uint32
	InstrumentID uint32
	TsInDelta    int32
	Action       uint8
	Side         uint8
	Flags        uint8
}

const msgEncodedLen = 8 + 8 + 8 + 4 + 4 + 4 + 4 + 4 + 4 + 1 + 1 + 1

// EventToMsg converts a decode.Event into its wire representation.
func EventToMsg(e decode.Event) Msg {
	return Msg{
		OrderID:      e.OrderID,
		TsEvent:      e.TsEvent,
		Price:        e.Price,
		Size:         e.Size,
		Sequence:     e.Sequence,
		ChannelID:    e.ChannelID,
		PublisherID:  e.PublisherID,
		InstrumentID: e.InstrumentID,
		TsInDelta:    e.TsInDelta,
		Action:       uint8(e.Action),
		Side:         uint8(e.Side),
		Flags:        e.Flags,
	}
}

// ToEvent converts a wire Msg back into a decode.Event.
func (m Msg) ToEvent() decode.Event {
	return decode.Event{
		OrderID:      m.OrderID,
		Action:       decode.Action(m.Action),
		Side:         decode.Side(m.Side),
		Price:        m.Price,
		Size:         m.Size,
		Flags:        m.Flags,
		TsEvent:      m.TsEvent,
		Sequence:     m.Sequence,
		ChannelID:    m.ChannelID,
		TsInDelta:    m.TsInDelta,
		PublisherID:  m.PublisherID,
		InstrumentID: m.InstrumentID,
	}
}

func (m Msg) encode(w *bytes.Buffer) {
	var scratch [msgEncodedLen]byte
	binary.BigEndian.PutUint64(scratch[0:8], m.OrderID)
	binary.BigEndian.PutUint64(scratch[8:16], m.TsEvent)
	binary.BigEndian.PutUint64(scratch[16:24], uint64(m.Price))
	binary.BigEndian.PutUint32(scratch[24:28], m.Size)
	binary.BigEndian.PutUint32(scratch[28:32], m.Sequence)
	binary.BigEndian.PutUint32(scratch[32:36], m.ChannelID)
	binary.BigEndian.PutUint32(scratch[36:40], m.PublisherID)
	binary.BigEndian.PutUint32(scratch[40:44], m.InstrumentID)
	binary.BigEndian.PutUint32(scratch[44:48], uint32(m.TsInDelta))
	scratch[48] = m.Action
	scratch[49] = m.Side
	scratch[50] = m.Flags
	w.Write(scratch[:])
}

func decodeMsg(b []byte) (Msg, error) {
	if len(b) < msgEncodedLen {
		return Msg{}, fmt.Errorf("replay: short message, need %d bytes, got %d", msgEncodedLen, len(b))
	}
	return Msg{
		OrderID:      binary.BigEndian.Uint64(b[0:8]),
		TsEvent:      binary.BigEndian.Uint64(b[8:16]),
		Price:        int64(binary.BigEndian.Uint64(b[16:24])),
		Size:         binary.BigEndian.Uint32(b[24:28]),
		Sequence:     binary.BigEndian.Uint32(b[28:32]),
		ChannelID:    binary.BigEndian.Uint32(b[32:36]),
		PublisherID:  binary.BigEndian.Uint32(b[36:40]),
		InstrumentID: binary.BigEndian.Uint32(b[40:44]),
		TsInDelta:    int32(binary.BigEndian.Uint32(b[44:48])),
		Action:       b[48],
		Side:         b[49],
		Flags:        b[50],
	}, nil
}

// Batch is a sequence of Msg encoded as one frame.
type Batch struct {
	Msgs []Msg
}

// EncodeBatch serializes a batch as a 4-byte count prefix followed by each
// Msg in order. It returns an error if the encoded size would exceed
// MaxBatchBytes.
func EncodeBatch(b Batch) ([]byte, error) {
	var buf bytes.Buffer
	var count [4]byte
	binary.BigEndian.PutUint32(count[:], uint32(len(b.Msgs)))
	buf.Write(count[:])
	for _, m := range b.Msgs {
		m.encode(&buf)
	}
	if buf.Len() > MaxBatchBytes {
		return nil, fmt.Errorf("replay: encoded batch of %d messages is %d bytes, exceeds max %d", len(b.Msgs), buf.Len(), MaxBatchBytes)
	}
	return buf.Bytes(), nil
}

// DecodeBatch parses a batch payload produced by EncodeBatch.
func DecodeBatch(payload []byte) (Batch, error) {
	if len(payload) < 4 {
		return Batch{}, fmt.Errorf("replay: batch payload too short to hold a count")
	}
	count := binary.BigEndian.Uint32(payload[0:4])
	rest := payload[4:]
	msgs := make([]Msg, 0, count)
	for i := uint32(0); i < count; i++ {
		off := int(i) * msgEncodedLen
		if off+msgEncodedLen > len(rest) {
			return Batch{}, fmt.Errorf("replay: batch declares %d messages but payload is truncated at index %d", count, i)
		}
		m, err := decodeMsg(rest[off : off+msgEncodedLen])
		if err != nil {
			return Batch{}, err
		}
		msgs = append(msgs, m)
	}
	return Batch{Msgs: msgs}, nil
}

// WriteFrame writes payload prefixed with its big-endian uint32 length.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxBatchBytes {
		return fmt.Errorf("replay: frame payload of %d bytes exceeds max %d", len(payload), MaxBatchBytes)
	}
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(payload)))
	if _, err := w.Write(length[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one length-prefixed frame from r. It returns io.EOF only
// when the length prefix itself is missing (a clean end of stream); a
// truncated payload after a valid length is an unexpected-EOF error.
func ReadFrame(r io.Reader) ([]byte, error) {
	var length [4]byte
	if _, err := io.ReadFull(r, length[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(length[:])
	if n > MaxBatchBytes {
		return nil, fmt.Errorf("replay: frame declares %d bytes, exceeds max %d", n, MaxBatchBytes)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}
