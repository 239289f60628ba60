package replay

import (
	"bytes"
	"testing"

	"github.com/mselser95/orderbook-snapshotter/internal/decode"
)

func TestEncodeDecodeBatch_RoundTrip(t *testing.T) {
	batch := Batch{Msgs: []Msg{
		EventToMsg(decode.Event{OrderID: 1, Action: decode.ActionAdd, Side: decode.SideBid, Price: 10050, Size: 100, InstrumentID: 7}),
		EventToMsg(decode.Event{OrderID: 2, Action: decode.ActionModify, Side: decode.SideAsk, Price: -5, Size: 3, InstrumentID: 7}),
	}}

	payload, err := EncodeBatch(batch)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := DecodeBatch(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Msgs) != len(batch.Msgs) {
		t.Fatalf("expected %d messages, got %d", len(batch.Msgs), len(got.Msgs))
	}
	for i := range batch.Msgs {
		if got.Msgs[i] != batch.Msgs[i] {
			t.Fatalf("message %d mismatch: got %+v want %+v", i, got.Msgs[i], batch.Msgs[i])
		}
	}
}

func TestEncodeBatch_RejectsOversizedBatch(t *testing.T) {
	n := MaxBatchBytes/msgEncodedLen + 10
	msgs := make([]Msg, n)
	if _, err := EncodeBatch(Batch{Msgs: msgs}); err == nil {
		t.Fatal("expected error encoding a batch over MaxBatchBytes")
	}
}

func TestWriteReadFrame_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello frame")
	if err := WriteFrame(&buf, payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q want %q", got, payload)
	}
}

func TestReadFrame_RejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	if _, err := ReadFrame(&buf); err == nil {
		t.Fatal("expected error reading a frame advertising an oversized length")
	}
}
