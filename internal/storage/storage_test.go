package storage

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"

	"github.com/mselser95/orderbook-snapshotter/internal/snapshot"
)

func testRecord(symbol string, tsEvent int64) *snapshot.Record {
	return &snapshot.Record{
		InstrumentID: 42,
		TsEvent:      tsEvent,
		Payload: snapshot.Payload{
			Symbol: symbol,
			TsNs:   tsEvent,
			Bbo: snapshot.Bbo{
				BestBid: &snapshot.Level{Price: 100_00, Size: 5, Count: 2},
				BestAsk: &snapshot.Level{Price: 101_00, Size: 3, Count: 1},
			},
			BidLevels:   1,
			AskLevels:   1,
			TotalOrders: 3,
		},
	}
}

func TestConsoleWriter_New(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	w := NewConsoleWriter(logger)
	if w == nil {
		t.Fatal("expected non-nil writer")
	}
}

func TestConsoleWriter_RunLogsAndDrains(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	w := NewConsoleWriter(logger)

	rx := make(chan *snapshot.Record, 2)
	rx <- testRecord("CLX5", 1)
	rx <- testRecord("CLX5", 2)
	close(rx)

	if err := w.Run(rx); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if w.count != 2 {
		t.Errorf("expected count 2, got %d", w.count)
	}
}

func TestConsoleWriter_Close(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	w := NewConsoleWriter(logger)
	if err := w.Close(); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestIsConnectionError(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"dial tcp: connection refused", true},
		{"read: connection reset by peer", true},
		{"write: broken pipe", true},
		{"pq: duplicate key value violates unique constraint", false},
	}
	for _, c := range cases {
		err := errString(c.msg)
		if got := isConnectionError(err); got != c.want {
			t.Errorf("isConnectionError(%q) = %v, want %v", c.msg, got, c.want)
		}
	}
}

type errString string

func (e errString) Error() string { return string(e) }

func TestWriter_Interface(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	var _ Writer = NewConsoleWriter(logger)

	db, _, _ := sqlmock.New()
	defer db.Close()
	var _ Writer = &PostgresWriter{db: db, logger: logger, batchSize: 1, flushInterval: 0}
}
