package orderbook

import (
	"testing"

	"github.com/mselser95/orderbook-snapshotter/internal/decode"
)

func TestMarket_RoutesByInstrumentAndPublisher(t *testing.T) {
	m := NewMarket()
	applied, err := m.Apply(decode.Event{Action: decode.ActionAdd, OrderID: 1, Side: decode.SideBid, Price: 100, Size: 5, InstrumentID: 1, PublisherID: 1})
	if err != nil || !applied {
		t.Fatalf("apply: applied=%v err=%v", applied, err)
	}
	_, err = m.Apply(decode.Event{Action: decode.ActionAdd, OrderID: 2, Side: decode.SideBid, Price: 101, Size: 5, InstrumentID: 1, PublisherID: 2})
	if err != nil {
		t.Fatalf("apply second publisher: %v", err)
	}

	book1 := m.instruments[1][0].book
	if _, has := book1.BidLevel(100); !has {
		t.Fatal("expected publisher 1's book to have the first order")
	}
	book2 := m.instruments[1][1].book
	if _, has := book2.BidLevel(101); !has {
		t.Fatal("expected publisher 2's book to have the second order")
	}
}

func TestMarket_AggregatedBBOSumsSharedBestPrice(t *testing.T) {
	m := NewMarket()
	mustApply := func(e decode.Event) {
		t.Helper()
		if _, err := m.Apply(e); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}

	mustApply(decode.Event{Action: decode.ActionAdd, OrderID: 1, Side: decode.SideBid, Price: 100, Size: 10, InstrumentID: 1, PublisherID: 1})
	mustApply(decode.Event{Action: decode.ActionAdd, OrderID: 2, Side: decode.SideBid, Price: 100, Size: 5, InstrumentID: 1, PublisherID: 2})
	mustApply(decode.Event{Action: decode.ActionAdd, OrderID: 3, Side: decode.SideAsk, Price: 110, Size: 7, InstrumentID: 1, PublisherID: 1})
	mustApply(decode.Event{Action: decode.ActionAdd, OrderID: 4, Side: decode.SideAsk, Price: 111, Size: 3, InstrumentID: 1, PublisherID: 2})

	bid, ask, haveBid, haveAsk := m.AggregatedBBO(1)
	if !haveBid || bid.Price != 100 || bid.Size != 15 || bid.Count != 2 {
		t.Fatalf("unexpected aggregated bid: %+v (have=%v)", bid, haveBid)
	}
	if !haveAsk || ask.Price != 110 || ask.Size != 7 || ask.Count != 1 {
		t.Fatalf("unexpected aggregated ask: %+v (have=%v)", ask, haveAsk)
	}
}

func TestMarket_PrimaryBookIsFirstSeenPublisher(t *testing.T) {
	m := NewMarket()
	if _, err := m.Apply(decode.Event{Action: decode.ActionAdd, OrderID: 1, Side: decode.SideBid, Price: 100, Size: 1, InstrumentID: 5, PublisherID: 9}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := m.Apply(decode.Event{Action: decode.ActionAdd, OrderID: 2, Side: decode.SideBid, Price: 200, Size: 1, InstrumentID: 5, PublisherID: 1}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	primary, ok := m.PrimaryBook(5)
	if !ok {
		t.Fatal("expected a primary book for instrument 5")
	}
	if _, has := primary.BidLevel(100); !has {
		t.Fatal("expected primary book to be publisher 9's book (first seen), not publisher 1's")
	}
}

func TestMarket_AggregatedBBOEmptyMarket(t *testing.T) {
	m := NewMarket()
	_, _, haveBid, haveAsk := m.AggregatedBBO(999)
	if haveBid || haveAsk {
		t.Fatal("expected no bbo for an unknown instrument")
	}
}
