package orderbook

import (
	"testing"

	"github.com/mselser95/orderbook-snapshotter/internal/decode"
)

func add(book *Book, t *testing.T, orderID uint64, side decode.Side, price int64, size uint32) {
	t.Helper()
	applied, err := book.Apply(decode.Event{Action: decode.ActionAdd, OrderID: orderID, Side: side, Price: price, Size: size})
	if err != nil {
		t.Fatalf("add order %d: %v", orderID, err)
	}
	if !applied {
		t.Fatalf("add order %d: expected applied=true", orderID)
	}
}

func TestBook_AddPriceTimePriority(t *testing.T) {
	book := NewBook()
	add(book, t, 1, decode.SideBid, 100, 10)
	add(book, t, 2, decode.SideBid, 100, 5)

	level, ok := book.BidLevel(100)
	if !ok {
		t.Fatal("expected bid level at 100")
	}
	if level.Size != 15 || level.Count != 2 {
		t.Fatalf("unexpected aggregate level: %+v", level)
	}

	loc := book.ordersByID[1]
	node, _ := book.bids.Get(&priceNode{price: 100})
	if node.level[0].OrderID != 1 || node.level[1].OrderID != 2 {
		t.Fatalf("expected order 1 ahead of order 2 in level, got %v", node.level)
	}
	if loc.price != 100 {
		t.Fatalf("unexpected location for order 1: %+v", loc)
	}
}

func TestBook_AddDuplicateOrderIDIsRejected(t *testing.T) {
	book := NewBook()
	add(book, t, 1, decode.SideBid, 100, 10)
	_, err := book.Apply(decode.Event{Action: decode.ActionAdd, OrderID: 1, Side: decode.SideBid, Price: 101, Size: 5})
	if err == nil {
		t.Fatal("expected error adding a duplicate order id")
	}
}

func TestBook_CancelPartialLeavesOrderResting(t *testing.T) {
	book := NewBook()
	add(book, t, 1, decode.SideAsk, 200, 10)

	applied, err := book.Apply(decode.Event{Action: decode.ActionCancel, OrderID: 1, Side: decode.SideAsk, Price: 200, Size: 4})
	if err != nil || !applied {
		t.Fatalf("partial cancel: applied=%v err=%v", applied, err)
	}

	level, ok := book.AskLevel(200)
	if !ok || level.Size != 6 || level.Count != 1 {
		t.Fatalf("expected 6 remaining after partial cancel, got %+v (ok=%v)", level, ok)
	}
}

func TestBook_CancelFullRemovesOrderAndLevel(t *testing.T) {
	book := NewBook()
	add(book, t, 1, decode.SideAsk, 200, 10)

	applied, err := book.Apply(decode.Event{Action: decode.ActionCancel, OrderID: 1, Side: decode.SideAsk, Price: 200, Size: 10})
	if err != nil || !applied {
		t.Fatalf("full cancel: applied=%v err=%v", applied, err)
	}
	if _, ok := book.AskLevel(200); ok {
		t.Fatal("expected level to be removed once empty")
	}
	if _, ok := book.ordersByID[1]; ok {
		t.Fatal("expected order to be removed from index")
	}
}

func TestBook_CancelUnknownOrderIsNotApplied(t *testing.T) {
	book := NewBook()
	applied, err := book.Apply(decode.Event{Action: decode.ActionCancel, OrderID: 999, Side: decode.SideBid, Price: 100, Size: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied {
		t.Fatal("expected cancel of unknown order to report applied=false")
	}
}

func TestBook_CancelSizeExceedingRestingIsError(t *testing.T) {
	book := NewBook()
	add(book, t, 1, decode.SideBid, 100, 5)
	_, err := book.Apply(decode.Event{Action: decode.ActionCancel, OrderID: 1, Side: decode.SideBid, Price: 100, Size: 6})
	if err == nil {
		t.Fatal("expected error cancelling more size than resting")
	}
}

func TestBook_ModifyPriceChangeLosesPriority(t *testing.T) {
	book := NewBook()
	add(book, t, 1, decode.SideBid, 100, 10)
	add(book, t, 2, decode.SideBid, 101, 5)

	applied, err := book.Apply(decode.Event{Action: decode.ActionModify, OrderID: 1, Side: decode.SideBid, Price: 101, Size: 10})
	if err != nil || !applied {
		t.Fatalf("modify: applied=%v err=%v", applied, err)
	}

	if _, ok := book.BidLevel(100); ok {
		t.Fatal("expected old price level to be gone")
	}
	node, ok := book.bids.Get(&priceNode{price: 101})
	if !ok {
		t.Fatal("expected level at new price")
	}
	if node.level[0].OrderID != 2 || node.level[1].OrderID != 1 {
		t.Fatalf("expected modified order to move to the back of the new level, got %v", node.level)
	}
}

func TestBook_ModifySamePriceSizeDecreasePreservesPriority(t *testing.T) {
	book := NewBook()
	add(book, t, 1, decode.SideBid, 100, 10)
	add(book, t, 2, decode.SideBid, 100, 5)

	applied, err := book.Apply(decode.Event{Action: decode.ActionModify, OrderID: 1, Side: decode.SideBid, Price: 100, Size: 3})
	if err != nil || !applied {
		t.Fatalf("modify: applied=%v err=%v", applied, err)
	}

	node, _ := book.bids.Get(&priceNode{price: 100})
	if node.level[0].OrderID != 1 || node.level[0].Size != 3 {
		t.Fatalf("expected order 1 to keep priority with reduced size, got %v", node.level)
	}
}

func TestBook_ModifySamePriceSizeIncreaseLosesPriority(t *testing.T) {
	book := NewBook()
	add(book, t, 1, decode.SideBid, 100, 5)
	add(book, t, 2, decode.SideBid, 100, 5)

	applied, err := book.Apply(decode.Event{Action: decode.ActionModify, OrderID: 1, Side: decode.SideBid, Price: 100, Size: 10})
	if err != nil || !applied {
		t.Fatalf("modify: applied=%v err=%v", applied, err)
	}

	node, _ := book.bids.Get(&priceNode{price: 100})
	if node.level[0].OrderID != 2 || node.level[1].OrderID != 1 {
		t.Fatalf("expected order 1 to move to the back after a size increase, got %v", node.level)
	}
}

func TestBook_ModifyUnknownOrderIsTreatedAsAdd(t *testing.T) {
	book := NewBook()
	applied, err := book.Apply(decode.Event{Action: decode.ActionModify, OrderID: 42, Side: decode.SideAsk, Price: 150, Size: 7})
	if err != nil || !applied {
		t.Fatalf("modify-as-add: applied=%v err=%v", applied, err)
	}
	level, ok := book.AskLevel(150)
	if !ok || level.Size != 7 {
		t.Fatalf("expected order to be added via modify, got %+v", level)
	}
}

func TestBook_TOBAddClearsSideAndIsExcludedFromCount(t *testing.T) {
	book := NewBook()
	add(book, t, 1, decode.SideBid, 100, 10)
	add(book, t, 2, decode.SideBid, 99, 5)

	applied, err := book.Apply(decode.Event{Action: decode.ActionAdd, Side: decode.SideBid, Price: 105, Size: 50, Flags: decode.TOBFlag})
	if err != nil || !applied {
		t.Fatalf("tob add: applied=%v err=%v", applied, err)
	}

	if _, ok := book.BidLevel(100); ok {
		t.Fatal("expected prior bid levels to be cleared by a TOB update")
	}
	level, ok := book.BidLevel(105)
	if !ok || level.Size != 50 || level.Count != 0 {
		t.Fatalf("expected TOB level with size 50 and count 0, got %+v (ok=%v)", level, ok)
	}
	if _, ok := book.ordersByID[1]; ok {
		t.Fatal("expected order 1 to be removed from the index by the TOB clear")
	}
}

func TestBook_ClearWipesBothSidesAndIndex(t *testing.T) {
	book := NewBook()
	add(book, t, 1, decode.SideBid, 100, 10)
	add(book, t, 2, decode.SideAsk, 101, 10)

	applied, err := book.Apply(decode.Event{Action: decode.ActionClear})
	if err != nil || !applied {
		t.Fatalf("clear: applied=%v err=%v", applied, err)
	}
	if _, ok := book.BestBid(); ok {
		t.Fatal("expected no best bid after clear")
	}
	if _, ok := book.BestAsk(); ok {
		t.Fatal("expected no best ask after clear")
	}
	if len(book.ordersByID) != 0 {
		t.Fatal("expected order index to be empty after clear")
	}
}

func TestBook_TradeFillNoneAreAppliedWithoutChangingStructure(t *testing.T) {
	book := NewBook()
	add(book, t, 1, decode.SideBid, 100, 5)

	for _, action := range []decode.Action{decode.ActionTrade, decode.ActionFill, decode.ActionNone} {
		applied, err := book.Apply(decode.Event{Action: action, Side: decode.SideBid, Price: 100, Size: 1})
		if err != nil {
			t.Fatalf("action %v: unexpected error %v", action, err)
		}
		if !applied {
			t.Fatalf("action %v: expected applied=true so a snapshot is still produced", action)
		}
	}

	if level, ok := book.BidLevel(100); !ok || level.Size != 5 {
		t.Fatalf("expected trade/fill/none to leave the book unchanged, got %+v (ok=%v)", level, ok)
	}
}

func TestBook_SnapshotOrdering(t *testing.T) {
	book := NewBook()
	add(book, t, 1, decode.SideBid, 100, 1)
	add(book, t, 2, decode.SideBid, 102, 1)
	add(book, t, 3, decode.SideBid, 101, 1)
	add(book, t, 4, decode.SideAsk, 110, 1)
	add(book, t, 5, decode.SideAsk, 108, 1)
	add(book, t, 6, decode.SideAsk, 109, 1)

	bids, asks := book.Snapshot(0)
	wantBidPrices := []int64{102, 101, 100}
	for i, p := range wantBidPrices {
		if bids[i].Price != p {
			t.Fatalf("bid %d: expected price %d, got %d", i, p, bids[i].Price)
		}
	}
	wantAskPrices := []int64{108, 109, 110}
	for i, p := range wantAskPrices {
		if asks[i].Price != p {
			t.Fatalf("ask %d: expected price %d, got %d", i, p, asks[i].Price)
		}
	}
}

func TestBook_SnapshotRespectsDepth(t *testing.T) {
	book := NewBook()
	for i := int64(0); i < 5; i++ {
		add(book, t, uint64(i+1), decode.SideBid, 100+i, 1)
	}
	bids, _ := book.Snapshot(2)
	if len(bids) != 2 {
		t.Fatalf("expected 2 bid levels with depth=2, got %d", len(bids))
	}
}
