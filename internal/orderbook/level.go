// Package orderbook maintains per-instrument, per-publisher price-time
// priority limit order books from a stream of MBO events, and derives
// best-bid/best-offer and depth summaries from them.
package orderbook

import "github.com/mselser95/orderbook-snapshotter/internal/decode"

// Level is the resting orders at a single price, in arrival order. The
// order at index 0 has priority.
type Level []decode.Event

// totalSize sums the size across every order resting at this level,
// including top-of-book-only entries.
func (l Level) totalSize() uint64 {
	var sum uint64
	for _, o := range l {
		sum += uint64(o.Size)
	}
	return sum
}

// count returns the number of real resting orders at this level,
// excluding top-of-book-only entries (see decode.Event.IsTOB).
func (l Level) count() int {
	n := 0
	for _, o := range l {
		if !o.IsTOB() {
			n++
		}
	}
	return n
}

func (l Level) indexOf(orderID uint64) int {
	for i, o := range l {
		if o.OrderID == orderID {
			return i
		}
	}
	return -1
}

// PriceLevel is a public, aggregated view of a single price level.
type PriceLevel struct {
	Price int64
	Size  uint64
	Count int
}

func newPriceLevel(price int64, l Level) PriceLevel {
	return PriceLevel{Price: price, Size: l.totalSize(), Count: l.count()}
}

type priceNode struct {
	price int64
	level Level
}

func priceLess(a, b *priceNode) bool {
	return a.price < b.price
}
