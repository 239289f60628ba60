package orderbook

import (
	"fmt"

	"github.com/google/btree"

	"github.com/mselser95/orderbook-snapshotter/internal/decode"
)

type orderLocation struct {
	side  decode.Side
	price int64
}

// Book is a single price-time priority order book for one instrument as
// seen by one publisher. It is not safe for concurrent use: the ingest
// driver owns it exclusively and applies events to it one at a time.
type Book struct {
	bids       *btree.BTreeG[*priceNode]
	asks       *btree.BTreeG[*priceNode]
	ordersByID map[uint64]orderLocation
}

const bookTreeDegree = 32

// NewBook returns an empty book.
func NewBook() *Book {
	return &Book{
		bids:       btree.NewG(bookTreeDegree, priceLess),
		asks:       btree.NewG(bookTreeDegree, priceLess),
		ordersByID: make(map[uint64]orderLocation),
	}
}

func (b *Book) sideTree(s decode.Side) *btree.BTreeG[*priceNode] {
	if s == decode.SideBid {
		return b.bids
	}
	return b.asks
}

// BestBid returns the highest bid level, if any.
func (b *Book) BestBid() (PriceLevel, bool) {
	node, ok := b.bids.Max()
	if !ok {
		return PriceLevel{}, false
	}
	return newPriceLevel(node.price, node.level), true
}

// BestAsk returns the lowest ask level, if any.
func (b *Book) BestAsk() (PriceLevel, bool) {
	node, ok := b.asks.Min()
	if !ok {
		return PriceLevel{}, false
	}
	return newPriceLevel(node.price, node.level), true
}

// BidLevel returns the aggregated view of the bid level at price, if any
// orders rest there.
func (b *Book) BidLevel(price int64) (PriceLevel, bool) {
	node, ok := b.bids.Get(&priceNode{price: price})
	if !ok {
		return PriceLevel{}, false
	}
	return newPriceLevel(node.price, node.level), true
}

// AskLevel returns the aggregated view of the ask level at price, if any
// orders rest there.
func (b *Book) AskLevel(price int64) (PriceLevel, bool) {
	node, ok := b.asks.Get(&priceNode{price: price})
	if !ok {
		return PriceLevel{}, false
	}
	return newPriceLevel(node.price, node.level), true
}

// IterBidsDesc visits bid price levels from highest to lowest, stopping
// early if fn returns false.
func (b *Book) IterBidsDesc(fn func(PriceLevel) bool) {
	b.bids.Descend(func(n *priceNode) bool {
		return fn(newPriceLevel(n.price, n.level))
	})
}

// IterAsksAsc visits ask price levels from lowest to highest, stopping
// early if fn returns false.
func (b *Book) IterAsksAsc(fn func(PriceLevel) bool) {
	b.asks.Ascend(func(n *priceNode) bool {
		return fn(newPriceLevel(n.price, n.level))
	})
}

// Snapshot returns up to depth levels per side (all levels if depth <= 0).
func (b *Book) Snapshot(depth int) (bids, asks []PriceLevel) {
	b.IterBidsDesc(func(pl PriceLevel) bool {
		bids = append(bids, pl)
		return depth <= 0 || len(bids) < depth
	})
	b.IterAsksAsc(func(pl PriceLevel) bool {
		asks = append(asks, pl)
		return depth <= 0 || len(asks) < depth
	})
	return bids, asks
}

// TotalOrders returns the number of real resting orders tracked in the
// book, across both sides.
func (b *Book) TotalOrders() int {
	return len(b.ordersByID)
}

// BidLevelCount returns the total number of distinct bid price levels,
// independent of any depth truncation applied when reading them.
func (b *Book) BidLevelCount() int {
	return b.bids.Len()
}

// AskLevelCount returns the total number of distinct ask price levels,
// independent of any depth truncation applied when reading them.
func (b *Book) AskLevelCount() int {
	return b.asks.Len()
}

// Apply mutates the book according to e and reports whether a snapshot
// should be produced for it. Trade, Fill and None events never change
// book structure but still report applied = true with a nil error, since
// each one still warrants a snapshot of the book as it stood when the
// event was observed.
func (b *Book) Apply(e decode.Event) (applied bool, err error) {
	switch e.Action {
	case decode.ActionAdd:
		return b.add(e)
	case decode.ActionModify:
		return b.modify(e)
	case decode.ActionCancel:
		return b.cancel(e)
	case decode.ActionClear:
		b.clear()
		return true, nil
	case decode.ActionTrade, decode.ActionFill, decode.ActionNone:
		return true, nil
	default:
		return false, fmt.Errorf("orderbook: unknown action %v", e.Action)
	}
}

func (b *Book) add(e decode.Event) (bool, error) {
	if e.IsTOB() {
		b.clearSide(e.Side)
		if e.Price == decode.UndefPrice {
			return true, nil
		}
		tree := b.sideTree(e.Side)
		tree.ReplaceOrInsert(&priceNode{price: e.Price, level: Level{e}})
		return true, nil
	}

	if _, exists := b.ordersByID[e.OrderID]; exists {
		return false, fmt.Errorf("orderbook: add of duplicate order id %d", e.OrderID)
	}

	tree := b.sideTree(e.Side)
	node, ok := tree.Get(&priceNode{price: e.Price})
	if !ok {
		node = &priceNode{price: e.Price}
		tree.ReplaceOrInsert(node)
	}
	node.level = append(node.level, e)
	b.ordersByID[e.OrderID] = orderLocation{side: e.Side, price: e.Price}
	return true, nil
}

func (b *Book) cancel(e decode.Event) (bool, error) {
	loc, ok := b.ordersByID[e.OrderID]
	if !ok {
		return false, nil
	}
	tree := b.sideTree(loc.side)
	node, ok := tree.Get(&priceNode{price: loc.price})
	if !ok {
		delete(b.ordersByID, e.OrderID)
		return false, nil
	}
	idx := node.level.indexOf(e.OrderID)
	if idx < 0 {
		delete(b.ordersByID, e.OrderID)
		return false, nil
	}

	current := node.level[idx]
	if uint64(current.Size) < uint64(e.Size) {
		return false, fmt.Errorf("orderbook: cancel size %d exceeds resting size %d for order %d", e.Size, current.Size, e.OrderID)
	}

	remaining := current.Size - e.Size
	if remaining == 0 {
		node.level = append(node.level[:idx], node.level[idx+1:]...)
		delete(b.ordersByID, e.OrderID)
		if len(node.level) == 0 {
			tree.Delete(&priceNode{price: loc.price})
		}
		return true, nil
	}

	current.Size = remaining
	node.level[idx] = current
	return true, nil
}

func (b *Book) modify(e decode.Event) (bool, error) {
	loc, ok := b.ordersByID[e.OrderID]
	if !ok {
		return b.add(e)
	}

	tree := b.sideTree(loc.side)
	node, ok := tree.Get(&priceNode{price: loc.price})
	if !ok {
		delete(b.ordersByID, e.OrderID)
		return b.add(e)
	}
	idx := node.level.indexOf(e.OrderID)
	if idx < 0 {
		delete(b.ordersByID, e.OrderID)
		return b.add(e)
	}

	current := node.level[idx]

	if e.Price != loc.price {
		node.level = append(node.level[:idx], node.level[idx+1:]...)
		if len(node.level) == 0 {
			tree.Delete(&priceNode{price: loc.price})
		}
		delete(b.ordersByID, e.OrderID)
		return b.add(e)
	}

	if e.Size > current.Size {
		node.level = append(node.level[:idx], node.level[idx+1:]...)
		node.level = append(node.level, e)
		b.ordersByID[e.OrderID] = orderLocation{side: e.Side, price: e.Price}
		return true, nil
	}

	node.level[idx] = e
	b.ordersByID[e.OrderID] = orderLocation{side: e.Side, price: e.Price}
	return true, nil
}

func (b *Book) clearSide(s decode.Side) {
	tree := b.sideTree(s)
	tree.Ascend(func(n *priceNode) bool {
		for _, o := range n.level {
			if !o.IsTOB() {
				delete(b.ordersByID, o.OrderID)
			}
		}
		return true
	})
	if s == decode.SideBid {
		b.bids = btree.NewG(bookTreeDegree, priceLess)
	} else {
		b.asks = btree.NewG(bookTreeDegree, priceLess)
	}
}

func (b *Book) clear() {
	b.bids = btree.NewG(bookTreeDegree, priceLess)
	b.asks = btree.NewG(bookTreeDegree, priceLess)
	b.ordersByID = make(map[uint64]orderLocation)
}
