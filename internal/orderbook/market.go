package orderbook

import (
	"github.com/mselser95/orderbook-snapshotter/internal/decode"
)

type publisherBook struct {
	publisherID uint32
	book        *Book
}

// Market owns every instrument's per-publisher books. Like Book, it is
// single-writer: the ingest driver is the only goroutine that calls Apply.
type Market struct {
	instruments map[uint32][]*publisherBook
}

// NewMarket returns an empty market.
func NewMarket() *Market {
	return &Market{instruments: make(map[uint32][]*publisherBook)}
}

func (m *Market) bookFor(e decode.Event) *Book {
	pubs := m.instruments[e.InstrumentID]
	for _, pb := range pubs {
		if pb.publisherID == e.PublisherID {
			return pb.book
		}
	}
	book := NewBook()
	m.instruments[e.InstrumentID] = append(pubs, &publisherBook{publisherID: e.PublisherID, book: book})
	return book
}

// Apply routes e to the book for its (instrument, publisher) pair,
// creating the book on first sight of that pair.
func (m *Market) Apply(e decode.Event) (applied bool, err error) {
	return m.bookFor(e).Apply(e)
}

// PrimaryBook returns the book for the first publisher seen for an
// instrument, in order of arrival. Depth summaries are read from the
// primary book only, matching how the reference snapshot builder reads
// depth from a single publisher rather than merging levels across
// publishers.
func (m *Market) PrimaryBook(instrumentID uint32) (*Book, bool) {
	pubs := m.instruments[instrumentID]
	if len(pubs) == 0 {
		return nil, false
	}
	return pubs[0].book, true
}

// AggregatedBBO computes the best bid and best ask for instrumentID across
// every publisher's book. At a shared best price, sizes and counts are
// summed so depth contributed by multiple publishers is not lost.
func (m *Market) AggregatedBBO(instrumentID uint32) (bestBid, bestAsk PriceLevel, haveBid, haveAsk bool) {
	for _, pb := range m.instruments[instrumentID] {
		if bid, ok := pb.book.BestBid(); ok {
			switch {
			case !haveBid || bid.Price > bestBid.Price:
				bestBid = bid
				haveBid = true
			case bid.Price == bestBid.Price:
				bestBid.Size += bid.Size
				bestBid.Count += bid.Count
			}
		}
		if ask, ok := pb.book.BestAsk(); ok {
			switch {
			case !haveAsk || ask.Price < bestAsk.Price:
				bestAsk = ask
				haveAsk = true
			case ask.Price == bestAsk.Price:
				bestAsk.Size += ask.Size
				bestAsk.Count += ask.Count
			}
		}
	}
	return bestBid, bestAsk, haveBid, haveAsk
}
