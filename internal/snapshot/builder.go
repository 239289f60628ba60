package snapshot

import "github.com/mselser95/orderbook-snapshotter/internal/orderbook"

// FullDepth tells BuildSnapshotRecord to emit every level on each side
// instead of truncating to a fixed depth.
const FullDepth = 0

// BuildSnapshotRecord derives an immutable snapshot for instrumentID at
// depth (or every level, if depth is FullDepth). The aggregated BBO
// reflects every publisher's book; the bid/ask level lists and totals
// reflect only the first-seen publisher's book, matching the source
// system's asymmetric aggregation (see internal/orderbook.Market.PrimaryBook).
func BuildSnapshotRecord(market *orderbook.Market, instrumentID uint32, symbol string, tsEvent int64, depth int) *Record {
	bestBid, bestAsk, haveBid, haveAsk := market.AggregatedBBO(instrumentID)

	payload := Payload{
		Symbol: symbol,
		TsNs:   tsEvent,
	}
	if haveBid {
		payload.Bbo.BestBid = levelFrom(bestBid)
	}
	if haveAsk {
		payload.Bbo.BestAsk = levelFrom(bestAsk)
	}

	if primary, ok := market.PrimaryBook(instrumentID); ok {
		bids, asks := primary.Snapshot(depth)
		payload.Bids = levelsFrom(bids)
		payload.Asks = levelsFrom(asks)
		payload.TotalOrders = uint32(primary.TotalOrders())
		payload.BidLevels = uint32(primary.BidLevelCount())
		payload.AskLevels = uint32(primary.AskLevelCount())
	}

	return &Record{InstrumentID: instrumentID, TsEvent: tsEvent, Payload: payload}
}

// BuildFullSnapshotRecord is BuildSnapshotRecord with every level included,
// used for the end-of-run summary record rather than the per-event stream.
func BuildFullSnapshotRecord(market *orderbook.Market, instrumentID uint32, symbol string, tsEvent int64) *Record {
	return BuildSnapshotRecord(market, instrumentID, symbol, tsEvent, FullDepth)
}

func levelFrom(pl orderbook.PriceLevel) *Level {
	return &Level{Price: pl.Price, Size: uint32(pl.Size), Count: uint32(pl.Count)}
}

func levelsFrom(pls []orderbook.PriceLevel) []Level {
	out := make([]Level, len(pls))
	for i, pl := range pls {
		out[i] = Level{Price: pl.Price, Size: uint32(pl.Size), Count: uint32(pl.Count)}
	}
	return out
}
