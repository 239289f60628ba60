// Package snapshot derives immutable MBP snapshot records from order book
// state, holds the latest one for the HTTP handler, and converts records
// into the line-delimited MBP JSON format.
package snapshot

// Level is one price level as it appears in the latest-snapshot JSON
// payload and in bulk-load rows.
type Level struct {
	Price int64  `json:"price"`
	Size  uint32 `json:"size"`
	Count uint32 `json:"count"`
}

// Bbo is the aggregated best bid/offer. Either side may be absent (nil)
// when no publisher has a level on that side.
type Bbo struct {
	BestBid *Level `json:"best_bid"`
	BestAsk *Level `json:"best_ask"`
}

// Payload is the JSON body served at GET /snapshot.
type Payload struct {
	Symbol      string  `json:"symbol"`
	TsNs        int64   `json:"ts_ns"`
	Bbo         Bbo     `json:"bbo"`
	Bids        []Level `json:"bids"`
	Asks        []Level `json:"asks"`
	TotalOrders uint32  `json:"total_orders"`
	BidLevels   uint32  `json:"bid_levels"`
	AskLevels   uint32  `json:"ask_levels"`
}

// Record pairs a Payload with the routing fields consumers need without
// re-parsing the payload. It is never mutated after BuildSnapshotRecord
// returns it: every consumer (the Latest-Snapshot Cell, the storage
// channel, the JSON-log channel) holds a shared reference to the same
// immutable value.
type Record struct {
	InstrumentID uint32
	TsEvent      int64
	Payload      Payload
}
