package snapshot

import "strconv"

// MbpLevel is one price level in the MBP line-JSON format. Price is
// rendered as a decimal string rather than a JSON number, matching the
// reference format's int-as-string convention.
type MbpLevel struct {
	Count uint32 `json:"count"`
	Price string `json:"price"`
	Size  uint32 `json:"size"`
}

// MbpBbo holds the two optional best-level sides, each null when absent.
type MbpBbo struct {
	Ask *MbpLevel `json:"ask"`
	Bid *MbpLevel `json:"bid"`
}

// MbpLevels holds the depth-limited level lists for both sides.
type MbpLevels struct {
	Asks []MbpLevel `json:"asks"`
	Bids []MbpLevel `json:"bids"`
}

// MbpStats carries the full-book totals, independent of any depth
// truncation applied to MbpLevels.
type MbpStats struct {
	AskLevels   uint32 `json:"ask_levels"`
	BidLevels   uint32 `json:"bid_levels"`
	TotalOrders uint32 `json:"total_orders"`
}

// MbpOutput is one line of the MBP line-delimited JSON log.
type MbpOutput struct {
	Bbo       MbpBbo    `json:"bbo"`
	Levels    MbpLevels `json:"levels"`
	Info      MbpStats  `json:"info"`
	Symbol    string    `json:"symbol"`
	Timestamp string    `json:"timestamp"`
}

// ToMbpOutput converts a Record into the MBP line-JSON shape, rendering
// price and the event timestamp as decimal strings.
func (r *Record) ToMbpOutput() MbpOutput {
	out := MbpOutput{
		Symbol:    r.Payload.Symbol,
		Timestamp: strconv.FormatInt(r.Payload.TsNs, 10),
		Levels: MbpLevels{
			Asks: mbpLevelsFrom(r.Payload.Asks),
			Bids: mbpLevelsFrom(r.Payload.Bids),
		},
		Info: MbpStats{
			AskLevels:   r.Payload.AskLevels,
			BidLevels:   r.Payload.BidLevels,
			TotalOrders: r.Payload.TotalOrders,
		},
	}
	if r.Payload.Bbo.BestAsk != nil {
		out.Bbo.Ask = mbpLevelFrom(*r.Payload.Bbo.BestAsk)
	}
	if r.Payload.Bbo.BestBid != nil {
		out.Bbo.Bid = mbpLevelFrom(*r.Payload.Bbo.BestBid)
	}
	return out
}

func mbpLevelFrom(l Level) *MbpLevel {
	return &MbpLevel{Count: l.Count, Price: strconv.FormatInt(l.Price, 10), Size: l.Size}
}

func mbpLevelsFrom(ls []Level) []MbpLevel {
	out := make([]MbpLevel, len(ls))
	for i, l := range ls {
		out[i] = MbpLevel{Count: l.Count, Price: strconv.FormatInt(l.Price, 10), Size: l.Size}
	}
	return out
}
