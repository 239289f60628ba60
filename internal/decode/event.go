// Package decode defines the MBO event contract consumed by the ingest
// driver and provides reference codecs for it. The wire format of the
// upstream market-data feed is an external collaborator; this package only
// fixes the shape ingest needs and ships codecs good enough to exercise the
// rest of the pipeline end to end.
package decode

import "fmt"

// UndefPrice is the sentinel meaning "no price" on an Event, mirroring the
// source feed's UNDEF_PRICE.
const UndefPrice int64 = 1<<63 - 1

// Side is the side of the book an order rests on.
type Side uint8

const (
	SideNone Side = iota
	SideBid
	SideAsk
)

func (s Side) String() string {
	switch s {
	case SideBid:
		return "B"
	case SideAsk:
		return "A"
	default:
		return "N"
	}
}

// Action is the kind of change an Event applies to a book.
type Action uint8

const (
	ActionAdd Action = iota
	ActionModify
	ActionCancel
	ActionClear
	ActionTrade
	ActionFill
	ActionNone
)

func (a Action) String() string {
	switch a {
	case ActionAdd:
		return "A"
	case ActionModify:
		return "M"
	case ActionCancel:
		return "C"
	case ActionClear:
		return "R"
	case ActionTrade:
		return "T"
	case ActionFill:
		return "F"
	default:
		return "N"
	}
}

// TOBFlag marks an Add as a top-of-book-only update rather than a real
// resting order.
const TOBFlag uint8 = 1 << 7

// Event is a single MBO record, carrying both the fields the book engine
// needs and the pass-through fields downstream consumers expect to see
// echoed in frame replay.
type Event struct {
	OrderID      uint64
	Action       Action
	Side         Side
	Price        int64
	Size         uint32
	Flags        uint8
	TsEvent      uint64
	Sequence     uint32
	ChannelID    uint32
	TsInDelta    int32
	PublisherID  uint32
	InstrumentID uint32
}

// IsTOB reports whether this event is a top-of-book-only snapshot update
// rather than a real order (see TOBFlag).
func (e Event) IsTOB() bool {
	return e.Flags&TOBFlag != 0
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s px=%d sz=%d oid=%d instr=%d pub=%d",
		e.Action, e.Side, e.Price, e.Size, e.OrderID, e.InstrumentID, e.PublisherID)
}
