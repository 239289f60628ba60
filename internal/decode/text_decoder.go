package decode

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// TextDecoder is a reference codec for local development and tests: one
// whitespace-separated record per line,
//
//	action side price size order_id ts_event publisher_id instrument_id flags sequence channel_id ts_in_delta
//
// action is one of A/M/C/R/T/F/N (see Action.String), side is B/A/N. Blank
// lines and lines starting with '#' are skipped. It is not the production
// decoder for any real exchange feed — it exists so the rest of the
// pipeline is runnable without one.
type TextDecoder struct {
	scanner *bufio.Scanner
}

// NewTextDecoder builds a TextDecoder reading from r.
func NewTextDecoder(r io.Reader) *TextDecoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &TextDecoder{scanner: scanner}
}

func (d *TextDecoder) Decode() (Event, error) {
	for {
		if !d.scanner.Scan() {
			if err := d.scanner.Err(); err != nil {
				return Event{}, err
			}
			return Event{}, io.EOF
		}
		line := strings.TrimSpace(d.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return parseTextRecord(line)
	}
}

func parseTextRecord(line string) (Event, error) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return Event{}, fmt.Errorf("decode text record %q: need at least 5 fields, got %d", line, len(fields))
	}

	action, err := parseAction(fields[0])
	if err != nil {
		return Event{}, fmt.Errorf("decode text record %q: %w", line, err)
	}
	side, err := parseSide(fields[1])
	if err != nil {
		return Event{}, fmt.Errorf("decode text record %q: %w", line, err)
	}

	ev := Event{Action: action, Side: side}

	ev.Price, err = parseIntField(fields, 2, "price")
	if err != nil {
		return Event{}, err
	}
	size, err := parseIntField(fields, 3, "size")
	if err != nil {
		return Event{}, err
	}
	ev.Size = uint32(size)
	orderID, err := parseIntField(fields, 4, "order_id")
	if err != nil {
		return Event{}, err
	}
	ev.OrderID = uint64(orderID)

	optionalInt64 := func(idx int, dst *uint64) error {
		if idx >= len(fields) {
			return nil
		}
		v, err := parseIntField(fields, idx, "field")
		if err != nil {
			return err
		}
		*dst = uint64(v)
		return nil
	}

	if err := optionalInt64(5, &ev.TsEvent); err != nil {
		return Event{}, err
	}
	var publisherID, instrumentID, sequence, channelID uint64
	if err := optionalInt64(6, &publisherID); err != nil {
		return Event{}, err
	}
	ev.PublisherID = uint32(publisherID)
	if err := optionalInt64(7, &instrumentID); err != nil {
		return Event{}, err
	}
	ev.InstrumentID = uint32(instrumentID)
	if len(fields) > 8 {
		flags, err := parseIntField(fields, 8, "flags")
		if err != nil {
			return Event{}, err
		}
		ev.Flags = uint8(flags)
	}
	if err := optionalInt64(9, &sequence); err != nil {
		return Event{}, err
	}
	ev.Sequence = uint32(sequence)
	if err := optionalInt64(10, &channelID); err != nil {
		return Event{}, err
	}
	ev.ChannelID = uint32(channelID)
	if len(fields) > 11 {
		tsInDelta, err := parseIntField(fields, 11, "ts_in_delta")
		if err != nil {
			return Event{}, err
		}
		ev.TsInDelta = int32(tsInDelta)
	}

	return ev, nil
}

func parseIntField(fields []string, idx int, name string) (int64, error) {
	v, err := strconv.ParseInt(fields[idx], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", name, fields[idx], err)
	}
	return v, nil
}

func parseAction(s string) (Action, error) {
	switch strings.ToUpper(s) {
	case "A":
		return ActionAdd, nil
	case "M":
		return ActionModify, nil
	case "C":
		return ActionCancel, nil
	case "R":
		return ActionClear, nil
	case "T":
		return ActionTrade, nil
	case "F":
		return ActionFill, nil
	case "N":
		return ActionNone, nil
	default:
		return 0, fmt.Errorf("unknown action %q", s)
	}
}

func parseSide(s string) (Side, error) {
	switch strings.ToUpper(s) {
	case "B":
		return SideBid, nil
	case "A":
		return SideAsk, nil
	case "N":
		return SideNone, nil
	default:
		return 0, fmt.Errorf("unknown side %q", s)
	}
}
