// Package market holds the value types shared by every analysis package:
// order-book levels, order-book snapshots and executed trades.
package market

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownSide     = errors.New("unknown trade side")
	ErrUnknownBookSide = errors.New("unknown book side")
	ErrUnsortedBook    = errors.New("order book side out of order")
	ErrNegativeSize    = errors.New("negative quantity")
)

// Side is the aggressor side of an executed trade.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	}
	return fmt.Sprintf("Side(%d)", uint8(s))
}

// ParseSide accepts "buy"/"sell" in any case.
func ParseSide(v string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSide, v)
}

func (s Side) MarshalText() ([]byte, error) {
	if s != Buy && s != Sell {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSide, uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(text []byte) error {
	v, err := ParseSide(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// BookSide names one side of an order book.
type BookSide uint8

const (
	Bid BookSide = iota
	Ask
)

func (s BookSide) String() string {
	switch s {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	}
	return fmt.Sprintf("BookSide(%d)", uint8(s))
}

// ParseBookSide accepts "bid"/"ask" in any case.
func ParseBookSide(v string) (BookSide, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "bid":
		return Bid, nil
	case "ask":
		return Ask, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownBookSide, v)
}

func (s BookSide) MarshalText() ([]byte, error) {
	if s != Bid && s != Ask {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBookSide, uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *BookSide) UnmarshalText(text []byte) error {
	v, err := ParseBookSide(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

type Level struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"` // >= 0
}

// OrderBook is a full snapshot. Bids must be sorted by price descending and
// asks ascending so that index 0 is the best price on each side; nothing in
// this module re-sorts them.
type OrderBook struct {
	Bids      []Level `json:"bids"`
	Asks      []Level `json:"asks"`
	Timestamp int64   `json:"timestamp"`
}

// Validate checks the ordering and quantity preconditions. The analysis
// functions assume them and never call this; it is for input boundaries.
func (b OrderBook) Validate() error {
	if err := checkSide(b.Bids, "bids", func(prev, cur decimal.Decimal) bool { return cur.LessThan(prev) }); err != nil {
		return err
	}
	return checkSide(b.Asks, "asks", func(prev, cur decimal.Decimal) bool { return cur.GreaterThan(prev) })
}

func checkSide(levels []Level, name string, ordered func(prev, cur decimal.Decimal) bool) error {
	for i, l := range levels {
		if l.Quantity.IsNegative() {
			return fmt.Errorf("%s[%d]: %w", name, i, ErrNegativeSize)
		}
		if i > 0 && !ordered(levels[i-1].Price, l.Price) {
			return fmt.Errorf("%s[%d] at %s: %w", name, i, l.Price, ErrUnsortedBook)
		}
	}
	return nil
}

// Trade is one execution on the tape. Clustering and CVD expect trades in
// non-decreasing timestamp order.
type Trade struct {
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"` // >= 0
	Side      Side            `json:"side"`
	Timestamp int64           `json:"timestamp"`
}
