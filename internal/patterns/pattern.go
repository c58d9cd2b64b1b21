// Package patterns flags heuristic microstructure patterns in an order-book
// snapshot or a trade batch. Every detector is a pure function of its
// inputs; detectors can run in any order on overlapping inputs.
package patterns

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"microstructure-analyzer/internal/market"
)

type Kind uint8

const (
	KindIceberg Kind = iota
	KindSpoofing
	KindSupport
	KindResistance
	KindAbsorption
)

func (k Kind) String() string {
	switch k {
	case KindIceberg:
		return "iceberg"
	case KindSpoofing:
		return "spoofing"
	case KindSupport:
		return "support"
	case KindResistance:
		return "resistance"
	case KindAbsorption:
		return "absorption"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(text []byte) error {
	for c := KindIceberg; c <= KindAbsorption; c++ {
		if strings.EqualFold(string(text), c.String()) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown pattern kind %q", text)
}

// Pattern is one detected fact. Size depends on Kind: the estimated total
// size for an iceberg, the resting quantity (strength) for support and
// resistance, the traded volume for absorption. Spoofing carries no size
// but sets Side.
type Pattern struct {
	Kind  Kind            `json:"kind"`
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
	Side  market.BookSide `json:"side"`
}

func Iceberg(price, estimatedSize decimal.Decimal) Pattern {
	return Pattern{Kind: KindIceberg, Price: price, Size: estimatedSize}
}

func Spoofing(price decimal.Decimal, side market.BookSide) Pattern {
	return Pattern{Kind: KindSpoofing, Price: price, Side: side}
}

func Support(price, strength decimal.Decimal) Pattern {
	return Pattern{Kind: KindSupport, Price: price, Size: strength, Side: market.Bid}
}

func Resistance(price, strength decimal.Decimal) Pattern {
	return Pattern{Kind: KindResistance, Price: price, Size: strength, Side: market.Ask}
}

func Absorption(price, volume decimal.Decimal) Pattern {
	return Pattern{Kind: KindAbsorption, Price: price, Size: volume}
}

// HasSide reports whether Side is meaningful for the pattern's kind.
func (p Pattern) HasSide() bool {
	switch p.Kind {
	case KindSpoofing, KindSupport, KindResistance:
		return true
	}
	return false
}

// MarshalJSON leaves out the fields a kind does not carry: side for icebergs
// and absorption, size for spoofing.
func (p Pattern) MarshalJSON() ([]byte, error) {
	w := struct {
		Kind  Kind             `json:"kind"`
		Price decimal.Decimal  `json:"price"`
		Size  *decimal.Decimal `json:"size,omitempty"`
		Side  *market.BookSide `json:"side,omitempty"`
	}{Kind: p.Kind, Price: p.Price}
	if p.Kind != KindSpoofing {
		w.Size = &p.Size
	}
	if p.HasSide() {
		w.Side = &p.Side
	}
	return json.Marshal(w)
}

func (p Pattern) String() string {
	switch p.Kind {
	case KindIceberg:
		return fmt.Sprintf("iceberg @ %s (est. size %s)", p.Price, p.Size)
	case KindSpoofing:
		return fmt.Sprintf("spoofing %s @ %s", p.Side, p.Price)
	case KindSupport, KindResistance:
		return fmt.Sprintf("%s @ %s (strength %s)", p.Kind, p.Price, p.Size)
	case KindAbsorption:
		return fmt.Sprintf("absorption @ %s (volume %s)", p.Price, p.Size)
	}
	return p.Kind.String()
}
