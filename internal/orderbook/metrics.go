// Package orderbook computes top-of-book and depth metrics from a single
// order-book snapshot.
package orderbook

import (
	"github.com/shopspring/decimal"

	"microstructure-analyzer/internal/market"
)

// AllLevels passed as depth sums every level on a side. Any negative depth
// behaves the same way.
const AllLevels = -1

var (
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

type SpreadResult struct {
	Spread decimal.Decimal `json:"spread"`
	Pct    decimal.Decimal `json:"spreadPct"` // spread / best bid * 100
}

func BestBid(book market.OrderBook) (decimal.Decimal, bool) {
	if len(book.Bids) == 0 {
		return decimal.Zero, false
	}
	return book.Bids[0].Price, true
}

func BestAsk(book market.OrderBook) (decimal.Decimal, bool) {
	if len(book.Asks) == 0 {
		return decimal.Zero, false
	}
	return book.Asks[0].Price, true
}

// Spread reports best ask minus best bid and that distance as a percentage
// of the best bid. ok is false when either side is empty.
func Spread(book market.OrderBook) (SpreadResult, bool) {
	bid, okBid := BestBid(book)
	ask, okAsk := BestAsk(book)
	if !okBid || !okAsk {
		return SpreadResult{}, false
	}
	spread := ask.Sub(bid)
	return SpreadResult{
		Spread: spread,
		Pct:    spread.Mul(hundred).Div(bid),
	}, true
}

// Imbalance returns (bidVol - askVol) / (bidVol + askVol) over the first depth
// levels of each side. Positive means more resting bid volume. Both sides
// summing to zero yields 0 rather than an absent result.
func Imbalance(book market.OrderBook, depth int) decimal.Decimal {
	bidVol := TotalVolume(book.Bids, depth)
	askVol := TotalVolume(book.Asks, depth)
	total := bidVol.Add(askVol)
	if total.IsZero() {
		return decimal.Zero
	}
	return bidVol.Sub(askVol).Div(total)
}

func MidPrice(book market.OrderBook) (decimal.Decimal, bool) {
	bid, okBid := BestBid(book)
	ask, okAsk := BestAsk(book)
	if !okBid || !okAsk {
		return decimal.Zero, false
	}
	return bid.Add(ask).Div(two), true
}

// WeightedMidPrice weights each best price by the opposite side's quantity,
// pulling the result toward the thinner side of the book.
func WeightedMidPrice(book market.OrderBook) (decimal.Decimal, bool) {
	if len(book.Bids) == 0 || len(book.Asks) == 0 {
		return decimal.Zero, false
	}
	bid, ask := book.Bids[0], book.Asks[0]
	qty := bid.Quantity.Add(ask.Quantity)
	if qty.IsZero() {
		return decimal.Zero, false
	}
	num := bid.Price.Mul(ask.Quantity).Add(ask.Price.Mul(bid.Quantity))
	return num.Div(qty), true
}

// TotalVolume sums quantity over the first depth levels.
func TotalVolume(levels []market.Level, depth int) decimal.Decimal {
	if depth < 0 || depth > len(levels) {
		depth = len(levels)
	}
	sum := decimal.Zero
	for _, l := range levels[:depth] {
		sum = sum.Add(l.Quantity)
	}
	return sum
}
