package patterns

import (
	"github.com/shopspring/decimal"

	"microstructure-analyzer/internal/market"
)

// CVDPoint is the cumulative volume delta right after the trade at Timestamp.
type CVDPoint struct {
	Timestamp int64           `json:"timestamp"`
	Delta     decimal.Decimal `json:"delta"`
}

// DetectAbsorption treats the whole batch as one window: when at least
// volumeThreshold traded while price stayed within priceRange, one pattern
// is reported at the batch VWAP.
func DetectAbsorption(trades []market.Trade, volumeThreshold, priceRange decimal.Decimal) []Pattern {
	found := make([]Pattern, 0)
	if len(trades) == 0 {
		return found
	}
	lo, hi := trades[0].Price, trades[0].Price
	volume, value := decimal.Zero, decimal.Zero
	for _, t := range trades {
		lo = decimal.Min(lo, t.Price)
		hi = decimal.Max(hi, t.Price)
		volume = volume.Add(t.Quantity)
		value = value.Add(t.Price.Mul(t.Quantity))
	}
	if volume.LessThan(volumeThreshold) || hi.Sub(lo).GreaterThan(priceRange) {
		return found
	}
	if volume.IsZero() {
		return found
	}
	return append(found, Absorption(value.Div(volume), volume))
}

// Delta is buy volume minus sell volume.
func Delta(trades []market.Trade) decimal.Decimal {
	delta := decimal.Zero
	for _, t := range trades {
		delta = delta.Add(signed(t))
	}
	return delta
}

// CVD returns the running delta after every trade, in input order. The last
// point always equals Delta(trades).
func CVD(trades []market.Trade) []CVDPoint {
	points := make([]CVDPoint, 0, len(trades))
	running := decimal.Zero
	for _, t := range trades {
		running = running.Add(signed(t))
		points = append(points, CVDPoint{Timestamp: t.Timestamp, Delta: running})
	}
	return points
}

func signed(t market.Trade) decimal.Decimal {
	if t.Side == market.Buy {
		return t.Quantity
	}
	return t.Quantity.Neg()
}
