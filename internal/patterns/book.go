package patterns

import (
	"github.com/shopspring/decimal"

	"microstructure-analyzer/internal/market"
)

// DetectSpoofing flags resting size above threshold away from the touch.
// The best level on each side is never flagged. Bids are reported before asks.
func DetectSpoofing(book market.OrderBook, threshold decimal.Decimal) []Pattern {
	found := make([]Pattern, 0)
	for i, l := range book.Bids {
		if i > 0 && l.Quantity.GreaterThan(threshold) {
			found = append(found, Spoofing(l.Price, market.Bid))
		}
	}
	for i, l := range book.Asks {
		if i > 0 && l.Quantity.GreaterThan(threshold) {
			found = append(found, Spoofing(l.Price, market.Ask))
		}
	}
	return found
}

// DetectSupportResistance reports every bid level with quantity >= threshold
// as support and every such ask level as resistance, best level included.
func DetectSupportResistance(book market.OrderBook, threshold decimal.Decimal) []Pattern {
	found := make([]Pattern, 0)
	for _, l := range book.Bids {
		if l.Quantity.GreaterThanOrEqual(threshold) {
			found = append(found, Support(l.Price, l.Quantity))
		}
	}
	for _, l := range book.Asks {
		if l.Quantity.GreaterThanOrEqual(threshold) {
			found = append(found, Resistance(l.Price, l.Quantity))
		}
	}
	return found
}
