// Package depth consolidates per-venue depth rows into a single sorted order
// book, the shape every analysis in this module expects.
package depth

import (
	"slices"

	"github.com/shopspring/decimal"

	"microstructure-analyzer/internal/market"
)

// Consolidate sums sizes across venues at the same price, sorts bids from the
// highest price and asks from the lowest, and keeps the best levels per side
// (levels <= 0 keeps all). Rows filed under the wrong side are skipped.
func Consolidate(up Update, levels int) market.OrderBook {
	return market.OrderBook{
		Bids:      consolidateSide(up.Bids, market.Bid, levels),
		Asks:      consolidateSide(up.Asks, market.Ask, levels),
		Timestamp: up.Timestamp,
	}
}

func consolidateSide(rows []DepthLevel, side market.BookSide, levels int) []market.Level {
	// Numerically equal decimals can carry different exponents ("100" vs
	// "100.00"), so they are aggregated under a canonical string key.
	sumByKey := map[string]decimal.Decimal{}
	priceByKey := map[string]decimal.Decimal{}
	for _, lvl := range rows {
		if lvl.Side != side {
			continue
		}
		k := canonicalPriceKey(lvl.Price)
		sumByKey[k] = sumByKey[k].Add(lvl.Size)
		if _, ok := priceByKey[k]; !ok {
			priceByKey[k] = lvl.Price
		}
	}
	if len(sumByKey) == 0 {
		return []market.Level{}
	}

	keys := make([]string, 0, len(sumByKey))
	for k := range sumByKey {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(ka, kb string) int {
		pa := priceByKey[ka]
		pb := priceByKey[kb]
		if side == market.Bid {
			return pb.Cmp(pa)
		}
		return pa.Cmp(pb)
	})
	if levels > 0 && len(keys) > levels {
		keys = keys[:levels]
	}

	book := make([]market.Level, 0, len(keys))
	for _, k := range keys {
		book = append(book, market.Level{Price: priceByKey[k], Quantity: sumByKey[k]})
	}
	return book
}

// canonicalPriceKey normalizes a Decimal so numerically equal values hash to the same key.
// String() drops redundant trailing zeros ("100.00" -> "100").
func canonicalPriceKey(p decimal.Decimal) string {
	return p.String()
}
