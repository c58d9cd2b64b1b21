package patterns

import (
	"github.com/shopspring/decimal"

	"microstructure-analyzer/internal/market"
	"microstructure-analyzer/internal/profile"
)

var icebergSizeFactor = decimal.RequireFromString("1.5")

// DetectIcebergOrders looks for many similar-sized fills at one price, the
// footprint of a large order refilling its visible slice. Trades are grouped
// by price rounded to priceTolerance. A group with at least minFills fills,
// none larger than 1.5x the group's average fill, is reported with its total
// filled size. Results are ordered by ascending price.
func DetectIcebergOrders(trades []market.Trade, minFills int, priceTolerance decimal.Decimal) []Pattern {
	fills := profile.NewBuckets[[]decimal.Decimal]()
	for _, t := range trades {
		qty := t.Quantity
		fills.Update(profile.BucketPrice(t.Price, priceTolerance), func(v []decimal.Decimal) []decimal.Decimal {
			return append(v, qty)
		})
	}

	found := make([]Pattern, 0)
	fills.Ascend(func(price decimal.Decimal, sizes []decimal.Decimal) bool {
		if len(sizes) < minFills {
			return true
		}
		total := decimal.Sum(decimal.Zero, sizes...)
		// s <= total/n*1.5 rearranged as s*n <= total*1.5, which stays exact
		// when the average does not terminate.
		n := decimal.NewFromInt(int64(len(sizes)))
		limit := total.Mul(icebergSizeFactor)
		for _, s := range sizes {
			if s.Mul(n).GreaterThan(limit) {
				return true
			}
		}
		found = append(found, Iceberg(price, total))
		return true
	})
	return found
}
