// Package profile builds a price-bucketed volume profile from a batch of
// trades and derives its Point of Control and Value Area.
package profile

import (
	"slices"

	"github.com/shopspring/decimal"

	"microstructure-analyzer/internal/market"
)

// DefaultValueAreaShare is the fraction of total volume the Value Area covers.
var DefaultValueAreaShare = decimal.RequireFromString("0.70")

type PriceVolume struct {
	Price  decimal.Decimal `json:"price"`
	Volume decimal.Decimal `json:"volume"`
}

// VolumeProfile is built once per call and not mutated afterwards. Levels are
// sorted by ascending price with unique prices.
type VolumeProfile struct {
	Levels []PriceVolume       `json:"levels"`
	POC    decimal.NullDecimal `json:"poc"`
	VAH    decimal.NullDecimal `json:"vah"`
	VAL    decimal.NullDecimal `json:"val"`
}

// VolumeAt returns the accumulated volume of the bucket at price.
func (p VolumeProfile) VolumeAt(price decimal.Decimal) (decimal.Decimal, bool) {
	i, found := slices.BinarySearchFunc(p.Levels, price, func(l PriceVolume, target decimal.Decimal) int {
		return l.Price.Cmp(target)
	})
	if !found {
		return decimal.Zero, false
	}
	return p.Levels[i].Volume, true
}

func (p VolumeProfile) TotalVolume() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range p.Levels {
		sum = sum.Add(l.Volume)
	}
	return sum
}

// Build is BuildWithValueArea using DefaultValueAreaShare.
func Build(trades []market.Trade, tickSize decimal.Decimal) VolumeProfile {
	return BuildWithValueArea(trades, tickSize, DefaultValueAreaShare)
}

// BuildWithValueArea buckets trade quantity by price rounded to tickSize.
//
// The POC is the bucket with the most volume; equal volumes resolve to the
// lowest price. The Value Area is grown by volume rank, not by distance from
// the POC: buckets are taken in descending volume order (lower price first
// on ties) until the accumulated volume reaches share of the total, and
// VAH/VAL are the highest and lowest prices taken, starting from the POC.
func BuildWithValueArea(trades []market.Trade, tickSize, share decimal.Decimal) VolumeProfile {
	buckets := NewBuckets[decimal.Decimal]()
	for _, t := range trades {
		qty := t.Quantity
		buckets.Update(BucketPrice(t.Price, tickSize), func(v decimal.Decimal) decimal.Decimal {
			return v.Add(qty)
		})
	}

	levels := make([]PriceVolume, 0, buckets.Len())
	buckets.Ascend(func(price, vol decimal.Decimal) bool {
		levels = append(levels, PriceVolume{Price: price, Volume: vol})
		return true
	})
	prof := VolumeProfile{Levels: levels}
	if len(levels) == 0 {
		return prof
	}

	poc := levels[0]
	total := decimal.Zero
	for _, l := range levels {
		total = total.Add(l.Volume)
		if l.Volume.GreaterThan(poc.Volume) {
			poc = l
		}
	}

	ranked := slices.Clone(levels)
	slices.SortStableFunc(ranked, func(a, b PriceVolume) int {
		return b.Volume.Cmp(a.Volume)
	})

	target := total.Mul(share)
	accumulated := decimal.Zero
	high, low := poc.Price, poc.Price
	for _, l := range ranked {
		if accumulated.GreaterThanOrEqual(target) {
			break
		}
		accumulated = accumulated.Add(l.Volume)
		if l.Price.GreaterThan(high) {
			high = l.Price
		}
		if l.Price.LessThan(low) {
			low = l.Price
		}
	}

	prof.POC = decimal.NullDecimal{Decimal: poc.Price, Valid: true}
	prof.VAH = decimal.NullDecimal{Decimal: high, Valid: true}
	prof.VAL = decimal.NullDecimal{Decimal: low, Valid: true}
	return prof
}
