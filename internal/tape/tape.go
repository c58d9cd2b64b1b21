// Package tape reads trade flow (time and sales): classification, buy/sell
// pressure, block trades, aggression, clustering and VWAP.
package tape

import (
	"github.com/shopspring/decimal"

	"microstructure-analyzer/internal/market"
)

var neutralAggression = decimal.RequireFromString("0.5")

type Kind uint8

const (
	KindBuy Kind = iota
	KindSell
	KindBlock
)

func (k Kind) String() string {
	switch k {
	case KindBuy:
		return "buy"
	case KindSell:
		return "sell"
	case KindBlock:
		return "block"
	}
	return "unknown"
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Classification is the result of ClassifyTrade. Side is always the trade's
// own side; for a block trade it tells which side printed the block.
type Classification struct {
	Kind Kind        `json:"kind"`
	Side market.Side `json:"side"`
}

// Pressure is aggressor volume split by side.
type Pressure struct {
	Buy  decimal.Decimal `json:"buyVolume"`
	Sell decimal.Decimal `json:"sellVolume"`
	Net  decimal.Decimal `json:"netVolume"` // Buy - Sell
}

// ClassifyTrade labels a trade as a block when its quantity meets or exceeds
// blockThreshold, otherwise by its side.
func ClassifyTrade(t market.Trade, blockThreshold decimal.Decimal) Classification {
	if t.Quantity.GreaterThanOrEqual(blockThreshold) {
		return Classification{Kind: KindBlock, Side: t.Side}
	}
	if t.Side == market.Buy {
		return Classification{Kind: KindBuy, Side: t.Side}
	}
	return Classification{Kind: KindSell, Side: t.Side}
}

func TradePressure(trades []market.Trade) Pressure {
	buy, sell := decimal.Zero, decimal.Zero
	for _, t := range trades {
		switch t.Side {
		case market.Buy:
			buy = buy.Add(t.Quantity)
		case market.Sell:
			sell = sell.Add(t.Quantity)
		}
	}
	return Pressure{Buy: buy, Sell: sell, Net: buy.Sub(sell)}
}

// IdentifyBlockTrades keeps trades with quantity >= threshold, in input order.
func IdentifyBlockTrades(trades []market.Trade, threshold decimal.Decimal) []market.Trade {
	blocks := make([]market.Trade, 0)
	for _, t := range trades {
		if t.Quantity.GreaterThanOrEqual(threshold) {
			blocks = append(blocks, t)
		}
	}
	return blocks
}

// AggressionRatio is the fraction of trades that were buys. An empty tape is
// reported as 0.5 (neutral).
func AggressionRatio(trades []market.Trade) decimal.Decimal {
	if len(trades) == 0 {
		return neutralAggression
	}
	buys := 0
	for _, t := range trades {
		if t.Side == market.Buy {
			buys++
		}
	}
	return decimal.NewFromInt(int64(buys)).Div(decimal.NewFromInt(int64(len(trades))))
}

// DetectTradeClusters scans trades once, left to right, splitting them into
// maximal runs where every adjacent timestamp gap is <= timeWindow. It
// returns the start index of each run holding at least minClusterSize trades.
// Trades must already be sorted by timestamp.
func DetectTradeClusters(trades []market.Trade, timeWindow int64, minClusterSize int) []int {
	clusters := make([]int, 0)
	if len(trades) == 0 {
		return clusters
	}
	start, count := 0, 1
	for i := 1; i < len(trades); i++ {
		if trades[i].Timestamp-trades[i-1].Timestamp <= timeWindow {
			count++
			continue
		}
		if count >= minClusterSize {
			clusters = append(clusters, start)
		}
		start, count = i, 1
	}
	if count >= minClusterSize {
		clusters = append(clusters, start)
	}
	return clusters
}

// VWAP is sum(price*qty) / sum(qty). ok is false for an empty tape or one
// with zero total quantity.
func VWAP(trades []market.Trade) (decimal.Decimal, bool) {
	if len(trades) == 0 {
		return decimal.Zero, false
	}
	value, volume := decimal.Zero, decimal.Zero
	for _, t := range trades {
		value = value.Add(t.Price.Mul(t.Quantity))
		volume = volume.Add(t.Quantity)
	}
	if volume.IsZero() {
		return decimal.Zero, false
	}
	return value.Div(volume), true
}
