// Package analysis runs the order-book metrics, tape metrics, volume profile
// and pattern detectors over one snapshot or batch and collects the results
// into a report. Like the packages it calls, it holds no state.
package analysis

import (
	"github.com/shopspring/decimal"

	"microstructure-analyzer/internal/market"
	"microstructure-analyzer/internal/orderbook"
	"microstructure-analyzer/internal/patterns"
	"microstructure-analyzer/internal/profile"
	"microstructure-analyzer/internal/tape"
)

type BookReport struct {
	Timestamp   int64               `json:"timestamp"`
	BestBid     decimal.NullDecimal `json:"bestBid"`
	BestAsk     decimal.NullDecimal `json:"bestAsk"`
	Spread      decimal.NullDecimal `json:"spread"`
	SpreadPct   decimal.NullDecimal `json:"spreadPct"`
	MidPrice    decimal.NullDecimal `json:"midPrice"`
	WeightedMid decimal.NullDecimal `json:"weightedMid"`
	Imbalance   decimal.Decimal     `json:"imbalance"`
	BidVolume   decimal.Decimal     `json:"bidVolume"`
	AskVolume   decimal.Decimal     `json:"askVolume"`
	Patterns    []patterns.Pattern  `json:"patterns"`
}

type TapeReport struct {
	Trades     int                   `json:"trades"`
	Pressure   tape.Pressure         `json:"pressure"`
	Aggression decimal.Decimal       `json:"aggression"`
	VWAP       decimal.NullDecimal   `json:"vwap"`
	Delta      decimal.Decimal       `json:"delta"`
	CVD        []patterns.CVDPoint   `json:"cvd"`
	Blocks     []market.Trade        `json:"blocks"`
	Clusters   []int                 `json:"clusters"`
	Profile    profile.VolumeProfile `json:"profile"`
	Patterns   []patterns.Pattern    `json:"patterns"`
}

func AnalyzeBook(book market.OrderBook, p BookParams) BookReport {
	r := BookReport{
		Timestamp: book.Timestamp,
		BestBid:   nullable(orderbook.BestBid(book)),
		BestAsk:   nullable(orderbook.BestAsk(book)),
		MidPrice:  nullable(orderbook.MidPrice(book)),
		Imbalance: orderbook.Imbalance(book, p.Depth),
		BidVolume: orderbook.TotalVolume(book.Bids, p.Depth),
		AskVolume: orderbook.TotalVolume(book.Asks, p.Depth),
	}
	r.WeightedMid = nullable(orderbook.WeightedMidPrice(book))
	if s, ok := orderbook.Spread(book); ok {
		r.Spread = nullable(s.Spread, true)
		r.SpreadPct = nullable(s.Pct, true)
	}
	r.Patterns = append(patterns.DetectSpoofing(book, p.SpoofThreshold),
		patterns.DetectSupportResistance(book, p.LevelThreshold)...)
	return r
}

func AnalyzeTape(trades []market.Trade, p TapeParams) TapeReport {
	share := p.ValueAreaShare
	if !share.IsPositive() {
		share = profile.DefaultValueAreaShare
	}
	r := TapeReport{
		Trades:     len(trades),
		Pressure:   tape.TradePressure(trades),
		Aggression: tape.AggressionRatio(trades),
		VWAP:       nullable(tape.VWAP(trades)),
		Delta:      patterns.Delta(trades),
		CVD:        patterns.CVD(trades),
		Blocks:     tape.IdentifyBlockTrades(trades, p.BlockThreshold),
		Clusters:   tape.DetectTradeClusters(trades, p.ClusterWindow, p.MinClusterSize),
		Profile:    profile.BuildWithValueArea(trades, p.TickSize, share),
	}
	r.Patterns = append(patterns.DetectIcebergOrders(trades, p.IcebergMinFills, p.IcebergTolerance),
		patterns.DetectAbsorption(trades, p.AbsorptionVolume, p.AbsorptionRange)...)
	return r
}

func nullable(v decimal.Decimal, ok bool) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: v, Valid: ok}
}
