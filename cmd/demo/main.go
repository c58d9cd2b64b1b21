// Command demo runs the analysis engine over built-in sample data and prints
// the results. Pass book, tape or patterns to run a single section.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/shopspring/decimal"

	"microstructure-analyzer/internal/market"
	"microstructure-analyzer/internal/orderbook"
	"microstructure-analyzer/internal/patterns"
	"microstructure-analyzer/internal/profile"
	"microstructure-analyzer/internal/render"
	"microstructure-analyzer/internal/tape"
)

const rule = "─────────────────────────────────────────"

var hundred = decimal.NewFromInt(100)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func main() {
	flag.Parse()
	sections := map[string]func(io.Writer){
		"book":     bookDemo,
		"tape":     tapeDemo,
		"patterns": patternsDemo,
	}
	which := flag.Arg(0)
	if which == "" || which == "all" {
		bookDemo(os.Stdout)
		fmt.Println()
		tapeDemo(os.Stdout)
		fmt.Println()
		patternsDemo(os.Stdout)
		return
	}
	run, ok := sections[which]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown section %q (want book, tape, patterns or all)\n", which)
		os.Exit(2)
	}
	run(os.Stdout)
}

func bookDemo(w io.Writer) {
	book := market.OrderBook{
		Bids: []market.Level{
			{Price: d("50000.00"), Quantity: d("1.5")},
			{Price: d("49999.50"), Quantity: d("2.3")},
			{Price: d("49999.00"), Quantity: d("0.8")},
		},
		Asks: []market.Level{
			{Price: d("50001.00"), Quantity: d("1.2")},
			{Price: d("50001.50"), Quantity: d("1.8")},
			{Price: d("50002.00"), Quantity: d("2.5")},
		},
		Timestamp: 1696435200,
	}

	fmt.Fprintln(w, "=== Order Book Analysis ===")
	_ = render.OrderBook(w, book, 10)
	fmt.Fprintln(w)
	fmt.Fprintln(w, render.DepthChart(book))

	fmt.Fprintln(w, "Metrics:")
	if bid, ok := orderbook.BestBid(book); ok {
		fmt.Fprintf(w, "  Best Bid: $%s\n", bid)
	}
	if ask, ok := orderbook.BestAsk(book); ok {
		fmt.Fprintf(w, "  Best Ask: $%s\n", ask)
	}
	if s, ok := orderbook.Spread(book); ok {
		fmt.Fprintf(w, "  Spread: $%s (%s%%)\n", s.Spread, s.Pct.StringFixed(6))
	}
	if mid, ok := orderbook.MidPrice(book); ok {
		fmt.Fprintf(w, "  Mid Price: $%s\n", mid)
	}
	if wmid, ok := orderbook.WeightedMidPrice(book); ok {
		fmt.Fprintf(w, "  Weighted Mid: $%s\n", wmid.StringFixed(4))
	}
	fmt.Fprintf(w, "  Imbalance (all levels): %s\n", orderbook.Imbalance(book, orderbook.AllLevels).StringFixed(4))
	fmt.Fprintf(w, "  Imbalance (top 1): %s\n", orderbook.Imbalance(book, 1).StringFixed(4))
}

func tapeDemo(w io.Writer) {
	trades := []market.Trade{
		{Price: d("50000.0"), Quantity: d("1.0"), Side: market.Buy, Timestamp: 1696435200},
		{Price: d("50001.0"), Quantity: d("0.5"), Side: market.Sell, Timestamp: 1696435201},
		{Price: d("50002.0"), Quantity: d("2.0"), Side: market.Buy, Timestamp: 1696435202},
		{Price: d("50003.0"), Quantity: d("0.3"), Side: market.Sell, Timestamp: 1696435203},
		{Price: d("50004.0"), Quantity: d("1.5"), Side: market.Buy, Timestamp: 1696435204},
		{Price: d("50005.0"), Quantity: d("0.8"), Side: market.Buy, Timestamp: 1696435205},
		{Price: d("50004.5"), Quantity: d("0.4"), Side: market.Sell, Timestamp: 1696435206},
		{Price: d("50006.0"), Quantity: d("10.0"), Side: market.Buy, Timestamp: 1696435207},
	}

	fmt.Fprintln(w, "=== Tape Reading ===")
	_ = render.Trades(w, trades, 5)

	fmt.Fprintf(w, "\nTrade Pressure\n%s\n", rule)
	p := tape.TradePressure(trades)
	fmt.Fprintf(w, "  Buy Volume:  %s\n  Sell Volume: %s\n  Net Volume:  %s\n",
		p.Buy.StringFixed(2), p.Sell.StringFixed(2), p.Net.StringFixed(2))
	if total := p.Buy.Add(p.Sell); total.IsPositive() {
		buyPct := p.Buy.Div(total).Mul(hundred)
		fmt.Fprintf(w, "  Buy Pressure: %s%%  Sell Pressure: %s%%\n", buyPct.StringFixed(1), hundred.Sub(buyPct).StringFixed(1))
	}
	if p.Net.IsPositive() {
		fmt.Fprintln(w, "  -> sentiment: BULLISH")
	} else {
		fmt.Fprintln(w, "  -> sentiment: BEARISH")
	}

	fmt.Fprintf(w, "\nAggression\n%s\n", rule)
	agg := tape.AggressionRatio(trades)
	fmt.Fprintf(w, "  Aggression Ratio: %s\n", agg.StringFixed(2))
	switch {
	case agg.GreaterThan(d("0.6")):
		fmt.Fprintln(w, "  -> buyers in control")
	case agg.LessThan(d("0.4")):
		fmt.Fprintln(w, "  -> sellers in control")
	default:
		fmt.Fprintln(w, "  -> balanced")
	}

	fmt.Fprintf(w, "\nBlock Trades (threshold 5.0)\n%s\n", rule)
	blocks := tape.IdentifyBlockTrades(trades, d("5.0"))
	if len(blocks) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, t := range blocks {
		c := tape.ClassifyTrade(t, d("5.0"))
		fmt.Fprintf(w, "  %s %s %s @ $%s\n", c.Kind, c.Side, t.Quantity, t.Price)
	}

	fmt.Fprintf(w, "\nVWAP\n%s\n", rule)
	if vwap, ok := tape.VWAP(trades); ok {
		last := trades[len(trades)-1].Price
		dist := last.Sub(vwap).Div(vwap).Mul(hundred).Abs()
		fmt.Fprintf(w, "  VWAP: $%s\n  Last Price: $%s\n  Distance from VWAP: %s%%\n",
			vwap.StringFixed(2), last.StringFixed(2), dist.StringFixed(3))
	}

	fmt.Fprintf(w, "\nDelta & CVD\n%s\n", rule)
	fmt.Fprintf(w, "  Delta: %s\n", patterns.Delta(trades).StringFixed(2))
	cvd := patterns.CVD(trades)
	for i := max(0, len(cvd)-5); i < len(cvd); i++ {
		fmt.Fprintf(w, "    Trade %d: %s\n", i+1, cvd[i].Delta.StringFixed(2))
	}

	fmt.Fprintf(w, "\nVolume Profile (tick 1.0)\n%s\n", rule)
	vp := profile.Build(trades, d("1.0"))
	_ = render.Profile(w, vp)
	top := slices.Clone(vp.Levels)
	slices.SortStableFunc(top, func(a, b profile.PriceVolume) int { return b.Volume.Cmp(a.Volume) })
	fmt.Fprintln(w, "  Top Volume Levels:")
	for i, l := range top[:min(3, len(top))] {
		fmt.Fprintf(w, "    %d. $%s - volume: %s\n", i+1, l.Price.StringFixed(2), l.Volume.StringFixed(2))
	}

	fmt.Fprintf(w, "\nTrade Clusters (window 2, min 3)\n%s\n", rule)
	clusters := tape.DetectTradeClusters(trades, 2, 3)
	if len(clusters) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, start := range clusters {
		fmt.Fprintf(w, "  starting at trade #%d\n", start+1)
	}
}

func patternsDemo(w io.Writer) {
	fmt.Fprintln(w, "=== Pattern Detection ===")

	fills := []market.Trade{
		{Price: d("50000.0"), Quantity: d("0.1"), Side: market.Buy, Timestamp: 1000},
		{Price: d("50000.0"), Quantity: d("0.12"), Side: market.Buy, Timestamp: 1001},
		{Price: d("50000.0"), Quantity: d("0.11"), Side: market.Buy, Timestamp: 1002},
		{Price: d("50000.0"), Quantity: d("0.1"), Side: market.Buy, Timestamp: 1003},
		{Price: d("50000.0"), Quantity: d("0.13"), Side: market.Buy, Timestamp: 1004},
	}
	fmt.Fprintln(w, "\nIceberg orders:")
	_ = render.Patterns(w, patterns.DetectIcebergOrders(fills, 3, d("1.0")))

	book := market.OrderBook{
		Bids: []market.Level{
			{Price: d("50000.0"), Quantity: d("1.0")},
			{Price: d("49999.0"), Quantity: d("100.0")},
			{Price: d("49998.0"), Quantity: d("0.5")},
		},
		Asks: []market.Level{
			{Price: d("50001.0"), Quantity: d("1.0")},
			{Price: d("50002.0"), Quantity: d("0.8")},
		},
		Timestamp: 1000,
	}
	fmt.Fprintln(w, "\nSpoofing (threshold 50):")
	_ = render.Patterns(w, patterns.DetectSpoofing(book, d("50.0")))
	fmt.Fprintln(w, "\nSupport & resistance (threshold 5):")
	_ = render.Patterns(w, patterns.DetectSupportResistance(book, d("5.0")))

	absorbed := []market.Trade{
		{Price: d("50000.0"), Quantity: d("5.0"), Side: market.Buy, Timestamp: 1000},
		{Price: d("50000.2"), Quantity: d("4.5"), Side: market.Sell, Timestamp: 1001},
		{Price: d("50000.1"), Quantity: d("6.0"), Side: market.Buy, Timestamp: 1002},
	}
	fmt.Fprintln(w, "\nAbsorption (volume 10, range 1):")
	_ = render.Patterns(w, patterns.DetectAbsorption(absorbed, d("10.0"), d("1.0")))
}
