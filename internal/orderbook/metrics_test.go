package orderbook

import (
	"testing"

	"github.com/shopspring/decimal"

	"microstructure-analyzer/internal/market"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func lvl(p, q string) market.Level { return market.Level{Price: d(p), Quantity: d(q)} }

func sampleBook() market.OrderBook {
	return market.OrderBook{
		Bids:      []market.Level{lvl("50000.00", "1.5"), lvl("49999.50", "2.3"), lvl("49999.00", "0.8")},
		Asks:      []market.Level{lvl("50001.00", "1.2"), lvl("50001.50", "1.8"), lvl("50002.00", "2.5")},
		Timestamp: 1696435200,
	}
}

func TestSpread(t *testing.T) {
	res, ok := Spread(sampleBook())
	if !ok {
		t.Fatal("expected spread")
	}
	if !res.Spread.Equal(d("1.00")) {
		t.Fatalf("spread got %v want 1.00", res.Spread)
	}
	want := d("100").Div(d("50000"))
	if !res.Pct.Equal(want) {
		t.Fatalf("spread pct got %v want %v", res.Pct, want)
	}
	if !res.Pct.Equal(d("0.002")) {
		t.Fatalf("spread pct got %v want 0.002", res.Pct)
	}
}

func TestSpreadEmptySide(t *testing.T) {
	if _, ok := Spread(market.OrderBook{}); ok {
		t.Fatal("empty book should have no spread")
	}
	book := sampleBook()
	book.Asks = nil
	if _, ok := Spread(book); ok {
		t.Fatal("one-sided book should have no spread")
	}
}

func TestImbalanceAllLevels(t *testing.T) {
	imb := Imbalance(sampleBook(), AllLevels)
	// (4.6 - 5.5) / 10.1
	if !imb.IsNegative() {
		t.Fatalf("expected negative imbalance, got %v", imb)
	}
	if imb.LessThan(d("-0.09")) || imb.GreaterThan(d("-0.089")) {
		t.Fatalf("imbalance got %v want ~-0.0891", imb)
	}
	if !imb.Equal(d("-0.9").Div(d("10.1"))) {
		t.Fatalf("imbalance got %v", imb)
	}
}

func TestImbalanceWithDepth(t *testing.T) {
	imb := Imbalance(sampleBook(), 1)
	// (1.5 - 1.2) / 2.7
	if imb.LessThanOrEqual(d("0.1")) || imb.GreaterThanOrEqual(d("0.12")) {
		t.Fatalf("imbalance got %v want ~0.111", imb)
	}
}

func TestImbalanceZeroVolume(t *testing.T) {
	if imb := Imbalance(market.OrderBook{}, AllLevels); !imb.IsZero() {
		t.Fatalf("empty book imbalance got %v want 0", imb)
	}
	book := market.OrderBook{Bids: []market.Level{lvl("10", "0")}, Asks: []market.Level{lvl("11", "0")}}
	if imb := Imbalance(book, AllLevels); !imb.IsZero() {
		t.Fatalf("zero-quantity imbalance got %v want 0", imb)
	}
	if imb := Imbalance(sampleBook(), 0); !imb.IsZero() {
		t.Fatalf("zero depth imbalance got %v want 0", imb)
	}
}

func TestImbalanceBounds(t *testing.T) {
	onlyBids := market.OrderBook{Bids: []market.Level{lvl("10", "3")}}
	if imb := Imbalance(onlyBids, AllLevels); !imb.Equal(d("1")) {
		t.Fatalf("bid-only imbalance got %v want 1", imb)
	}
	onlyAsks := market.OrderBook{Asks: []market.Level{lvl("10", "3")}}
	if imb := Imbalance(onlyAsks, AllLevels); !imb.Equal(d("-1")) {
		t.Fatalf("ask-only imbalance got %v want -1", imb)
	}
}

func TestBestPrices(t *testing.T) {
	book := sampleBook()
	if bid, ok := BestBid(book); !ok || !bid.Equal(d("50000")) {
		t.Fatalf("best bid got %v", bid)
	}
	if ask, ok := BestAsk(book); !ok || !ask.Equal(d("50001")) {
		t.Fatalf("best ask got %v", ask)
	}
	if mid, ok := MidPrice(book); !ok || !mid.Equal(d("50000.50")) {
		t.Fatalf("mid got %v want 50000.50", mid)
	}
	if _, ok := BestBid(market.OrderBook{}); ok {
		t.Fatal("empty bids should have no best bid")
	}
	if _, ok := MidPrice(market.OrderBook{Bids: book.Bids}); ok {
		t.Fatal("one-sided book should have no mid")
	}
}

func TestWeightedMidPrice(t *testing.T) {
	book := market.OrderBook{
		Bids: []market.Level{lvl("100", "10")},
		Asks: []market.Level{lvl("101", "5")},
	}
	wmp, ok := WeightedMidPrice(book)
	if !ok {
		t.Fatal("expected weighted mid")
	}
	// (100*5 + 101*10) / 15
	if !wmp.Equal(d("1510").Div(d("15"))) {
		t.Fatalf("weighted mid got %v", wmp)
	}
	if wmp.LessThan(d("100.6")) || wmp.GreaterThan(d("100.7")) {
		t.Fatalf("weighted mid got %v want ~100.667", wmp)
	}

	zero := market.OrderBook{
		Bids: []market.Level{lvl("100", "0")},
		Asks: []market.Level{lvl("101", "0")},
	}
	if _, ok := WeightedMidPrice(zero); ok {
		t.Fatal("zero quantity at the top should have no weighted mid")
	}
}

func TestTotalVolume(t *testing.T) {
	book := sampleBook()
	if v := TotalVolume(book.Bids, AllLevels); !v.Equal(d("4.6")) {
		t.Fatalf("bid volume got %v want 4.6", v)
	}
	if v := TotalVolume(book.Asks, AllLevels); !v.Equal(d("5.5")) {
		t.Fatalf("ask volume got %v want 5.5", v)
	}
	if v := TotalVolume(book.Bids, 2); !v.Equal(d("3.8")) {
		t.Fatalf("bid volume depth 2 got %v want 3.8", v)
	}
	if v := TotalVolume(book.Bids, 10); !v.Equal(d("4.6")) {
		t.Fatalf("depth beyond book got %v want 4.6", v)
	}
}

func TestSpreadPctKeepsPrecision(t *testing.T) {
	book := market.OrderBook{
		Bids: []market.Level{lvl("3", "1")},
		Asks: []market.Level{lvl("4", "1")},
	}
	res, ok := Spread(book)
	if !ok {
		t.Fatal("expected spread")
	}
	// 100/3 carried to the full division precision, not (1/3)*100
	if got := res.Pct.String(); got != "33.3333333333333333" {
		t.Fatalf("spread pct got %s want 33.3333333333333333", got)
	}
}
