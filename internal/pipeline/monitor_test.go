package pipeline

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"microstructure-analyzer/internal/analysis"
	"microstructure-analyzer/internal/depth"
	"microstructure-analyzer/internal/market"
	"microstructure-analyzer/internal/patterns"
	"microstructure-analyzer/internal/replay"
	"microstructure-analyzer/internal/state"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newMonitor(cooldown time.Duration) (*Monitor, *time.Time) {
	st := state.NewState(cooldown, analysis.DefaultParams())
	m := NewMonitor(st, 10, slog.New(slog.NewTextHandler(io.Discard, nil)))
	clock := time.Unix(1700000000, 0)
	m.now = func() time.Time { return clock }
	return m, &clock
}

func spoofRecord() replay.Record {
	return replay.Record{Type: replay.TypeBook, Book: &depth.Update{
		Symbol: "BTCUSD",
		Bids: []depth.DepthLevel{
			{Side: market.Bid, Price: d("50000"), Size: d("1"), Venue: "X"},
			{Side: market.Bid, Price: d("49999"), Size: d("60"), Venue: "X"},
			{Side: market.Bid, Price: d("49999"), Size: d("40"), Venue: "Y"},
		},
		Asks: []depth.DepthLevel{
			{Side: market.Ask, Price: d("50001"), Size: d("1"), Venue: "X"},
		},
	}}
}

func TestProcessBookAlertsWithCooldown(t *testing.T) {
	m, clock := newMonitor(time.Second)

	res, ok := m.Process(spoofRecord())
	if !ok || res.Book == nil {
		t.Fatal("expected book result")
	}
	if !res.Book.BidVolume.Equal(d("101")) {
		t.Fatalf("consolidated bid volume got %v want 101", res.Book.BidVolume)
	}
	// spoofing and support at 49999 once venues are merged
	if len(res.Alerts) != 2 {
		t.Fatalf("alerts got %d want 2", len(res.Alerts))
	}
	if res.Alerts[0].Pattern.Kind != patterns.KindSpoofing || res.Alerts[0].ID == "" {
		t.Fatalf("first alert got %+v", res.Alerts[0])
	}

	res, _ = m.Process(spoofRecord())
	if len(res.Alerts) != 0 {
		t.Fatalf("alerts within cooldown got %d want 0", len(res.Alerts))
	}
	if len(res.Book.Patterns) != 2 {
		t.Fatalf("patterns are still reported during cooldown, got %d", len(res.Book.Patterns))
	}

	*clock = clock.Add(2 * time.Second)
	res, _ = m.Process(spoofRecord())
	if len(res.Alerts) != 2 {
		t.Fatalf("alerts after cooldown got %d want 2", len(res.Alerts))
	}
}

func TestProcessTrades(t *testing.T) {
	m, _ := newMonitor(time.Second)
	var trades []market.Trade
	for i, q := range []string{"0.1", "0.12", "0.11", "0.1", "0.13"} {
		trades = append(trades, market.Trade{Price: d("50000"), Quantity: d(q), Side: market.Buy, Timestamp: int64(1000 + i)})
	}
	res, ok := m.Process(replay.Record{Type: replay.TypeTrades, Trades: &replay.TradeBatch{Symbol: "BTCUSD", Trades: trades}})
	if !ok || res.Tape == nil {
		t.Fatal("expected tape result")
	}
	if len(res.Alerts) != 1 || res.Alerts[0].Pattern.Kind != patterns.KindIceberg {
		t.Fatalf("alerts got %+v want one iceberg", res.Alerts)
	}
	if !res.Alerts[0].Pattern.Size.Equal(d("0.56")) {
		t.Fatalf("iceberg size got %v want 0.56", res.Alerts[0].Pattern.Size)
	}
}

func TestProcessSymbolFilter(t *testing.T) {
	m, _ := newMonitor(time.Second)
	m.st.SetSymbol("ethusd")
	if _, ok := m.Process(spoofRecord()); ok {
		t.Fatal("BTCUSD record should be filtered out")
	}
}
