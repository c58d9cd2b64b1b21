package analysis

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"microstructure-analyzer/internal/market"
	"microstructure-analyzer/internal/patterns"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func lvl(p, q string) market.Level { return market.Level{Price: d(p), Quantity: d(q)} }

func trade(ts int64, side market.Side, price, qty string) market.Trade {
	return market.Trade{Price: d(price), Quantity: d(qty), Side: side, Timestamp: ts}
}

func TestAnalyzeBook(t *testing.T) {
	book := market.OrderBook{
		Bids:      []market.Level{lvl("50000", "1.0"), lvl("49999", "100.0"), lvl("49998", "0.5")},
		Asks:      []market.Level{lvl("50001", "1.0"), lvl("50002", "0.8")},
		Timestamp: 1000,
	}
	r := AnalyzeBook(book, DefaultParams().Book)
	if !r.Spread.Valid || !r.Spread.Decimal.Equal(d("1")) {
		t.Fatalf("spread got %+v want 1", r.Spread)
	}
	if !r.MidPrice.Valid || !r.MidPrice.Decimal.Equal(d("50000.5")) {
		t.Fatalf("mid got %+v", r.MidPrice)
	}
	if !r.BidVolume.Equal(d("101.5")) || !r.AskVolume.Equal(d("1.8")) {
		t.Fatalf("volumes got %v / %v", r.BidVolume, r.AskVolume)
	}
	if !r.Imbalance.IsPositive() {
		t.Fatalf("imbalance got %v want positive", r.Imbalance)
	}
	// spoof at 49999 (>50) and support at 49999 (>=5)
	var kinds []patterns.Kind
	for _, p := range r.Patterns {
		kinds = append(kinds, p.Kind)
	}
	if len(kinds) != 2 || kinds[0] != patterns.KindSpoofing || kinds[1] != patterns.KindSupport {
		t.Fatalf("patterns got %v", r.Patterns)
	}
}

func TestAnalyzeBookEmpty(t *testing.T) {
	r := AnalyzeBook(market.OrderBook{}, DefaultParams().Book)
	if r.BestBid.Valid || r.BestAsk.Valid || r.Spread.Valid || r.MidPrice.Valid || r.WeightedMid.Valid {
		t.Fatalf("empty book should have absent prices: %+v", r)
	}
	if !r.Imbalance.IsZero() {
		t.Fatalf("imbalance got %v want 0", r.Imbalance)
	}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"spread":null`) {
		t.Fatalf("absent spread should encode as null: %s", b)
	}
}

func TestAnalyzeTape(t *testing.T) {
	trades := []market.Trade{
		trade(1000, market.Buy, "50000.0", "5.0"),
		trade(1001, market.Sell, "50000.2", "4.5"),
		trade(1002, market.Buy, "50000.1", "6.0"),
	}
	r := AnalyzeTape(trades, DefaultParams().Tape)
	if r.Trades != 3 {
		t.Fatalf("trades got %d", r.Trades)
	}
	if !r.Delta.Equal(d("6.5")) || !r.Pressure.Net.Equal(r.Delta) {
		t.Fatalf("delta got %v net %v", r.Delta, r.Pressure.Net)
	}
	if len(r.CVD) != 3 || !r.CVD[2].Delta.Equal(r.Delta) {
		t.Fatalf("cvd got %+v", r.CVD)
	}
	if len(r.Blocks) != 2 {
		t.Fatalf("blocks got %d want 2", len(r.Blocks))
	}
	if len(r.Clusters) != 1 || r.Clusters[0] != 0 {
		t.Fatalf("clusters got %v want [0]", r.Clusters)
	}
	if !r.Profile.POC.Valid || !r.Profile.POC.Decimal.Equal(d("50000")) {
		t.Fatalf("poc got %+v", r.Profile.POC)
	}
	// three even-sized prints in the 50000 bucket read as an iceberg, and
	// 15.5 traded inside 0.2 is absorption
	if len(r.Patterns) != 2 || r.Patterns[0].Kind != patterns.KindIceberg || r.Patterns[1].Kind != patterns.KindAbsorption {
		t.Fatalf("patterns got %v", r.Patterns)
	}
	if !r.Patterns[1].Size.Equal(d("15.5")) {
		t.Fatalf("absorbed volume got %v want 15.5", r.Patterns[1].Size)
	}
}

func TestAnalyzeTapeEmpty(t *testing.T) {
	r := AnalyzeTape(nil, DefaultParams().Tape)
	if r.VWAP.Valid || r.Profile.POC.Valid {
		t.Fatalf("empty tape should have absent vwap and poc: %+v", r)
	}
	if !r.Aggression.Equal(d("0.5")) {
		t.Fatalf("aggression got %v want 0.5", r.Aggression)
	}
	if len(r.Patterns) != 0 || len(r.CVD) != 0 || len(r.Clusters) != 0 {
		t.Fatalf("expected no patterns/cvd/clusters, got %+v", r)
	}
}

func TestParamsValidate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("defaults rejected: %v", err)
	}
	bad := map[string]func(*Params){
		"negative cluster window": func(p *Params) { p.Tape.ClusterWindow = -1 },
		"negative spoof":          func(p *Params) { p.Book.SpoofThreshold = d("-1") },
		"negative level":          func(p *Params) { p.Book.LevelThreshold = d("-0.5") },
		"negative block":          func(p *Params) { p.Tape.BlockThreshold = d("-5") },
		"negative absorption":     func(p *Params) { p.Tape.AbsorptionVolume = d("-10") },
		"zero min cluster":        func(p *Params) { p.Tape.MinClusterSize = 0 },
		"share above one":         func(p *Params) { p.Tape.ValueAreaShare = d("1.01") },
	}
	for name, mutate := range bad {
		p := DefaultParams()
		mutate(&p)
		if err := p.Validate(); !errors.Is(err, ErrInvalidParams) {
			t.Fatalf("%s: got %v want ErrInvalidParams", name, err)
		}
	}
	p := DefaultParams()
	p.Book.Depth = -3
	p.Tape.ClusterWindow = 0
	if err := p.Validate(); err != nil {
		t.Fatalf("negative depth and zero window are valid, got %v", err)
	}
}
