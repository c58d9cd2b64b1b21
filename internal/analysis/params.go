package analysis

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"microstructure-analyzer/internal/orderbook"
	"microstructure-analyzer/internal/profile"
)

// BookParams tunes AnalyzeBook.
type BookParams struct {
	Depth          int             `json:"depth"`          // levels per side for imbalance/volume; negative = all
	SpoofThreshold decimal.Decimal `json:"spoofThreshold"` // size strictly above this, away from the touch
	LevelThreshold decimal.Decimal `json:"levelThreshold"` // support/resistance minimum size
}

// TapeParams tunes AnalyzeTape.
type TapeParams struct {
	BlockThreshold   decimal.Decimal `json:"blockThreshold"`
	ClusterWindow    int64           `json:"clusterWindow"`
	MinClusterSize   int             `json:"minClusterSize"`
	TickSize         decimal.Decimal `json:"tickSize"`
	ValueAreaShare   decimal.Decimal `json:"valueAreaShare"`
	IcebergMinFills  int             `json:"icebergMinFills"`
	IcebergTolerance decimal.Decimal `json:"icebergTolerance"`
	AbsorptionVolume decimal.Decimal `json:"absorptionVolume"`
	AbsorptionRange  decimal.Decimal `json:"absorptionRange"`
}

type Params struct {
	Book BookParams `json:"book"`
	Tape TapeParams `json:"tape"`
}

func DefaultParams() Params {
	return Params{
		Book: BookParams{
			Depth:          orderbook.AllLevels,
			SpoofThreshold: decimal.NewFromInt(50),
			LevelThreshold: decimal.NewFromInt(5),
		},
		Tape: TapeParams{
			BlockThreshold:   decimal.NewFromInt(5),
			ClusterWindow:    2,
			MinClusterSize:   3,
			TickSize:         decimal.NewFromInt(1),
			ValueAreaShare:   profile.DefaultValueAreaShare,
			IcebergMinFills:  3,
			IcebergTolerance: decimal.NewFromInt(1),
			AbsorptionVolume: decimal.NewFromInt(10),
			AbsorptionRange:  decimal.NewFromInt(1),
		},
	}
}

var ErrInvalidParams = errors.New("invalid analysis parameters")

// Validate rejects parameter sets that would silently disable or distort a
// detector: negative thresholds or windows, cluster and fill minimums below
// one, and a value-area share outside (0, 1]. Depth is not checked; any
// negative value means all levels.
func (p Params) Validate() error {
	t := p.Tape
	switch {
	case t.MinClusterSize < 1:
		return fmt.Errorf("%w: minClusterSize must be >= 1", ErrInvalidParams)
	case t.IcebergMinFills < 1:
		return fmt.Errorf("%w: icebergMinFills must be >= 1", ErrInvalidParams)
	case t.ClusterWindow < 0:
		return fmt.Errorf("%w: clusterWindow must be >= 0", ErrInvalidParams)
	case !t.ValueAreaShare.IsPositive() || t.ValueAreaShare.GreaterThan(decimal.NewFromInt(1)):
		return fmt.Errorf("%w: valueAreaShare must be in (0, 1]", ErrInvalidParams)
	}
	for _, f := range []struct {
		name string
		v    decimal.Decimal
	}{
		{"spoofThreshold", p.Book.SpoofThreshold},
		{"levelThreshold", p.Book.LevelThreshold},
		{"blockThreshold", t.BlockThreshold},
		{"tickSize", t.TickSize},
		{"icebergTolerance", t.IcebergTolerance},
		{"absorptionVolume", t.AbsorptionVolume},
		{"absorptionRange", t.AbsorptionRange},
	} {
		if f.v.IsNegative() {
			return fmt.Errorf("%w: %s must be >= 0", ErrInvalidParams, f.name)
		}
	}
	return nil
}
