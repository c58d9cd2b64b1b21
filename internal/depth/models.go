package depth

import (
	"github.com/shopspring/decimal"

	"microstructure-analyzer/internal/market"
)

type DepthLevel struct {
	Side  market.BookSide `json:"side"`  // "bid" or "ask"
	Price decimal.Decimal `json:"price"` // price level
	Size  decimal.Decimal `json:"size"`  // quantity at this venue at this price
	Venue string          `json:"venue"` // exchange/venue
	Level int             `json:"level"` // optional: source-reported level index
}

// Update is a full multi-venue view of one symbol at one instant.
type Update struct {
	Symbol    string       `json:"symbol"` // canonical UPPER symbol
	Bids      []DepthLevel `json:"bids"`
	Asks      []DepthLevel `json:"asks"`
	Timestamp int64        `json:"timestamp"`
}
