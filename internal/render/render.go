// Package render formats books, tapes, patterns and volume profiles as
// plain text for terminals and logs.
package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"microstructure-analyzer/internal/market"
	"microstructure-analyzer/internal/patterns"
	"microstructure-analyzer/internal/profile"
)

const (
	maxBar     = 50
	chartWidth = 20
	chartRows  = 5
)

var two = decimal.NewFromInt(2)

// OrderBook prints up to levels asks above a rule and up to levels bids
// below it, each with a bar of two cells per unit of quantity.
func OrderBook(w io.Writer, book market.OrderBook, levels int) error {
	var b strings.Builder
	fmt.Fprintf(&b, "=== Order Book ===\nTimestamp: %d\n\nAsks (Sell Orders):\n", book.Timestamp)
	for _, l := range head(book.Asks, levels) {
		fmt.Fprintf(&b, "  $%-12s | %s %s\n", l.Price, bar(l.Quantity.Mul(two)), l.Quantity)
	}
	b.WriteString(strings.Repeat("─", 50) + "\n")
	for _, l := range head(book.Bids, levels) {
		fmt.Fprintf(&b, "  $%-12s | %s %s\n", l.Price, bar(l.Quantity.Mul(two)), l.Quantity)
	}
	b.WriteString("\nBids (Buy Orders):\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// Trades prints the first limit trades of the tape.
func Trades(w io.Writer, trades []market.Trade, limit int) error {
	fmt.Fprintln(w, "=== Trade Tape ===")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Time\tPrice\tQuantity\tSide")
	for _, t := range head(trades, limit) {
		fmt.Fprintf(tw, "%d\t$%s\t%s\t%s\n", t.Timestamp, t.Price, t.Quantity, strings.ToUpper(t.Side.String()))
	}
	return tw.Flush()
}

// DepthChart draws the best few levels of each side scaled to the largest
// quantity in the book, asks highest first. An empty book yields "No data".
func DepthChart(book market.OrderBook) string {
	if len(book.Bids) == 0 && len(book.Asks) == 0 {
		return "No data"
	}
	maxQty := decimal.Zero
	for _, side := range [][]market.Level{book.Bids, book.Asks} {
		for _, l := range side {
			maxQty = decimal.Max(maxQty, l.Quantity)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Order Book Depth:\nMax Volume: %s\n\n", maxQty)
	asks := head(book.Asks, chartRows)
	for i := len(asks) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "$%-10s ASK │%s\n", asks[i].Price, scaled(asks[i].Quantity, maxQty))
	}
	b.WriteString(strings.Repeat("─", 40) + "\n")
	for _, l := range head(book.Bids, chartRows) {
		fmt.Fprintf(&b, "$%-10s BID │%s\n", l.Price, scaled(l.Quantity, maxQty))
	}
	return b.String()
}

func Patterns(w io.Writer, found []patterns.Pattern) error {
	if len(found) == 0 {
		_, err := fmt.Fprintln(w, "No patterns detected")
		return err
	}
	for i, p := range found {
		if _, err := fmt.Fprintf(w, "%2d. %s\n", i+1, p); err != nil {
			return err
		}
	}
	return nil
}

// Profile prints one row per price bucket, highest price first, marking the
// point of control and the value-area bounds.
func Profile(w io.Writer, vp profile.VolumeProfile) error {
	if len(vp.Levels) == 0 {
		_, err := fmt.Fprintln(w, "No data")
		return err
	}
	maxVol := decimal.Zero
	for _, l := range vp.Levels {
		maxVol = decimal.Max(maxVol, l.Volume)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	for i := len(vp.Levels) - 1; i >= 0; i-- {
		l := vp.Levels[i]
		fmt.Fprintf(tw, "$%s\t%s\t%s\t%s\n", l.Price, l.Volume, scaled(l.Volume, maxVol), marks(vp, l.Price))
	}
	return tw.Flush()
}

func marks(vp profile.VolumeProfile, price decimal.Decimal) string {
	var m []string
	if vp.POC.Valid && vp.POC.Decimal.Equal(price) {
		m = append(m, "POC")
	}
	if vp.VAH.Valid && vp.VAH.Decimal.Equal(price) {
		m = append(m, "VAH")
	}
	if vp.VAL.Valid && vp.VAL.Decimal.Equal(price) {
		m = append(m, "VAL")
	}
	return strings.Join(m, " ")
}

func head[T any](s []T, n int) []T {
	if n >= 0 && n < len(s) {
		return s[:n]
	}
	return s
}

func bar(cells decimal.Decimal) string {
	n := cells.IntPart()
	if n > maxBar {
		n = maxBar
	}
	if n < 0 {
		n = 0
	}
	return strings.Repeat("█", int(n))
}

// scaled is at least one cell wide so that tiny levels stay visible.
func scaled(q, maxQty decimal.Decimal) string {
	n := int64(0)
	if maxQty.IsPositive() {
		n = q.Mul(decimal.NewFromInt(chartWidth)).Div(maxQty).IntPart()
	}
	return strings.Repeat("▓", int(max(n, 1)))
}
