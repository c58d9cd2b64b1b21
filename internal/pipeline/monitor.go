// Package pipeline turns replayed records into analysis reports and
// cooldown-filtered pattern alerts.
package pipeline

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"microstructure-analyzer/internal/analysis"
	"microstructure-analyzer/internal/depth"
	"microstructure-analyzer/internal/patterns"
	"microstructure-analyzer/internal/replay"
	"microstructure-analyzer/internal/state"
	"microstructure-analyzer/internal/telemetry"
)

type AlertEvent struct {
	ID      string           `json:"id"`
	Symbol  string           `json:"symbol"`
	Pattern patterns.Pattern `json:"pattern"`
	Time    time.Time        `json:"time"`
}

// Result is what one record produced. At most one of Book and Tape is set.
type Result struct {
	Symbol string
	Book   *analysis.BookReport
	Tape   *analysis.TapeReport
	Alerts []AlertEvent
}

type Monitor struct {
	st           *state.State
	levelsToScan int
	log          *slog.Logger
	now          func() time.Time
}

func NewMonitor(st *state.State, levelsToScan int, logger *slog.Logger) *Monitor {
	return &Monitor{st: st, levelsToScan: levelsToScan, log: logger, now: time.Now}
}

// Process analyzes one record with the current parameters. Records for a
// symbol other than the active filter yield ok == false.
func (m *Monitor) Process(rec replay.Record) (Result, bool) {
	sym := rec.Symbol()
	if !m.st.Accepts(sym) {
		return Result{}, false
	}
	params := m.st.Params()
	res := Result{Symbol: sym}

	switch {
	case rec.Book != nil:
		r := m.processBook(*rec.Book, params.Book)
		res.Book = &r
		res.Alerts = m.alerts(sym, r.Patterns)
	case rec.Trades != nil:
		r := analysis.AnalyzeTape(rec.Trades.Trades, params.Tape)
		telemetry.AnalysesTotal.WithLabelValues("tape").Inc()
		countPatterns(r.Patterns)
		res.Tape = &r
		res.Alerts = m.alerts(sym, r.Patterns)
	default:
		return Result{}, false
	}
	return res, true
}

func (m *Monitor) processBook(up depth.Update, p analysis.BookParams) analysis.BookReport {
	book := depth.Consolidate(up, m.levelsToScan)
	r := analysis.AnalyzeBook(book, p)
	telemetry.AnalysesTotal.WithLabelValues("book").Inc()
	countPatterns(r.Patterns)
	return r
}

func (m *Monitor) alerts(sym string, found []patterns.Pattern) []AlertEvent {
	alerts := make([]AlertEvent, 0, len(found))
	now := m.now()
	for _, p := range found {
		if !m.st.AllowAlert(sym, p.Kind, p.Price, now) {
			continue
		}
		alerts = append(alerts, AlertEvent{
			ID:      uuid.NewString(),
			Symbol:  sym,
			Pattern: p,
			Time:    now,
		})
		telemetry.AlertsTotal.WithLabelValues(p.Kind.String()).Inc()
		m.log.Debug("pattern alert",
			slog.String("symbol", sym),
			slog.String("pattern", p.Kind.String()),
			slog.String("price", p.Price.String()),
		)
	}
	return alerts
}

func countPatterns(found []patterns.Pattern) {
	for _, p := range found {
		telemetry.PatternsTotal.WithLabelValues(p.Kind.String()).Inc()
	}
}
