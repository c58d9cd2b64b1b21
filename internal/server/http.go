// Package server exposes the analysis engine over HTTP and pushes pipeline
// results to websocket clients.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"microstructure-analyzer/internal/analysis"
	"microstructure-analyzer/internal/config"
	"microstructure-analyzer/internal/market"
	"microstructure-analyzer/internal/pipeline"
	"microstructure-analyzer/internal/profile"
	"microstructure-analyzer/internal/replay"
	"microstructure-analyzer/internal/state"
	"microstructure-analyzer/internal/telemetry"
)

const maxBodyBytes = 4 << 20

type HTTPServer struct {
	cfg  config.Config
	st   *state.State
	feed replay.Feed
	hub  *hub
	log  *slog.Logger
	mux  *http.ServeMux
}

// NewHTTPServer wires the routes and starts the websocket hub, which runs
// until ctx is cancelled. feed may be nil when no replay file is configured.
func NewHTTPServer(ctx context.Context, cfg config.Config, st *state.State, feed replay.Feed, logger *slog.Logger) *HTTPServer {
	s := &HTTPServer{
		cfg:  cfg,
		st:   st,
		feed: feed,
		hub:  newHub(logger),
		log:  logger,
		mux:  http.NewServeMux(),
	}
	s.routes()
	go s.hub.run(ctx)
	return s
}

func (s *HTTPServer) Router() http.Handler { return s.mux }

// --------- WS broadcasts ----------

func (s *HTTPServer) BroadcastStatus() {
	s.hub.publish(marshalWS("status", map[string]any{
		"connected": s.st.Connected(),
		"symbol":    s.st.Symbol(),
	}))
}

func (s *HTTPServer) BroadcastBook(symbol string, r analysis.BookReport) {
	s.hub.publish(marshalWS("book", map[string]any{"symbol": symbol, "report": r}))
}

func (s *HTTPServer) BroadcastTape(symbol string, r analysis.TapeReport) {
	s.hub.publish(marshalWS("tape", map[string]any{"symbol": symbol, "report": r}))
}

func (s *HTTPServer) BroadcastAlert(a pipeline.AlertEvent) {
	s.hub.publish(marshalWS("alert", map[string]any{
		"id":      a.ID,
		"symbol":  a.Symbol,
		"pattern": a.Pattern,
		"text":    a.Pattern.String(),
		"timeISO": a.Time.UTC().Format(time.RFC3339Nano),
	}))
}

func (s *HTTPServer) BroadcastError(msg string) {
	s.hub.publish(marshalWS("error", map[string]string{"message": msg}))
}

// Publish broadcasts one pipeline result: the report first, then its alerts.
func (s *HTTPServer) Publish(res pipeline.Result) {
	switch {
	case res.Book != nil:
		s.BroadcastBook(res.Symbol, *res.Book)
	case res.Tape != nil:
		s.BroadcastTape(res.Symbol, *res.Tape)
	}
	for _, a := range res.Alerts {
		s.BroadcastAlert(a)
	}
}

// --------- Routes ----------

func (s *HTTPServer) routes() {
	s.mux.HandleFunc("GET /ws", s.hub.serveWS)
	s.mux.Handle("GET /metrics", telemetry.Handler())

	s.mux.HandleFunc("GET /api/health", s.apiHealth)
	s.mux.HandleFunc("GET /api/config", s.apiConfig)
	s.mux.HandleFunc("POST /api/params", s.apiParams)
	s.mux.HandleFunc("POST /api/symbol", s.apiSymbol)
	s.mux.HandleFunc("POST /api/book", s.apiBook)
	s.mux.HandleFunc("POST /api/tape", s.apiTape)
	s.mux.HandleFunc("POST /api/profile", s.apiProfile)
}

func (s *HTTPServer) apiHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"ok":        true,
		"connected": s.feed != nil && s.feed.Connected(),
		"symbol":    s.st.Symbol(),
	})
}

func (s *HTTPServer) apiConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"symbol":          s.st.Symbol(),
		"replayFile":      s.cfg.ReplayFile,
		"replayLoop":      s.cfg.ReplayLoop,
		"cooldownSeconds": s.cfg.CooldownSeconds,
		"levelsToScan":    s.cfg.LevelsToScan,
		"params":          s.st.Params(),
	})
}

// POST /api/params takes a full or partial analysis.Params document; fields
// left out keep their current values.
func (s *HTTPServer) apiParams(w http.ResponseWriter, r *http.Request) {
	p := s.st.Params()
	if !decodeBody(w, r, &p) {
		return
	}
	if err := p.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.st.SetParams(p)
	s.log.Info("analysis params updated")
	writeJSON(w, map[string]any{"ok": true, "params": p})
}

// POST /api/symbol {"symbol": "BTCUSD"}; an empty symbol clears the filter.
func (s *HTTPServer) apiSymbol(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol string `json:"symbol"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	sym := s.st.SetSymbol(req.Symbol)
	s.BroadcastStatus()
	writeJSON(w, map[string]any{"ok": true, "symbol": sym})
}

func (s *HTTPServer) apiBook(w http.ResponseWriter, r *http.Request) {
	var book market.OrderBook
	if !decodeBody(w, r, &book) {
		return
	}
	if err := book.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	telemetry.AnalysesTotal.WithLabelValues("book").Inc()
	writeJSON(w, analysis.AnalyzeBook(book, s.st.Params().Book))
}

type tradesRequest struct {
	Trades   []market.Trade      `json:"trades"`
	TickSize decimal.NullDecimal `json:"tickSize"`
}

func (s *HTTPServer) apiTape(w http.ResponseWriter, r *http.Request) {
	var req tradesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p := s.st.Params().Tape
	if req.TickSize.Valid {
		p.TickSize = req.TickSize.Decimal
	}
	telemetry.AnalysesTotal.WithLabelValues("tape").Inc()
	writeJSON(w, analysis.AnalyzeTape(req.Trades, p))
}

func (s *HTTPServer) apiProfile(w http.ResponseWriter, r *http.Request) {
	var req tradesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p := s.st.Params().Tape
	tick := p.TickSize
	if req.TickSize.Valid {
		tick = req.TickSize.Decimal
	}
	telemetry.AnalysesTotal.WithLabelValues("profile").Inc()
	writeJSON(w, profile.BuildWithValueArea(req.Trades, tick, p.ValueAreaShare))
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
