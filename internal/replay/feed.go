// Package replay plays back an already-recorded file of order-book snapshots
// and trade batches, one record at a time, for the analysis pipeline.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"microstructure-analyzer/internal/depth"
	"microstructure-analyzer/internal/market"
	"microstructure-analyzer/internal/telemetry"
)

var ErrUnknownRecord = errors.New("unknown record type")

const (
	TypeBook   = "book"
	TypeTrades = "trades"
)

// TradeBatch is a complete, timestamp-ordered batch of trades for a symbol.
type TradeBatch struct {
	Symbol string         `json:"symbol"`
	Trades []market.Trade `json:"trades"`
}

// Record is one line of a replay file. Exactly one of Book and Trades is set,
// matching Type.
type Record struct {
	Type   string
	Book   *depth.Update
	Trades *TradeBatch
}

func (r Record) Symbol() string {
	switch {
	case r.Book != nil:
		return r.Book.Symbol
	case r.Trades != nil:
		return r.Trades.Symbol
	}
	return ""
}

// ParseRecord decodes one JSON line:
//
//	{"type":"book","symbol":"BTCUSD","timestamp":1,"bids":[...],"asks":[...]}
//	{"type":"trades","symbol":"BTCUSD","trades":[...]}
func ParseRecord(line []byte) (Record, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(line, &env); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	rec := Record{Type: strings.ToLower(env.Type)}
	switch rec.Type {
	case TypeBook:
		var up depth.Update
		if err := json.Unmarshal(line, &up); err != nil {
			return Record{}, fmt.Errorf("decode book: %w", err)
		}
		up.Symbol = strings.ToUpper(strings.TrimSpace(up.Symbol))
		// the array a row sits in decides its side
		for i := range up.Bids {
			up.Bids[i].Side = market.Bid
		}
		for i := range up.Asks {
			up.Asks[i].Side = market.Ask
		}
		rec.Book = &up
	case TypeTrades:
		var b TradeBatch
		if err := json.Unmarshal(line, &b); err != nil {
			return Record{}, fmt.Errorf("decode trades: %w", err)
		}
		b.Symbol = strings.ToUpper(strings.TrimSpace(b.Symbol))
		rec.Trades = &b
	default:
		return Record{}, fmt.Errorf("%w: %q", ErrUnknownRecord, env.Type)
	}
	return rec, nil
}

type Feed interface {
	Run(ctx context.Context, onStatus func(connected bool))
	Updates() <-chan Record
	Errors() <-chan error
	Connected() bool
	Close()
}

// FileFeed emits the records of a JSON-lines file at a fixed pace. Bad lines
// are reported on Errors and skipped. With loop set the file restarts at EOF,
// otherwise Run returns and Updates is closed.
type FileFeed struct {
	path     string
	interval time.Duration
	loop     bool
	log      *slog.Logger

	mu        sync.RWMutex
	connected bool
	cancel    context.CancelFunc

	updCh chan Record
	errCh chan error
}

func NewFileFeed(path string, interval time.Duration, loop bool, logger *slog.Logger) *FileFeed {
	return &FileFeed{
		path:     path,
		interval: interval,
		loop:     loop,
		log:      logger,
		updCh:    make(chan Record, 64),
		errCh:    make(chan error, 16),
	}
}

func (f *FileFeed) Updates() <-chan Record { return f.updCh }
func (f *FileFeed) Errors() <-chan error   { return f.errCh }

func (f *FileFeed) Connected() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.connected
}

func (f *FileFeed) setConnected(v bool, onStatus func(bool)) {
	f.mu.Lock()
	f.connected = v
	f.mu.Unlock()
	onStatus(v)
}

func (f *FileFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
	}
}

// Run blocks until the context is cancelled, Close is called, or the file is
// exhausted without loop.
func (f *FileFeed) Run(ctx context.Context, onStatus func(connected bool)) {
	f.mu.Lock()
	if f.cancel != nil {
		f.mu.Unlock()
		return
	}
	ctx, f.cancel = context.WithCancel(ctx)
	f.mu.Unlock()
	defer close(f.updCh)

	for {
		f.setConnected(true, onStatus)
		err := f.playOnce(ctx)
		f.setConnected(false, onStatus)
		if err != nil {
			f.emitErr(err)
			return
		}
		if ctx.Err() != nil || !f.loop {
			return
		}
		f.log.Debug("replay restarting", slog.String("path", f.path))
	}
}

func (f *FileFeed) playOnce(ctx context.Context) error {
	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("open replay: %w", err)
	}
	defer file.Close()

	var ticker *time.Ticker
	if f.interval > 0 {
		ticker = time.NewTicker(f.interval)
		defer ticker.Stop()
	}

	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		rec, err := ParseRecord(line)
		if err != nil {
			f.emitErr(fmt.Errorf("%s:%d: %w", f.path, lineNo, err))
			continue
		}
		telemetry.ReplayRecordsTotal.WithLabelValues(rec.Type).Inc()

		if ticker != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case f.updCh <- rec:
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read replay: %w", err)
	}
	return nil
}

func (f *FileFeed) emitErr(err error) {
	select {
	case f.errCh <- err:
	default:
		// drop if buffer full
	}
}

// ---------- Test/mock feed ----------
type MockFeed struct {
	updates   chan Record
	errors    chan error
	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewMockFeed() *MockFeed {
	return &MockFeed{
		updates:   make(chan Record, 10),
		errors:    make(chan error, 10),
		connected: true,
	}
}

func (m *MockFeed) Run(ctx context.Context, onStatus func(connected bool)) {
	m.ctx, m.cancel = context.WithCancel(ctx)
	onStatus(m.connected)
	<-m.ctx.Done()
}

func (m *MockFeed) Updates() <-chan Record { return m.updates }
func (m *MockFeed) Errors() <-chan error   { return m.errors }
func (m *MockFeed) Connected() bool        { return m.connected }

func (m *MockFeed) Close() {
	if m.cancel != nil {
		m.cancel()
	}
	close(m.updates)
}

func (m *MockFeed) Send(r Record)     { m.updates <- r }
func (m *MockFeed) SendError(e error) { m.errors <- e }
