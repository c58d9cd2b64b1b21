package state

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"microstructure-analyzer/internal/analysis"
	"microstructure-analyzer/internal/patterns"
)

// State is the mutable runtime view shared by the pipeline and the HTTP
// server: the symbol filter, the analysis parameters, feed status and the
// alert cooldown table.
type State struct {
	activeMu     sync.RWMutex
	activeSymbol string
	params       analysis.Params

	connected atomic.Bool

	alertMu   sync.Mutex
	lastAlert map[string]time.Time // key: "SYMBOL:KIND:PRICE"
	cooldown  time.Duration
}

func NewState(cooldown time.Duration, params analysis.Params) *State {
	return &State{
		lastAlert: make(map[string]time.Time),
		cooldown:  cooldown,
		params:    params,
	}
}

// SetSymbol restricts processing to one symbol; an empty symbol accepts all.
func (s *State) SetSymbol(sym string) string {
	canon := strings.ToUpper(strings.TrimSpace(sym))
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	s.activeSymbol = canon
	return canon
}

func (s *State) Symbol() string {
	s.activeMu.RLock()
	defer s.activeMu.RUnlock()
	return s.activeSymbol
}

// Accepts reports whether records for sym pass the symbol filter.
func (s *State) Accepts(sym string) bool {
	active := s.Symbol()
	return active == "" || strings.EqualFold(active, strings.TrimSpace(sym))
}

func (s *State) Params() analysis.Params {
	s.activeMu.RLock()
	defer s.activeMu.RUnlock()
	return s.params
}

func (s *State) SetParams(p analysis.Params) {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	s.params = p
}

func (s *State) SetConnected(v bool) { s.connected.Store(v) }
func (s *State) Connected() bool     { return s.connected.Load() }

func (s *State) key(symbol string, kind patterns.Kind, price decimal.Decimal) string {
	return fmt.Sprintf("%s:%s:%s", strings.ToUpper(symbol), kind, price.String())
}

// AllowAlert is true at most once per cooldown for the same symbol, pattern
// kind and price.
func (s *State) AllowAlert(symbol string, kind patterns.Kind, price decimal.Decimal, now time.Time) bool {
	k := s.key(symbol, kind, price)
	s.alertMu.Lock()
	defer s.alertMu.Unlock()
	last, ok := s.lastAlert[k]
	if !ok || now.Sub(last) >= s.cooldown {
		s.lastAlert[k] = now
		return true
	}
	return false
}
