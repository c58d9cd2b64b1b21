package config

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"microstructure-analyzer/internal/analysis"
	"microstructure-analyzer/internal/orderbook"
)

func TestLoadYAML(t *testing.T) {
	cfg, err := Load("testdata/config.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9090 || cfg.LogLevel != "debug" || cfg.Symbol != "BTCUSD" {
		t.Fatalf("top-level fields got %+v", cfg)
	}
	if !cfg.ReplayLoop || cfg.ReplayInterval() != 100*time.Millisecond || cfg.Cooldown() != 5*time.Second {
		t.Fatalf("replay/cooldown got %+v", cfg)
	}
	p := cfg.Params()
	if p.Book.Depth != 5 {
		t.Fatalf("depth got %d want 5", p.Book.Depth)
	}
	if !p.Book.SpoofThreshold.Equal(decimal.RequireFromString("75.5")) {
		t.Fatalf("spoof threshold got %v", p.Book.SpoofThreshold)
	}
	if !p.Book.LevelThreshold.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("support threshold got %v", p.Book.LevelThreshold)
	}
	if !p.Tape.ValueAreaShare.Equal(decimal.RequireFromString("0.68")) || p.Tape.IcebergMinFills != 4 {
		t.Fatalf("tape params got %+v", p.Tape)
	}
	// untouched keys keep their defaults
	if !p.Tape.BlockThreshold.Equal(decimal.NewFromInt(5)) || p.Tape.MinClusterSize != 3 {
		t.Fatalf("defaults lost: %+v", p.Tape)
	}
}

func TestLoadTOML(t *testing.T) {
	cfg, err := Load("testdata/config.toml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9191 || cfg.Symbol != "ETHUSD" || cfg.LevelsToScan != 0 {
		t.Fatalf("top-level fields got %+v", cfg)
	}
	p := cfg.Params()
	if !p.Tape.TickSize.Equal(decimal.RequireFromString("0.5")) || p.Tape.ClusterWindow != 500 {
		t.Fatalf("tape params got %+v", p.Tape)
	}
	if !p.Tape.BlockThreshold.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("block threshold got %v", p.Tape.BlockThreshold)
	}
	if p.Book.Depth != orderbook.AllLevels {
		t.Fatalf("depth got %d want all levels", p.Book.Depth)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MSA_PORT", "7000")
	t.Setenv("MSA_ANALYSIS_SPOOF_THRESHOLD", "12.25")
	t.Setenv("MSA_REPLAY_LOOP", "false")
	cfg, err := Load("testdata/config.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 7000 || cfg.ReplayLoop {
		t.Fatalf("env did not override file: %+v", cfg)
	}
	if !cfg.Analysis.SpoofThreshold.Equal(decimal.RequireFromString("12.25")) {
		t.Fatalf("spoof threshold got %v", cfg.Analysis.SpoofThreshold)
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8086 || cfg.LevelsToScan != 10 {
		t.Fatalf("defaults got %+v", cfg)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load("testdata/bad_share.yaml")
	if !errors.Is(err, ErrInvalid) || !errors.Is(err, analysis.ErrInvalidParams) {
		t.Fatalf("value_area_share 1.5: got %v want ErrInvalid wrapping ErrInvalidParams", err)
	}
	t.Setenv("MSA_ANALYSIS_CLUSTER_WINDOW", "-1")
	if _, err := Load(""); !errors.Is(err, analysis.ErrInvalidParams) {
		t.Fatalf("cluster_window -1: got %v want ErrInvalidParams", err)
	}
	t.Setenv("MSA_ANALYSIS_CLUSTER_WINDOW", "2")
	t.Setenv("MSA_PORT", "0")
	if _, err := Load(""); !errors.Is(err, ErrInvalid) {
		t.Fatalf("port 0: got %v want ErrInvalid", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("testdata/nope.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
