package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"microstructure-analyzer/internal/analysis"
	"microstructure-analyzer/internal/orderbook"
)

// EnvPrefix is prepended to every environment override, e.g. MSA_PORT or
// MSA_ANALYSIS_SPOOF_THRESHOLD.
const EnvPrefix = "MSA"

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Port             int            `yaml:"port" toml:"port" envconfig:"PORT"`
	LogLevel         string         `yaml:"log_level" toml:"log_level" envconfig:"LOG_LEVEL"`
	Symbol           string         `yaml:"symbol" toml:"symbol" envconfig:"SYMBOL"`
	ReplayFile       string         `yaml:"replay_file" toml:"replay_file" envconfig:"REPLAY_FILE"`
	ReplayIntervalMs int            `yaml:"replay_interval_ms" toml:"replay_interval_ms" envconfig:"REPLAY_INTERVAL_MS"`
	ReplayLoop       bool           `yaml:"replay_loop" toml:"replay_loop" envconfig:"REPLAY_LOOP"`
	CooldownSeconds  int            `yaml:"cooldown_seconds" toml:"cooldown_seconds" envconfig:"COOLDOWN_SECONDS"`
	LevelsToScan     int            `yaml:"levels_to_scan" toml:"levels_to_scan" envconfig:"LEVELS_TO_SCAN"`
	Analysis         AnalysisConfig `yaml:"analysis" toml:"analysis" envconfig:"ANALYSIS"`
}

// AnalysisConfig holds detector thresholds. Decimals are read from their
// text form, so "0.7" and 0.7 both work in YAML.
type AnalysisConfig struct {
	Depth            int             `yaml:"depth" toml:"depth" envconfig:"DEPTH"`
	SpoofThreshold   decimal.Decimal `yaml:"spoof_threshold" toml:"spoof_threshold" envconfig:"SPOOF_THRESHOLD"`
	SupportThreshold decimal.Decimal `yaml:"support_threshold" toml:"support_threshold" envconfig:"SUPPORT_THRESHOLD"`
	BlockThreshold   decimal.Decimal `yaml:"block_threshold" toml:"block_threshold" envconfig:"BLOCK_THRESHOLD"`
	ClusterWindow    int64           `yaml:"cluster_window" toml:"cluster_window" envconfig:"CLUSTER_WINDOW"`
	MinClusterSize   int             `yaml:"min_cluster_size" toml:"min_cluster_size" envconfig:"MIN_CLUSTER_SIZE"`
	TickSize         decimal.Decimal `yaml:"tick_size" toml:"tick_size" envconfig:"TICK_SIZE"`
	ValueAreaShare   decimal.Decimal `yaml:"value_area_share" toml:"value_area_share" envconfig:"VALUE_AREA_SHARE"`
	IcebergMinFills  int             `yaml:"iceberg_min_fills" toml:"iceberg_min_fills" envconfig:"ICEBERG_MIN_FILLS"`
	IcebergTolerance decimal.Decimal `yaml:"iceberg_tolerance" toml:"iceberg_tolerance" envconfig:"ICEBERG_TOLERANCE"`
	AbsorptionVolume decimal.Decimal `yaml:"absorption_volume" toml:"absorption_volume" envconfig:"ABSORPTION_VOLUME"`
	AbsorptionRange  decimal.Decimal `yaml:"absorption_range" toml:"absorption_range" envconfig:"ABSORPTION_RANGE"`
}

func defaults() Config {
	p := analysis.DefaultParams()
	return Config{
		Port:             8086,
		LogLevel:         "info",
		ReplayIntervalMs: 250,
		CooldownSeconds:  1,
		LevelsToScan:     10,
		Analysis: AnalysisConfig{
			Depth:            p.Book.Depth,
			SpoofThreshold:   p.Book.SpoofThreshold,
			SupportThreshold: p.Book.LevelThreshold,
			BlockThreshold:   p.Tape.BlockThreshold,
			ClusterWindow:    p.Tape.ClusterWindow,
			MinClusterSize:   p.Tape.MinClusterSize,
			TickSize:         p.Tape.TickSize,
			ValueAreaShare:   p.Tape.ValueAreaShare,
			IcebergMinFills:  p.Tape.IcebergMinFills,
			IcebergTolerance: p.Tape.IcebergTolerance,
			AbsorptionVolume: p.Tape.AbsorptionVolume,
			AbsorptionRange:  p.Tape.AbsorptionRange,
		},
	}
}

// Load reads a YAML file (TOML when the name ends in .toml), applies MSA_*
// environment overrides and validates the result. An empty path skips the
// file and uses defaults plus environment.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("env overrides: %w", err)
	}
	cfg.Symbol = strings.ToUpper(strings.TrimSpace(cfg.Symbol))
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(b), cfg); err != nil {
			return fmt.Errorf("parse toml: %w", err)
		}
		return nil
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

func (c Config) validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("%w: port %d out of range", ErrInvalid, c.Port)
	case c.LevelsToScan < 0:
		return fmt.Errorf("%w: levels_to_scan must be >= 0", ErrInvalid)
	case c.ReplayIntervalMs < 0:
		return fmt.Errorf("%w: replay_interval_ms must be >= 0", ErrInvalid)
	case c.CooldownSeconds < 0:
		return fmt.Errorf("%w: cooldown_seconds must be >= 0", ErrInvalid)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalid, c.LogLevel)
	}
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("%w: analysis: %w", ErrInvalid, err)
	}
	return nil
}

// Params converts the analysis section. A negative depth means all levels.
func (c Config) Params() analysis.Params {
	a := c.Analysis
	depth := a.Depth
	if depth < 0 {
		depth = orderbook.AllLevels
	}
	return analysis.Params{
		Book: analysis.BookParams{
			Depth:          depth,
			SpoofThreshold: a.SpoofThreshold,
			LevelThreshold: a.SupportThreshold,
		},
		Tape: analysis.TapeParams{
			BlockThreshold:   a.BlockThreshold,
			ClusterWindow:    a.ClusterWindow,
			MinClusterSize:   a.MinClusterSize,
			TickSize:         a.TickSize,
			ValueAreaShare:   a.ValueAreaShare,
			IcebergMinFills:  a.IcebergMinFills,
			IcebergTolerance: a.IcebergTolerance,
			AbsorptionVolume: a.AbsorptionVolume,
			AbsorptionRange:  a.AbsorptionRange,
		},
	}
}

func (c Config) Cooldown() time.Duration { return time.Duration(c.CooldownSeconds) * time.Second }

func (c Config) ReplayInterval() time.Duration {
	return time.Duration(c.ReplayIntervalMs) * time.Millisecond
}

func NewLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(h)
}
