// Package config loads and validates the application configuration from
// YAML, with environment-variable overrides for secrets.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/spotbot/market"
)

// ErrInvalid wraps every validation failure so callers can test for the
// class with errors.Is.
var ErrInvalid = errors.New("invalid configuration")

// AppConfig is the complete runtime configuration.
type AppConfig struct {
	Mode     string         `yaml:"mode"` // "paper" or "live"
	Symbols  []string       `yaml:"symbols"`
	Exchange ExchangeConfig `yaml:"exchange"`
	Strategy StrategyConfig `yaml:"strategy"`
	Risk     RiskConfig     `yaml:"risk"`
	Paper    PaperConfig    `yaml:"paper"`
	Redis    RedisConfig    `yaml:"redis"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Discord  DiscordConfig  `yaml:"discord"`
	Runtime  RuntimeConfig  `yaml:"runtime"`
}

type ExchangeConfig struct {
	Name      string `yaml:"name"`
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Testnet   bool   `yaml:"testnet"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// Timeout returns the HTTP timeout, defaulting to 30s.
func (e ExchangeConfig) Timeout() time.Duration {
	if e.TimeoutMS <= 0 {
		return 30 * time.Second
	}
	return time.Duration(e.TimeoutMS) * time.Millisecond
}

type StrategyConfig struct {
	Timeframe       string  `yaml:"timeframe"`
	OHLCVLimit      int     `yaml:"ohlcv_limit"`
	RSIPeriod       int     `yaml:"rsi_period"`
	RSIOversold     float64 `yaml:"rsi_oversold"`
	RSIOverbought   float64 `yaml:"rsi_overbought"`
	MACDFast        int     `yaml:"macd_fast"`
	MACDSlow        int     `yaml:"macd_slow"`
	MACDSignal      int     `yaml:"macd_signal"`
	VolumeMAPeriod  int     `yaml:"volume_ma_period"`
	VolumeSpikeMult float64 `yaml:"volume_spike_mult"`
}

type RiskConfig struct {
	MaxPositionPct        float64 `yaml:"max_position_pct"`
	StopLossPct           float64 `yaml:"stop_loss_pct"`
	TakeProfitPct         float64 `yaml:"take_profit_pct"`
	DailyDrawdownLimitPct float64 `yaml:"daily_drawdown_limit_pct"`
}

type PaperConfig struct {
	StartingCash float64 `yaml:"starting_cash"`
	FeePct       float64 `yaml:"fee_pct"`
}

type RedisConfig struct {
	Enabled    bool   `yaml:"enabled"`
	URL        string `yaml:"url"`
	Prefix     string `yaml:"prefix"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

func (r RedisConfig) TTL() time.Duration {
	if r.TTLSeconds <= 0 {
		return 45 * time.Second
	}
	return time.Duration(r.TTLSeconds) * time.Second
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type DiscordConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

type RuntimeConfig struct {
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	LogLevel            string `yaml:"log_level"`
}

func (r RuntimeConfig) PollInterval() time.Duration {
	if r.PollIntervalSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(r.PollIntervalSeconds) * time.Second
}

// Default returns the configuration used when a field is left unset.
func Default() AppConfig {
	return AppConfig{
		Mode:    "paper",
		Symbols: []string{"BTC/USDT"},
		Exchange: ExchangeConfig{
			Name:      "binance",
			TimeoutMS: 30_000,
		},
		Strategy: StrategyConfig{
			Timeframe:       "5m",
			OHLCVLimit:      200,
			RSIPeriod:       14,
			RSIOversold:     30,
			RSIOverbought:   70,
			MACDFast:        12,
			MACDSlow:        26,
			MACDSignal:      9,
			VolumeMAPeriod:  20,
			VolumeSpikeMult: 1.2,
		},
		Risk: RiskConfig{
			MaxPositionPct:        0.02,
			StopLossPct:           0.03,
			TakeProfitPct:         0.05,
			DailyDrawdownLimitPct: 0.05,
		},
		Paper: PaperConfig{
			StartingCash: 10_000,
			FeePct:       0.001,
		},
		Redis: RedisConfig{
			Prefix:     "spotbot:",
			TTLSeconds: 45,
		},
		Runtime: RuntimeConfig{
			PollIntervalSeconds: 60,
			LogLevel:            "info",
		},
	}
}

// Load reads the YAML file at path on top of the defaults, applies
// environment overrides, and validates the result. Unknown YAML keys are
// rejected so typos fail fast.
func Load(path string) (*AppConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg := Default()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, err)
	}
	return &cfg, nil
}

// applyEnv overrides secrets from the environment. Env always wins over
// the file so credentials can stay out of YAML.
func (c *AppConfig) applyEnv() {
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		c.Exchange.APIKey = v
	}
	if v := os.Getenv("BINANCE_API_SECRET"); v != "" {
		c.Exchange.APISecret = v
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		c.Discord.WebhookURL = v
	}
}

// Validate checks if the configuration is valid.
func (c *AppConfig) Validate() error {
	switch c.Mode {
	case "paper", "live":
	default:
		return fmt.Errorf("mode must be \"paper\" or \"live\", got %q", c.Mode)
	}

	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	quote := ""
	for _, sym := range c.Symbols {
		_, q, err := market.ParseSymbol(sym)
		if err != nil {
			return err
		}
		if quote == "" {
			quote = q
		} else if q != quote {
			return fmt.Errorf("all symbols must share one quote currency: %s vs %s", quote, q)
		}
	}

	if c.Mode == "live" {
		if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" {
			return fmt.Errorf("live mode requires exchange.api_key and exchange.api_secret (or BINANCE_API_KEY/BINANCE_API_SECRET)")
		}
	}

	if _, err := market.TimeframeSeconds(c.Strategy.Timeframe); err != nil {
		return err
	}
	if c.Strategy.OHLCVLimit < 50 {
		return fmt.Errorf("strategy.ohlcv_limit must be at least 50, got %d", c.Strategy.OHLCVLimit)
	}
	if c.Strategy.MACDFast >= c.Strategy.MACDSlow {
		return fmt.Errorf("strategy.macd_fast must be less than macd_slow")
	}

	for _, p := range []struct {
		name string
		val  float64
	}{
		{"risk.max_position_pct", c.Risk.MaxPositionPct},
		{"risk.stop_loss_pct", c.Risk.StopLossPct},
		{"risk.take_profit_pct", c.Risk.TakeProfitPct},
		{"risk.daily_drawdown_limit_pct", c.Risk.DailyDrawdownLimitPct},
	} {
		if p.val <= 0 || p.val > 1 {
			return fmt.Errorf("%s must be in (0, 1], got %g", p.name, p.val)
		}
	}
	if c.Paper.FeePct < 0 || c.Paper.FeePct > 0.01 {
		return fmt.Errorf("paper.fee_pct must be in [0, 0.01], got %g", c.Paper.FeePct)
	}

	if c.Paper.StartingCash <= 0 {
		return fmt.Errorf("paper.starting_cash must be positive")
	}

	if c.Runtime.PollIntervalSeconds < 1 {
		return fmt.Errorf("runtime.poll_interval_seconds must be at least 1, got %d", c.Runtime.PollIntervalSeconds)
	}

	if c.Redis.Enabled && !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		return fmt.Errorf("redis.url must start with redis:// or rediss://")
	}

	return nil
}

// QuoteCurrency returns the quote asset shared by all configured symbols.
// Valid only after Validate.
func (c *AppConfig) QuoteCurrency() string {
	if len(c.Symbols) == 0 {
		return ""
	}
	_, quote, err := market.ParseSymbol(c.Symbols[0])
	if err != nil {
		return ""
	}
	return quote
}
