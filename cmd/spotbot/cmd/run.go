package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/spotbot/bot"
	"github.com/rustyeddy/spotbot/broker"
	"github.com/rustyeddy/spotbot/config"
	"github.com/rustyeddy/spotbot/exchange"
	"github.com/rustyeddy/spotbot/journal"
	"github.com/rustyeddy/spotbot/marketdata"
	"github.com/rustyeddy/spotbot/notify"
	"github.com/rustyeddy/spotbot/risk"
	"github.com/rustyeddy/spotbot/strategy"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading loop (paper or live per the config)",
	Long: `Run the trading loop using settings from a configuration file.

Example:
  spotbot run -f config.yaml
  spotbot run -f config.yaml --once`,
	RunE: runRun,
}

var (
	runConfigPath string
	runOnce       bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to YAML config file (required)")
	runCmd.Flags().BoolVar(&runOnce, "once", false, "run a single tick and exit")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	setupLogging(cfg.Runtime.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ex, err := newExchange(ctx, cfg)
	if err != nil {
		return err
	}

	cache := newCache(ctx, cfg)
	if closer, ok := cache.(*marketdata.RedisCache); ok {
		defer closer.Close()
	}
	pipeline := marketdata.NewPipeline(ex, cache, cfg.Strategy.Timeframe, cfg.Strategy.OHLCVLimit)

	engine := strategy.New(strategyParams(cfg))
	rm := risk.NewManager(riskConfig(cfg))

	j, err := newJournal(cfg)
	if err != nil {
		return err
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.Discord.WebhookURL != "" {
		notifier = notify.NewDiscord(cfg.Discord.WebhookURL)
	}

	botCfg := bot.Config{
		Mode:         cfg.Mode,
		Symbols:      cfg.Symbols,
		Quote:        cfg.QuoteCurrency(),
		PollInterval: cfg.Runtime.PollInterval(),
	}

	var b *bot.TradingBot
	if cfg.Mode == "live" {
		live := broker.NewLive(ex, cfg.Paper.FeePct)
		b = bot.NewLive(botCfg, pipeline, engine, rm, live, ex, j, notifier)
	} else {
		paper := broker.NewPaper(cfg.Paper.StartingCash, cfg.Paper.FeePct)
		b = bot.New(botCfg, pipeline, engine, rm, paper, j, notifier)
	}
	defer b.Close()

	log.Info().Str("mode", cfg.Mode).Strs("symbols", cfg.Symbols).
		Str("timeframe", cfg.Strategy.Timeframe).Msg("starting trading loop")
	notifier.Notify(ctx, fmt.Sprintf("spotbot started in %s mode: %s @ %s",
		cfg.Mode, strings.Join(cfg.Symbols, ", "), cfg.Strategy.Timeframe))

	if err := b.Run(ctx, runOnce); err != nil && ctx.Err() == nil {
		return err
	}
	log.Info().Msg("trading loop stopped")
	return nil
}

// newExchange builds the exchange client, loading market metadata. When
// binance.com answers with its geo-block, the binance.us endpoint is
// tried before giving up. `exchange.name: binanceus` skips straight to
// the US endpoint.
func newExchange(ctx context.Context, cfg *config.AppConfig) (*exchange.Binance, error) {
	exCfg := exchange.Config{
		APIKey:    cfg.Exchange.APIKey,
		APISecret: cfg.Exchange.APISecret,
		Testnet:   cfg.Exchange.Testnet,
		Timeout:   cfg.Exchange.Timeout(),
	}

	if cfg.Exchange.Name == "binanceus" {
		ex := exchange.NewBinanceUS(exCfg)
		if err := ex.LoadMarkets(ctx, cfg.Symbols); err != nil {
			return nil, fmt.Errorf("load markets (binance.us): %w", err)
		}
		return ex, nil
	}

	ex := exchange.NewBinance(exCfg)
	err := ex.LoadMarkets(ctx, cfg.Symbols)
	if err == nil {
		return ex, nil
	}
	if !exchange.RestrictedLocation(err) {
		return nil, fmt.Errorf("load markets: %w", err)
	}

	log.Warn().Msg("binance.com rejected the region, falling back to binance.us")
	ex = exchange.NewBinanceUS(exCfg)
	if err := ex.LoadMarkets(ctx, cfg.Symbols); err != nil {
		return nil, fmt.Errorf("load markets (binance.us): %w", err)
	}
	return ex, nil
}

// newCache returns the Redis cache when enabled and reachable; otherwise
// the loop runs cacheless.
func newCache(ctx context.Context, cfg *config.AppConfig) marketdata.Cache {
	if !cfg.Redis.Enabled {
		return marketdata.NopCache{}
	}
	cache, err := marketdata.NewRedisCache(ctx, cfg.Redis.URL, cfg.Redis.Prefix, cfg.Redis.TTL())
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, running without cache")
		return marketdata.NopCache{}
	}
	return cache
}

func newJournal(cfg *config.AppConfig) (journal.Journal, error) {
	if cfg.SQLite.Path == "" {
		return journal.Nop{}, nil
	}
	j, err := journal.NewSQLite(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return j, nil
}

func strategyParams(cfg *config.AppConfig) strategy.Params {
	return strategy.Params{
		HistoryLimit:    cfg.Strategy.OHLCVLimit,
		RSIPeriod:       cfg.Strategy.RSIPeriod,
		RSIOversold:     cfg.Strategy.RSIOversold,
		RSIOverbought:   cfg.Strategy.RSIOverbought,
		MACDFast:        cfg.Strategy.MACDFast,
		MACDSlow:        cfg.Strategy.MACDSlow,
		MACDSignal:      cfg.Strategy.MACDSignal,
		VolumeMAPeriod:  cfg.Strategy.VolumeMAPeriod,
		VolumeSpikeMult: cfg.Strategy.VolumeSpikeMult,
	}
}

func riskConfig(cfg *config.AppConfig) risk.Config {
	return risk.Config{
		MaxPositionPct:        cfg.Risk.MaxPositionPct,
		StopLossPct:           cfg.Risk.StopLossPct,
		TakeProfitPct:         cfg.Risk.TakeProfitPct,
		DailyDrawdownLimitPct: cfg.Risk.DailyDrawdownLimitPct,
	}
}
