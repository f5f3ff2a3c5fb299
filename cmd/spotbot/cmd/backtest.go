package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/spotbot/backtest"
	"github.com/rustyeddy/spotbot/config"
	"github.com/rustyeddy/spotbot/market"
	"github.com/rustyeddy/spotbot/strategy"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay historical candles through the strategy",
	Long: `Backtest the strategy over a historical window, fetching candles from
the exchange. The report is printed as JSON (or written with -o).

Examples:
  spotbot backtest -f config.yaml --start 2024-01-01 --end 2024-03-01
  spotbot backtest -f config.yaml --start 2024-01-01T00:00:00Z --end 2024-02-01 \
      --symbols BTC/USDT,ETH/USDT --timeframe 1h -o report.json`,
	RunE: runBacktest,
}

var (
	btConfigPath string
	btExchange   string
	btSymbols    []string
	btStart      string
	btEnd        string
	btTimeframe  string
	btOutput     string
	btVerbose    bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btConfigPath, "config", "f", "", "path to YAML config file (required)")
	backtestCmd.Flags().StringVar(&btExchange, "exchange", "", "override the configured exchange (binance or binanceus)")
	backtestCmd.Flags().StringSliceVar(&btSymbols, "symbols", nil, "override configured symbols (comma separated)")
	backtestCmd.Flags().StringVar(&btStart, "start", "", "start of the window, RFC3339 or YYYY-MM-DD (required)")
	backtestCmd.Flags().StringVar(&btEnd, "end", "", "end of the window, RFC3339 or YYYY-MM-DD (required)")
	backtestCmd.Flags().StringVar(&btTimeframe, "timeframe", "", "override the configured timeframe")
	backtestCmd.Flags().StringVarP(&btOutput, "output-json", "o", "", "write the report to a file instead of stdout")
	backtestCmd.Flags().BoolVarP(&btVerbose, "verbose", "v", false, "print a human summary to stderr")
	backtestCmd.MarkFlagRequired("config")
	backtestCmd.MarkFlagRequired("start")
	backtestCmd.MarkFlagRequired("end")
}

// minWarmupBars matches the strategy's minimum window.
const minWarmupBars = 50

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(btConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	setupLogging(cfg.Runtime.LogLevel)

	if btExchange != "" {
		cfg.Exchange.Name = btExchange
	}
	if len(btSymbols) > 0 {
		cfg.Symbols = btSymbols
	}
	if btTimeframe != "" {
		cfg.Strategy.Timeframe = btTimeframe
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	start, err := parseTime(btStart, false)
	if err != nil {
		return fmt.Errorf("--start: %w", err)
	}
	end, err := parseTime(btEnd, true)
	if err != nil {
		return fmt.Errorf("--end: %w", err)
	}
	if !start.Before(end) {
		return fmt.Errorf("start %s must be before end %s", start, end)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ex, err := newExchange(ctx, cfg)
	if err != nil {
		return err
	}

	tfSeconds, err := market.TimeframeSeconds(cfg.Strategy.Timeframe)
	if err != nil {
		return err
	}

	// Fetch extra candles before the window so indicators are warm at the
	// first trading bar.
	warmupBars := cfg.Strategy.OHLCVLimit
	if warmupBars < minWarmupBars {
		warmupBars = minWarmupBars
	}
	fetchStartMS := start.UnixMilli() - int64(warmupBars)*tfSeconds*1000

	data := make(map[string][]market.Candle, len(cfg.Symbols))
	for _, sym := range cfg.Symbols {
		candles, err := ex.CandlesRange(ctx, sym, cfg.Strategy.Timeframe, fetchStartMS, end.UnixMilli())
		if err != nil {
			return fmt.Errorf("fetch %s: %w", sym, err)
		}
		if len(candles) == 0 {
			return fmt.Errorf("no candles for %s in the requested window", sym)
		}
		log.Info().Str("symbol", sym).Int("candles", len(candles)).Msg("fetched history")
		data[sym] = candles
	}

	btCfg := backtest.Config{
		Symbols:      cfg.Symbols,
		Timeframe:    cfg.Strategy.Timeframe,
		StartMS:      start.UnixMilli(),
		EndMS:        end.UnixMilli(),
		OHLCVLimit:   cfg.Strategy.OHLCVLimit,
		StartingCash: cfg.Paper.StartingCash,
		FeePct:       cfg.Paper.FeePct,
		Risk:         riskConfig(cfg),
	}

	engine := backtest.NewEngine(btCfg, strategy.New(strategyParams(cfg)))
	res, err := engine.Run(ctx, data)
	if err != nil {
		return err
	}

	report := backtest.BuildReport(btCfg, res)
	raw, err := report.JSON()
	if err != nil {
		return err
	}

	if btOutput != "" {
		if err := os.WriteFile(btOutput, raw, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		log.Info().Str("path", btOutput).Msg("report written")
	} else {
		fmt.Println(string(raw))
	}

	if btVerbose {
		fmt.Fprintf(os.Stderr, "run %s: %d trades, return %.2f%%, max drawdown %.2f%%, final equity %.2f\n",
			report.RunID, report.Metrics.TradeCount, report.Metrics.TotalReturnPct,
			report.Metrics.MaxDrawdownPct, report.FinalEquity)
	}
	return nil
}

// parseTime accepts RFC3339, a zone-less datetime (read as UTC), or a
// bare date. A bare end date is pushed to the last millisecond of that
// day so --end is inclusive.
func parseTime(s string, isEnd bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q (want RFC3339 or YYYY-MM-DD)", s)
	}
	t = t.UTC()
	if isEnd {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return t, nil
}
