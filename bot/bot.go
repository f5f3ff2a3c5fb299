// Package bot runs the trading loop: fetch candles, mark equity, apply
// risk governance, evaluate signals and execute orders through a broker.
// The loop is single-threaded; one tick processes every configured symbol
// in order before sleeping.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/spotbot/broker"
	"github.com/rustyeddy/spotbot/journal"
	"github.com/rustyeddy/spotbot/market"
	"github.com/rustyeddy/spotbot/notify"
	"github.com/rustyeddy/spotbot/risk"
	"github.com/rustyeddy/spotbot/strategy"
)

// CandleProvider supplies the current candle window per symbol.
// Implemented by *marketdata.Pipeline.
type CandleProvider interface {
	Candles(ctx context.Context, symbol string) ([]market.Candle, bool)
}

// SignalEngine classifies a candle window. Implemented by
// *strategy.RSIMACDVolume.
type SignalEngine interface {
	Generate(candles []market.Candle, position *broker.Position) strategy.Signal
}

// BalanceSource reports free balances per asset in live mode. Implemented
// by *exchange.Binance.
type BalanceSource interface {
	FreeBalances(ctx context.Context) (map[string]float64, error)
}

// Config is the loop configuration.
type Config struct {
	Mode         string // "paper" or "live"
	Symbols      []string
	Quote        string // shared quote asset of all symbols
	PollInterval time.Duration
}

// TradingBot owns all per-run state: open positions, carried last prices
// and the halt-notification latch.
type TradingBot struct {
	cfg      Config
	provider CandleProvider
	engine   SignalEngine
	risk     *risk.Manager
	broker   broker.Broker
	paper    *broker.Paper // non-nil in paper mode, source of cash
	balances BalanceSource // non-nil in live mode
	journal  journal.Journal
	notifier notify.Notifier

	positions    map[string]broker.Position
	lastPrices   map[string]float64 // carried forward across ticks
	haltNotified bool

	now func() time.Time
}

// New wires a paper-mode bot. The paper broker doubles as the cash ledger.
func New(cfg Config, provider CandleProvider, engine SignalEngine, rm *risk.Manager,
	paper *broker.Paper, j journal.Journal, n notify.Notifier) *TradingBot {
	b := newBot(cfg, provider, engine, rm, j, n)
	b.broker = paper
	b.paper = paper
	return b
}

// NewLive wires a live-mode bot. Cash is read from the exchange every tick.
func NewLive(cfg Config, provider CandleProvider, engine SignalEngine, rm *risk.Manager,
	live broker.Broker, balances BalanceSource, j journal.Journal, n notify.Notifier) *TradingBot {
	b := newBot(cfg, provider, engine, rm, j, n)
	b.broker = live
	b.balances = balances
	return b
}

func newBot(cfg Config, provider CandleProvider, engine SignalEngine, rm *risk.Manager,
	j journal.Journal, n notify.Notifier) *TradingBot {
	if j == nil {
		j = journal.Nop{}
	}
	if n == nil {
		n = notify.Nop{}
	}
	return &TradingBot{
		cfg:        cfg,
		provider:   provider,
		engine:     engine,
		risk:       rm,
		journal:    j,
		notifier:   n,
		positions:  make(map[string]broker.Position),
		lastPrices: make(map[string]float64),
		now:        time.Now,
	}
}

// Positions returns a snapshot of the open positions.
func (b *TradingBot) Positions() map[string]broker.Position {
	out := make(map[string]broker.Position, len(b.positions))
	for k, v := range b.positions {
		out[k] = v
	}
	return out
}

// Run ticks until ctx is cancelled. With once set, it runs a single tick
// and returns.
func (b *TradingBot) Run(ctx context.Context, once bool) error {
	for {
		if err := b.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Msg("tick failed")
		}
		if once {
			return nil
		}

		timer := time.NewTimer(b.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Tick processes one pass over all configured symbols.
func (b *TradingBot) Tick(ctx context.Context) error {
	windows := make(map[string][]market.Candle, len(b.cfg.Symbols))
	for _, sym := range b.cfg.Symbols {
		candles, ok := b.provider.Candles(ctx, sym)
		if !ok || len(candles) == 0 {
			continue
		}
		windows[sym] = candles
		b.lastPrices[sym] = candles[len(candles)-1].Close
	}

	freeQuote, err := b.freeQuote(ctx)
	if err != nil {
		return fmt.Errorf("free balance: %w", err)
	}

	now := b.now()
	equity := b.equity(freeQuote)
	b.risk.UpdateDailyEquity(now, equity)
	b.notifyHaltTransition(ctx, equity)

	for _, sym := range b.cfg.Symbols {
		candles, ok := windows[sym]
		if !ok {
			continue
		}
		if err := b.tradeSymbol(ctx, sym, candles, equity, &freeQuote, now); err != nil {
			log.Error().Err(err).Str("symbol", sym).Msg("symbol tick failed")
			b.notifier.Notify(ctx, fmt.Sprintf("order failed for %s: %v", sym, err))
		}
	}
	return nil
}

// tradeSymbol applies the stop/take check first; a protective exit
// consumes the tick for that symbol and no signal is evaluated.
func (b *TradingBot) tradeSymbol(ctx context.Context, sym string, candles []market.Candle,
	equity float64, freeQuote *float64, now time.Time) error {
	last := candles[len(candles)-1].Close

	if pos, ok := b.positions[sym]; ok {
		if reason, hit := b.risk.StopTakeReason(pos, last); hit {
			return b.closePosition(ctx, pos, last, reason, now)
		}
	}

	var posPtr *broker.Position
	if pos, ok := b.positions[sym]; ok {
		posPtr = &pos
	}
	sig := b.engine.Generate(candles, posPtr)

	switch sig.Action {
	case strategy.Buy:
		if posPtr != nil || b.risk.Halted() {
			return nil
		}
		alloc := b.risk.MaxQuoteAllocation(equity, *freeQuote)
		if alloc <= 0 {
			return nil
		}
		if err := b.openPosition(ctx, sym, alloc, last, sig.Reason, now); err != nil {
			return err
		}
		*freeQuote -= alloc
		if *freeQuote < 0 {
			*freeQuote = 0
		}
	case strategy.Sell:
		if posPtr != nil {
			return b.closePosition(ctx, *posPtr, last, sig.Reason, now)
		}
	}
	return nil
}

func (b *TradingBot) openPosition(ctx context.Context, sym string, alloc, last float64,
	reason string, now time.Time) error {
	fill, err := b.broker.MarketBuy(ctx, sym, alloc, last)
	if err != nil {
		return fmt.Errorf("buy %s: %w", sym, err)
	}

	pos := b.risk.BuildPosition(sym, fill.Amount, fill.Price, now.UnixMilli(), fill.FeeQuote)
	b.positions[sym] = pos

	log.Info().Str("symbol", sym).Float64("amount", fill.Amount).
		Float64("price", fill.Price).Str("reason", reason).Msg("opened position")

	b.record(journal.TradeRecord{
		TimestampMS: now.UnixMilli(),
		Symbol:      sym,
		Side:        string(strategy.Buy),
		Amount:      fill.Amount,
		Price:       fill.Price,
		Fee:         fill.FeeQuote,
		Reason:      reason,
		Mode:        b.cfg.Mode,
		OrderID:     fill.OrderID,
	})
	b.notifier.Notify(ctx, fmt.Sprintf("BUY %s %.8f @ %.2f (%s)", sym, fill.Amount, fill.Price, reason))
	return nil
}

func (b *TradingBot) closePosition(ctx context.Context, pos broker.Position, last float64,
	reason string, now time.Time) error {
	fill, err := b.broker.MarketSell(ctx, pos.Symbol, pos.Amount, last)
	if err != nil {
		return fmt.Errorf("sell %s: %w", pos.Symbol, err)
	}

	pnl, _ := broker.ClosePnL(pos, pos.Amount, fill)
	delete(b.positions, pos.Symbol)

	log.Info().Str("symbol", pos.Symbol).Float64("amount", fill.Amount).
		Float64("price", fill.Price).Float64("pnl", pnl).Str("reason", reason).
		Msg("closed position")

	b.record(journal.TradeRecord{
		TimestampMS: now.UnixMilli(),
		Symbol:      pos.Symbol,
		Side:        string(strategy.Sell),
		Amount:      fill.Amount,
		Price:       fill.Price,
		Fee:         fill.FeeQuote,
		PnL:         pnl,
		Reason:      reason,
		Mode:        b.cfg.Mode,
		OrderID:     fill.OrderID,
	})
	b.notifier.Notify(ctx, fmt.Sprintf("SELL %s %.8f @ %.2f pnl=%.2f (%s)",
		pos.Symbol, fill.Amount, fill.Price, pnl, reason))
	return nil
}

// freeQuote returns spendable quote cash: the paper ledger, or the
// exchange's free balance of the quote asset.
func (b *TradingBot) freeQuote(ctx context.Context) (float64, error) {
	if b.paper != nil {
		return b.paper.Cash, nil
	}
	balances, err := b.balances.FreeBalances(ctx)
	if err != nil {
		return 0, err
	}
	return balances[b.cfg.Quote], nil
}

// equity is cash plus every open position marked at its carried last
// price. Symbols are walked in configured order so the float sum is
// reproducible.
func (b *TradingBot) equity(freeQuote float64) float64 {
	equity := freeQuote
	for _, sym := range b.cfg.Symbols {
		pos, ok := b.positions[sym]
		if !ok {
			continue
		}
		price, ok := b.lastPrices[sym]
		if !ok {
			price = pos.EntryPrice
		}
		equity += pos.Amount * price
	}
	return equity
}

// notifyHaltTransition sends a single alert per halt episode.
func (b *TradingBot) notifyHaltTransition(ctx context.Context, equity float64) {
	if b.risk.Halted() {
		if !b.haltNotified {
			b.haltNotified = true
			b.notifier.Notify(ctx, fmt.Sprintf("HALT: daily drawdown limit hit, equity %.2f; entries blocked until next UTC day", equity))
		}
		return
	}
	b.haltNotified = false
}

func (b *TradingBot) record(rec journal.TradeRecord) {
	if err := b.journal.RecordTrade(rec); err != nil {
		log.Warn().Err(err).Str("symbol", rec.Symbol).Msg("journal write failed")
	}
}

// Close flushes the journal.
func (b *TradingBot) Close() error {
	return b.journal.Close()
}
