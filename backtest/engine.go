// Package backtest replays historical candles through the same strategy,
// risk and paper-fill code paths the live loop uses. Replay is
// event-time ordered across symbols and fully deterministic: two runs
// over the same candles produce byte-identical reports.
package backtest

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rustyeddy/spotbot/broker"
	"github.com/rustyeddy/spotbot/market"
	"github.com/rustyeddy/spotbot/risk"
	"github.com/rustyeddy/spotbot/strategy"
)

// SignalEngine classifies a candle window. Implemented by
// *strategy.RSIMACDVolume.
type SignalEngine interface {
	Generate(candles []market.Candle, position *broker.Position) strategy.Signal
}

// Config describes one backtest run. Candles before StartMS only warm up
// indicator history; trading begins at the first event time >= StartMS
// and stops after EndMS.
type Config struct {
	Symbols      []string
	Timeframe    string
	StartMS      int64
	EndMS        int64
	OHLCVLimit   int
	StartingCash float64
	FeePct       float64
	Risk         risk.Config
}

// ClosedTrade is one completed round trip.
type ClosedTrade struct {
	Symbol      string  `json:"symbol"`
	EntryTimeMS int64   `json:"entry_time_ms"`
	ExitTimeMS  int64   `json:"exit_time_ms"`
	Amount      float64 `json:"amount"`
	EntryPrice  float64 `json:"entry_price"`
	ExitPrice   float64 `json:"exit_price"`
	PnL         float64 `json:"pnl"`
	Reason      string  `json:"reason"`
}

// EquityPoint is the portfolio equity after processing one event time.
type EquityPoint struct {
	TimestampMS int64   `json:"timestamp_ms"`
	Equity      float64 `json:"equity"`
}

// Result is the raw run output; metrics are computed from it separately.
type Result struct {
	RunID       string
	FinalEquity float64
	EquityCurve []EquityPoint
	Trades      []ClosedTrade
}

// Engine replays candles through a signal engine.
type Engine struct {
	cfg    Config
	engine SignalEngine
}

func NewEngine(cfg Config, engine SignalEngine) *Engine {
	return &Engine{cfg: cfg, engine: engine}
}

// replayState is the per-run mutable state.
type replayState struct {
	paper      *broker.Paper
	rm         *risk.Manager
	histories  map[string][]market.Candle
	lastPrices map[string]float64
	positions  map[string]broker.Position
	trades     []ClosedTrade
}

// Run replays data, which maps each configured symbol to its ascending
// candle series. ctx only gates cancellation between event times.
func (e *Engine) Run(ctx context.Context, data map[string][]market.Candle) (Result, error) {
	if len(e.cfg.Symbols) == 0 {
		return Result{}, fmt.Errorf("backtest: no symbols configured")
	}
	if e.cfg.StartMS >= e.cfg.EndMS {
		return Result{}, fmt.Errorf("backtest: start %d must be before end %d", e.cfg.StartMS, e.cfg.EndMS)
	}

	st := &replayState{
		paper:      broker.NewPaper(e.cfg.StartingCash, e.cfg.FeePct),
		rm:         risk.NewManager(e.cfg.Risk),
		histories:  make(map[string][]market.Candle),
		lastPrices: make(map[string]float64),
		positions:  make(map[string]broker.Position),
	}

	// Per-symbol read cursors for the event-time merge.
	cursors := make(map[string]int, len(e.cfg.Symbols))

	var curve []EquityPoint
	var lastTS int64 = -1

	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		ts, ok := e.nextEventTime(data, cursors)
		if !ok || ts > e.cfg.EndMS {
			break
		}
		lastTS = ts

		// Advance every symbol whose next candle lands on this event time.
		updated := make(map[string]bool, len(e.cfg.Symbols))
		for _, sym := range e.cfg.Symbols {
			i := cursors[sym]
			series := data[sym]
			if i < len(series) && series[i].Timestamp == ts {
				st.histories[sym] = appendTrimmed(st.histories[sym], series[i], e.cfg.OHLCVLimit)
				st.lastPrices[sym] = series[i].Close
				cursors[sym] = i + 1
				updated[sym] = true
			}
		}

		equity := e.markEquity(st)
		st.rm.UpdateDailyEquity(time.UnixMilli(ts).UTC(), equity)

		if ts >= e.cfg.StartMS {
			for _, sym := range e.cfg.Symbols {
				if updated[sym] {
					e.step(st, sym, ts, equity)
				}
			}
			curve = append(curve, EquityPoint{TimestampMS: ts, Equity: e.markEquity(st)})
		}
	}

	// Liquidate whatever is still open at the last seen event time.
	if lastTS >= 0 {
		e.liquidate(st, lastTS)
		final := EquityPoint{TimestampMS: lastTS, Equity: e.markEquity(st)}
		if n := len(curve); n > 0 && curve[n-1].TimestampMS == lastTS {
			curve[n-1] = final
		} else {
			curve = append(curve, final)
		}
	}

	return Result{
		RunID:       runID(e.cfg, data),
		FinalEquity: e.markEquity(st),
		EquityCurve: curve,
		Trades:      st.trades,
	}, nil
}

// runID derives the run identifier from the run's inputs, so replaying
// the same configuration over the same candles reproduces the identifier
// and the rendered report stays byte-identical across runs.
func runID(cfg Config, data map[string][]market.Candle) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%d|%d|%x|%x|%x|%x|%x|%x",
		cfg.Timeframe, cfg.StartMS, cfg.EndMS, cfg.OHLCVLimit,
		cfg.StartingCash, cfg.FeePct,
		cfg.Risk.MaxPositionPct, cfg.Risk.StopLossPct,
		cfg.Risk.TakeProfitPct, cfg.Risk.DailyDrawdownLimitPct)
	for _, sym := range cfg.Symbols {
		fmt.Fprintf(h, "|%s", sym)
		for _, c := range data[sym] {
			_ = binary.Write(h, binary.BigEndian, c.Timestamp)
			_ = binary.Write(h, binary.BigEndian, [5]float64{c.Open, c.High, c.Low, c.Close, c.Volume})
		}
	}
	return hex.EncodeToString(h.Sum(nil)[:13])
}

// nextEventTime returns the smallest unconsumed candle timestamp across
// all symbols.
func (e *Engine) nextEventTime(data map[string][]market.Candle, cursors map[string]int) (int64, bool) {
	var best int64
	found := false
	for _, sym := range e.cfg.Symbols {
		i := cursors[sym]
		series := data[sym]
		if i >= len(series) {
			continue
		}
		if !found || series[i].Timestamp < best {
			best = series[i].Timestamp
			found = true
		}
	}
	return best, found
}

// step runs the stop/take check and, failing that, the signal engine for
// one symbol at one event time. Mirrors the live loop's tick order.
func (e *Engine) step(st *replayState, sym string, ts int64, equity float64) {
	last := st.lastPrices[sym]

	if pos, ok := st.positions[sym]; ok {
		if reason, hit := st.rm.StopTakeReason(pos, last); hit {
			e.close(st, pos, last, ts, reason)
			return
		}
	}

	var posPtr *broker.Position
	if pos, ok := st.positions[sym]; ok {
		posPtr = &pos
	}
	sig := e.engine.Generate(st.histories[sym], posPtr)

	switch sig.Action {
	case strategy.Buy:
		if posPtr != nil || st.rm.Halted() {
			return
		}
		alloc := st.rm.MaxQuoteAllocation(equity, st.paper.Cash)
		if alloc <= 0 {
			return
		}
		fill, err := st.paper.MarketBuy(context.Background(), sym, alloc, last)
		if err != nil {
			return
		}
		st.positions[sym] = st.rm.BuildPosition(sym, fill.Amount, fill.Price, ts, fill.FeeQuote)
	case strategy.Sell:
		if posPtr != nil {
			e.close(st, *posPtr, last, ts, sig.Reason)
		}
	}
}

func (e *Engine) close(st *replayState, pos broker.Position, last float64, ts int64, reason string) {
	fill, err := st.paper.MarketSell(context.Background(), pos.Symbol, pos.Amount, last)
	if err != nil {
		return
	}
	pnl, _ := broker.ClosePnL(pos, pos.Amount, fill)
	delete(st.positions, pos.Symbol)

	st.trades = append(st.trades, ClosedTrade{
		Symbol:      pos.Symbol,
		EntryTimeMS: pos.EntryTimestamp,
		ExitTimeMS:  ts,
		Amount:      fill.Amount,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   fill.Price,
		PnL:         pnl,
		Reason:      reason,
	})
}

// liquidate force-closes all open positions at their carried last price.
func (e *Engine) liquidate(st *replayState, ts int64) {
	for _, sym := range e.cfg.Symbols {
		pos, ok := st.positions[sym]
		if !ok {
			continue
		}
		e.close(st, pos, st.lastPrices[sym], ts, "end-of-backtest")
	}
}

// markEquity values the portfolio at carried last prices, walking symbols
// in configured order so the float sum is reproducible.
func (e *Engine) markEquity(st *replayState) float64 {
	equity := st.paper.Cash
	for _, sym := range e.cfg.Symbols {
		pos, ok := st.positions[sym]
		if !ok {
			continue
		}
		price, ok := st.lastPrices[sym]
		if !ok {
			price = pos.EntryPrice
		}
		equity += pos.Amount * price
	}
	return equity
}

func appendTrimmed(history []market.Candle, c market.Candle, limit int) []market.Candle {
	history = append(history, c)
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history
}
