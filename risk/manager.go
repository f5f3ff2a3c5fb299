// Package risk enforces portfolio-level governance: per-position sizing,
// stop-loss/take-profit levels, and a daily-drawdown kill-switch.
package risk

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/spotbot/broker"
)

// Exit reasons returned by StopTakeReason.
const (
	ReasonStopLoss   = "stop-loss"
	ReasonTakeProfit = "take-profit"
)

// Config holds the risk tunables. All percentages are fractions (0.05 = 5%).
type Config struct {
	MaxPositionPct        float64
	StopLossPct           float64
	TakeProfitPct         float64
	DailyDrawdownLimitPct float64
}

// Manager tracks daily equity and applies the risk rules. It is owned by a
// single loop; no locking.
type Manager struct {
	cfg Config

	day           time.Time // UTC midnight of the tracked day; zero before first update
	dayOpenEquity float64
	halted        bool
}

// NewManager creates a manager with no day state; the first
// UpdateDailyEquity call establishes the baseline.
func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// Halted reports whether new entries are blocked for the rest of the UTC
// day. Exits (signals, stops, takes) are never blocked.
func (m *Manager) Halted() bool { return m.halted }

// UpdateDailyEquity rolls the daily baseline on UTC date changes and trips
// the kill-switch once equity falls to or below
// day_open_equity * (1 - limit). The halt latches until the next UTC day.
func (m *Manager) UpdateDailyEquity(now time.Time, equity float64) {
	day := now.UTC().Truncate(24 * time.Hour)
	if !day.Equal(m.day) {
		m.day = day
		m.dayOpenEquity = equity
		m.halted = false
		log.Info().Time("day", day).Float64("equity", equity).Msg("new UTC day, equity baseline reset")
		return
	}

	limit := m.cfg.DailyDrawdownLimitPct
	if limit <= 0 || m.dayOpenEquity <= 0 {
		return
	}
	if equity <= m.dayOpenEquity*(1-limit) {
		if !m.halted {
			dd := 1 - equity/m.dayOpenEquity
			log.Warn().Float64("drawdown_pct", dd*100).Float64("equity", equity).
				Msg("daily drawdown limit hit, halting new entries")
		}
		m.halted = true
	}
}

// MaxQuoteAllocation returns the quote amount available for a new
// position: equity * MaxPositionPct, clamped to freeQuote. Pass a negative
// freeQuote to skip the clamp. Never negative.
func (m *Manager) MaxQuoteAllocation(equity, freeQuote float64) float64 {
	alloc := equity * m.cfg.MaxPositionPct
	if freeQuote >= 0 && alloc > freeQuote {
		alloc = freeQuote
	}
	if alloc < 0 {
		return 0
	}
	return alloc
}

// BuildPosition attaches stop-loss and take-profit levels to a new fill:
// stop = entry*(1-StopLossPct), take = entry*(1+TakeProfitPct).
func (m *Manager) BuildPosition(symbol string, amount, entryPrice float64, entryTimestamp int64, entryFee float64) broker.Position {
	return broker.Position{
		Symbol:         symbol,
		Amount:         amount,
		EntryPrice:     entryPrice,
		EntryTimestamp: entryTimestamp,
		StopLoss:       entryPrice * (1 - m.cfg.StopLossPct),
		TakeProfit:     entryPrice * (1 + m.cfg.TakeProfitPct),
		EntryFee:       entryFee,
	}
}

// StopTakeReason returns the exit reason if lastPrice breaches the
// position's stop or take level. Stop-loss wins when both would trigger on
// the same tick.
func (m *Manager) StopTakeReason(pos broker.Position, lastPrice float64) (string, bool) {
	if lastPrice <= pos.StopLoss {
		return ReasonStopLoss, true
	}
	if lastPrice >= pos.TakeProfit {
		return ReasonTakeProfit, true
	}
	return "", false
}
