// Package journal persists executed trades so runs can be audited after
// the fact. Journals are best-effort from the trading loop's point of
// view: a write failure is logged, never fatal.
package journal

// TradeRecord is one executed order, buy or sell. PnL is only meaningful
// on sells; buys carry zero.
type TradeRecord struct {
	TradeID     string
	TimestampMS int64
	Symbol      string
	Side        string // "buy" or "sell"
	Amount      float64
	Price       float64
	Fee         float64 // quote currency
	PnL         float64 // realized, net of fees; zero on buys
	Reason      string
	Mode        string // "paper", "live", or "backtest"
	OrderID     string // exchange order id, empty for paper fills
}

type Journal interface {
	RecordTrade(TradeRecord) error
	Close() error
}

// Nop discards every record. Used when no sqlite path is configured.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error { return nil }
func (Nop) Close() error                  { return nil }
