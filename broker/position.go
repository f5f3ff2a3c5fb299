package broker

import "fmt"

// Position is one open long-only spot holding. At most one position exists
// per symbol; the trading loop and backtester both enforce this by keying
// positions on symbol.
type Position struct {
	Symbol         string
	Amount         float64
	EntryPrice     float64
	EntryTimestamp int64 // ms since epoch, UTC
	StopLoss       float64
	TakeProfit     float64
	EntryFee       float64 // cumulative entry fee in quote currency
}

// Validate enforces the position invariants.
func (p Position) Validate() error {
	if p.Amount <= 0 {
		return fmt.Errorf("position %s: amount must be > 0, got %.10f", p.Symbol, p.Amount)
	}
	if p.EntryPrice <= 0 {
		return fmt.Errorf("position %s: entry price must be > 0, got %.10f", p.Symbol, p.EntryPrice)
	}
	if p.StopLoss >= p.EntryPrice {
		return fmt.Errorf("position %s: stop %.10f must be below entry %.10f", p.Symbol, p.StopLoss, p.EntryPrice)
	}
	if p.TakeProfit <= p.EntryPrice {
		return fmt.Errorf("position %s: take %.10f must be above entry %.10f", p.Symbol, p.TakeProfit, p.EntryPrice)
	}
	return nil
}

// ClosePnL computes the realized P&L for closing soldAmount of p with the
// given fill. The entry fee is allocated pro-rata to the sold amount:
//
//	feeAlloc = EntryFee * soldAmount/Amount
//	pnl      = (fill.Price - EntryPrice) * soldAmount - feeAlloc - fill.FeeQuote
func ClosePnL(p Position, soldAmount float64, fill Fill) (pnl, feeAlloc float64) {
	if p.Amount > 0 {
		feeAlloc = p.EntryFee * (soldAmount / p.Amount)
	}
	pnl = (fill.Price-p.EntryPrice)*soldAmount - feeAlloc - fill.FeeQuote
	return pnl, feeAlloc
}

// Reduce returns the position remaining after a partial close. The caller
// passes the feeAlloc obtained from ClosePnL so that amount and entry fee
// shrink consistently.
func (p Position) Reduce(soldAmount, feeAlloc float64) Position {
	p.Amount -= soldAmount
	p.EntryFee -= feeAlloc
	return p
}
