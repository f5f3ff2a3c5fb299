package broker

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// PaperBuy simulates a market buy against cash. quoteToSpend is clamped to
// the available cash, then reduced further so the fee is fully covered:
// spend*(1+feePct) <= cash. Returns the post-trade cash, the base amount
// bought, and the quote fee paid.
func PaperBuy(cash, quoteToSpend, price, feePct float64) (newCash, amount, fee float64, err error) {
	if quoteToSpend > cash {
		quoteToSpend = cash
	}
	if quoteToSpend <= 0 {
		return cash, 0, 0, fmt.Errorf("paper buy: quote_to_spend must be > 0")
	}
	if price <= 0 {
		return cash, 0, 0, fmt.Errorf("paper buy: price must be > 0, got %.10f", price)
	}

	// Reserve the fee inside the available cash.
	if maxSpend := cash / (1 + feePct); quoteToSpend > maxSpend {
		quoteToSpend = maxSpend
	}

	amount = quoteToSpend / price
	fee = quoteToSpend * feePct
	newCash = cash - quoteToSpend - fee
	return newCash, amount, fee, nil
}

// PaperSell simulates a market sell: gross = amount*price, fee = gross*feePct,
// and the net proceeds are credited to cash.
func PaperSell(cash, amount, price, feePct float64) (newCash, fee float64) {
	gross := amount * price
	fee = gross * feePct
	return cash + gross - fee, fee
}

// Paper is the simulated execution backend. It owns the paper cash balance;
// the cash invariant (never negative after a fill) follows from the
// PaperBuy fee reservation.
type Paper struct {
	Cash   float64
	FeePct float64
}

// NewPaper creates a paper broker with the given starting cash and fee rate.
func NewPaper(startingCash, feePct float64) *Paper {
	return &Paper{Cash: startingCash, FeePct: feePct}
}

// MarketBuy fills at lastPrice with no slippage. Paper fills carry no
// order ID.
func (p *Paper) MarketBuy(ctx context.Context, symbol string, quoteToSpend, lastPrice float64) (Fill, error) {
	newCash, amount, fee, err := PaperBuy(p.Cash, quoteToSpend, lastPrice, p.FeePct)
	if err != nil {
		return Fill{}, err
	}
	p.Cash = newCash

	log.Debug().Str("symbol", symbol).Float64("amount", amount).
		Float64("price", lastPrice).Float64("fee", fee).Float64("cash", p.Cash).
		Msg("paper buy")

	return Fill{Amount: amount, Price: lastPrice, FeeQuote: fee}, nil
}

// MarketSell fills at lastPrice with no slippage.
func (p *Paper) MarketSell(ctx context.Context, symbol string, amount, lastPrice float64) (Fill, error) {
	if amount <= 0 {
		return Fill{}, fmt.Errorf("paper sell: amount must be > 0, got %.10f", amount)
	}
	newCash, fee := PaperSell(p.Cash, amount, lastPrice, p.FeePct)
	p.Cash = newCash

	log.Debug().Str("symbol", symbol).Float64("amount", amount).
		Float64("price", lastPrice).Float64("fee", fee).Float64("cash", p.Cash).
		Msg("paper sell")

	return Fill{Amount: amount, Price: lastPrice, FeeQuote: fee}, nil
}
