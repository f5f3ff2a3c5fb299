package broker

import (
	"context"
	"fmt"

	"github.com/rustyeddy/spotbot/exchange"
	"github.com/rustyeddy/spotbot/market"
)

// OrderAPI is the slice of the exchange client the live broker needs.
// *exchange.Binance satisfies it.
type OrderAPI interface {
	MarketBuy(ctx context.Context, symbol string, amount float64) (exchange.OrderReport, error)
	MarketSell(ctx context.Context, symbol string, amount float64) (exchange.OrderReport, error)
}

// Live routes orders to the exchange and normalizes responses into Fills.
type Live struct {
	api OrderAPI

	// feePct is the taker-fee estimate reserved when sizing buys, so a
	// buy of quoteToSpend cannot bounce on insufficient funds once the
	// fee is charged.
	feePct float64
}

// NewLive creates the live backend. feePct mirrors the configured paper
// fee rate and is used only for buy-size fee reservation.
func NewLive(api OrderAPI, feePct float64) *Live {
	return &Live{api: api, feePct: feePct}
}

// MarketBuy converts the quote allocation to a base amount at lastPrice
// (reserving the fee), submits the order and parses the fill.
func (l *Live) MarketBuy(ctx context.Context, symbol string, quoteToSpend, lastPrice float64) (Fill, error) {
	if quoteToSpend <= 0 {
		return Fill{}, fmt.Errorf("live buy %s: quote_to_spend must be > 0", symbol)
	}
	if lastPrice <= 0 {
		return Fill{}, fmt.Errorf("live buy %s: last price must be > 0", symbol)
	}

	baseAmount := quoteToSpend / (1 + l.feePct) / lastPrice
	report, err := l.api.MarketBuy(ctx, symbol, baseAmount)
	if err != nil {
		return Fill{}, err
	}
	return fillFromReport(symbol, report, baseAmount, lastPrice), nil
}

// MarketSell submits a sell of amount base units and parses the fill.
func (l *Live) MarketSell(ctx context.Context, symbol string, amount, lastPrice float64) (Fill, error) {
	if amount <= 0 {
		return Fill{}, fmt.Errorf("live sell %s: amount must be > 0", symbol)
	}
	report, err := l.api.MarketSell(ctx, symbol, amount)
	if err != nil {
		return Fill{}, err
	}
	return fillFromReport(symbol, report, amount, lastPrice), nil
}

// fillFromReport maps an exchange order report onto the uniform Fill.
// Missing filled quantity or average price fall back to the request values;
// fees reported in the base currency are converted to quote at the fill
// price.
func fillFromReport(symbol string, r exchange.OrderReport, fallbackAmount, fallbackPrice float64) Fill {
	fill := Fill{
		Amount:  r.Filled,
		Price:   r.Average,
		OrderID: r.OrderID,
	}
	if fill.Amount <= 0 {
		fill.Amount = fallbackAmount
	}
	if fill.Price <= 0 {
		fill.Price = fallbackPrice
	}

	base, quote, err := market.ParseSymbol(symbol)
	if err != nil {
		return fill
	}
	for _, fee := range r.Fees {
		switch fee.Asset {
		case quote:
			fill.FeeQuote += fee.Amount
		case base:
			fill.FeeQuote += fee.Amount * fill.Price
		}
	}
	return fill
}
