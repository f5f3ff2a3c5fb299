// Package broker defines the uniform execution contract shared by the
// trading loop and the backtester: every order, simulated or real,
// produces a Fill. Two backends implement it: Paper (in-memory cash) and
// Live (Binance spot).
package broker

import "context"

// Fill is the result of one executed market order. FeeQuote is always
// denominated in the symbol's quote currency; fees the exchange reports in
// base currency are converted at the fill price before they land here.
type Fill struct {
	Amount   float64
	Price    float64
	FeeQuote float64
	OrderID  string
}

// Broker executes market orders. MarketBuy sizes the order from a quote
// amount; MarketSell closes a base amount. lastPrice is the most recent
// close, used for sizing and as a fallback when the venue does not report
// an average fill price.
type Broker interface {
	MarketBuy(ctx context.Context, symbol string, quoteToSpend, lastPrice float64) (Fill, error)
	MarketSell(ctx context.Context, symbol string, amount, lastPrice float64) (Fill, error)
}
