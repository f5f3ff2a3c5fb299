package broker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/spotbot/exchange"
)

type fakeOrderAPI struct {
	report  exchange.OrderReport
	err     error
	lastOp  string
	lastAmt float64
}

func (f *fakeOrderAPI) MarketBuy(ctx context.Context, symbol string, amount float64) (exchange.OrderReport, error) {
	f.lastOp, f.lastAmt = "buy", amount
	return f.report, f.err
}

func (f *fakeOrderAPI) MarketSell(ctx context.Context, symbol string, amount float64) (exchange.OrderReport, error) {
	f.lastOp, f.lastAmt = "sell", amount
	return f.report, f.err
}

func TestLiveBuyReservesFeeWhenSizing(t *testing.T) {
	t.Parallel()

	api := &fakeOrderAPI{report: exchange.OrderReport{Filled: 9.9, Average: 100.5, OrderID: "42"}}
	live := NewLive(api, 0.001)

	fill, err := live.MarketBuy(context.Background(), "BTC/USDT", 1_000, 100)
	require.NoError(t, err)

	// Requested base amount divides out the fee: 1000/1.001/100.
	assert.Equal(t, "buy", api.lastOp)
	assert.InDelta(t, 1_000/1.001/100, api.lastAmt, 1e-9)

	assert.InDelta(t, 9.9, fill.Amount, 1e-12)
	assert.InDelta(t, 100.5, fill.Price, 1e-12)
	assert.Equal(t, "42", fill.OrderID)
}

func TestLiveBuyRejectsNonPositive(t *testing.T) {
	t.Parallel()

	live := NewLive(&fakeOrderAPI{}, 0.001)
	_, err := live.MarketBuy(context.Background(), "BTC/USDT", 0, 100)
	assert.Error(t, err)
	_, err = live.MarketSell(context.Background(), "BTC/USDT", 0, 100)
	assert.Error(t, err)
}

func TestLivePropagatesExchangeError(t *testing.T) {
	t.Parallel()

	wantErr := &exchange.APIError{Op: "market_buy", Code: -2010, Message: "insufficient balance"}
	live := NewLive(&fakeOrderAPI{err: wantErr}, 0.001)

	_, err := live.MarketBuy(context.Background(), "BTC/USDT", 100, 50)
	require.Error(t, err)

	var apiErr *exchange.APIError
	assert.True(t, errors.As(err, &apiErr))
}

func TestFillFromReportFallbacks(t *testing.T) {
	t.Parallel()

	// Exchange reported nothing usable: fall back to request amount and
	// last price.
	fill := fillFromReport("BTC/USDT", exchange.OrderReport{}, 2.5, 101)
	assert.InDelta(t, 2.5, fill.Amount, 1e-12)
	assert.InDelta(t, 101.0, fill.Price, 1e-12)
	assert.Zero(t, fill.FeeQuote)
}

func TestFillFromReportQuoteFees(t *testing.T) {
	t.Parallel()

	report := exchange.OrderReport{
		Filled:  1,
		Average: 100,
		Fees: []exchange.FeeEntry{
			{Asset: "USDT", Amount: 0.05},
			{Asset: "USDT", Amount: 0.03},
			{Asset: "BNB", Amount: 1},  // unrelated asset ignored
		},
	}
	fill := fillFromReport("BTC/USDT", report, 1, 100)
	assert.InDelta(t, 0.08, fill.FeeQuote, 1e-12)
}

func TestFillFromReportConvertsBaseFee(t *testing.T) {
	t.Parallel()

	report := exchange.OrderReport{
		Filled:  2,
		Average: 50,
		Fees:    []exchange.FeeEntry{{Asset: "ETH", Amount: 0.002}},
	}
	fill := fillFromReport("ETH/USDT", report, 2, 50)
	// Base fee converted at the fill price: 0.002 * 50.
	assert.InDelta(t, 0.1, fill.FeeQuote, 1e-12)
}
