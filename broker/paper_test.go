package broker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaperBuyBasic(t *testing.T) {
	t.Parallel()

	// Plenty of cash: the fee reservation does not bind.
	newCash, amount, fee, err := PaperBuy(10_000, 1_000, 100, 0.001)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, amount, 1e-9)
	assert.InDelta(t, 1.0, fee, 1e-9)
	assert.InDelta(t, 8_999.0, newCash, 1e-9)
}

func TestPaperBuyFeeReservation(t *testing.T) {
	t.Parallel()

	// Cash equals the target spend: spend shrinks to cash/(1+fee) so that
	// spend + fee never exceeds cash.
	newCash, amount, fee, err := PaperBuy(1_000, 1_000, 100, 0.001)
	require.NoError(t, err)

	spend := 1_000.0 / 1.001
	assert.InDelta(t, spend/100, amount, 1e-9)     // ~9.99001
	assert.InDelta(t, spend*0.001, fee, 1e-9)      // ~0.999001
	assert.InDelta(t, 1_000-spend-fee, newCash, 1e-9)
	assert.GreaterOrEqual(t, newCash, 0.0)
}

func TestPaperBuyRejectsNonPositiveSpend(t *testing.T) {
	t.Parallel()

	_, _, _, err := PaperBuy(1_000, 0, 100, 0.001)
	assert.Error(t, err)

	_, _, _, err = PaperBuy(1_000, -5, 100, 0.001)
	assert.Error(t, err)

	// Zero cash clamps the spend to zero, which is also a rejection.
	_, _, _, err = PaperBuy(0, 100, 100, 0.001)
	assert.Error(t, err)
}

func TestPaperSell(t *testing.T) {
	t.Parallel()

	newCash, fee := PaperSell(100, 10, 110, 0.001)
	assert.InDelta(t, 1.1, fee, 1e-9)
	assert.InDelta(t, 100+1100-1.1, newCash, 1e-9)
}

// Round trip at equal entry/exit price loses exactly the two fees:
// final cash = cash - 2*q*f.
func TestPaperRoundTripFeeLaw(t *testing.T) {
	t.Parallel()

	cash, q, p, f := 10_000.0, 1_000.0, 100.0, 0.001

	afterBuy, amount, _, err := PaperBuy(cash, q, p, f)
	require.NoError(t, err)

	final, _ := PaperSell(afterBuy, amount, p, f)
	assert.InDelta(t, cash-2*q*f, final, 1e-9)
}

// Full scenario: buy 1000 quote at 100, sell everything at 110.
func TestPaperRoundTripScenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	paper := NewPaper(10_000, 0.001)

	buy, err := paper.MarketBuy(ctx, "BTC/USDT", 1_000, 100)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, buy.Amount, 1e-9)
	assert.InDelta(t, 1.0, buy.FeeQuote, 1e-9)

	pos := Position{
		Symbol: "BTC/USDT", Amount: buy.Amount, EntryPrice: buy.Price,
		StopLoss: 97, TakeProfit: 105, EntryFee: buy.FeeQuote,
	}

	sell, err := paper.MarketSell(ctx, "BTC/USDT", pos.Amount, 110)
	require.NoError(t, err)
	assert.InDelta(t, 1.1, sell.FeeQuote, 1e-9)

	pnl, feeAlloc := ClosePnL(pos, pos.Amount, sell)
	assert.InDelta(t, 1.0, feeAlloc, 1e-9)
	assert.InDelta(t, (110-100)*10.0-1.0-1.1, pnl, 1e-9) // 97.9
	assert.InDelta(t, 10_097.9, paper.Cash, 1e-6)
	assert.GreaterOrEqual(t, paper.Cash, 0.0)
}

func TestPaperCashNeverNegative(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	paper := NewPaper(50, 0.01)

	// Ask to spend far more than available.
	fill, err := paper.MarketBuy(ctx, "ETH/USDT", 10_000, 25)
	require.NoError(t, err)
	assert.Greater(t, fill.Amount, 0.0)
	assert.GreaterOrEqual(t, paper.Cash, 0.0)
}
