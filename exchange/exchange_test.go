package exchange

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryRecoversFromTransientErrors(t *testing.T) {
	t.Parallel()

	calls := 0
	v, err := retry(context.Background(), "op", func() (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("connection reset")
		}
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 2, calls)
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := retry(context.Background(), "op", func() (int, error) {
		calls++
		return 0, errors.New("timeout")
	})
	require.Error(t, err)
	assert.Equal(t, maxAttempts, calls)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestRetryExchangeErrorIsPermanent(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := retry(context.Background(), "create_order", func() (int, error) {
		calls++
		return 0, &common.APIError{Code: -2010, Message: "insufficient balance"}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "exchange business errors must not be retried")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.EqualValues(t, -2010, apiErr.Code)
	assert.Equal(t, "create_order", apiErr.Op)
}

func TestRetryHonorsContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := retry(ctx, "op", func() (int, error) {
		return 0, errors.New("down")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), initialDelay, "must not sleep after cancellation")
}

func TestRestrictedLocation(t *testing.T) {
	t.Parallel()

	assert.False(t, RestrictedLocation(nil))
	assert.False(t, RestrictedLocation(errors.New("timeout")))
	assert.True(t, RestrictedLocation(fmt.Errorf("<APIError> code=0, msg=Service unavailable from a restricted location")))
	assert.True(t, RestrictedLocation(errors.New("status code 451")))
}

func TestKlinesToCandlesSkipsBadRows(t *testing.T) {
	t.Parallel()

	rows := []*binance.Kline{
		{OpenTime: 0, Open: "100", High: "101", Low: "99", Close: "100.5", Volume: "12.5"},
		{OpenTime: 300_000, Open: "bad", High: "1", Low: "1", Close: "1", Volume: "1"},
		{OpenTime: 600_000, Open: "101", High: "102", Low: "100", Close: "101.5", Volume: "8"},
	}
	candles := klinesToCandles(rows)

	require.Len(t, candles, 2)
	assert.EqualValues(t, 0, candles[0].Timestamp)
	assert.InDelta(t, 100.5, candles[0].Close, 1e-9)
	assert.EqualValues(t, 600_000, candles[1].Timestamp)
	assert.InDelta(t, 8.0, candles[1].Volume, 1e-9)
}

func TestAmountToPrecision(t *testing.T) {
	t.Parallel()

	b := &Binance{stepSizes: map[string]float64{"BTCUSDT": 0.001}}
	assert.InDelta(t, 0.123, b.AmountToPrecision("BTC/USDT", 0.12345), 1e-12)
	// Unknown symbols pass through.
	assert.InDelta(t, 0.12345, b.AmountToPrecision("ETH/USDT", 0.12345), 1e-12)
}
