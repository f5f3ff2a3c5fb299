package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCandleValidate(t *testing.T) {
	t.Parallel()

	good := Candle{Timestamp: 1700000000000, Open: 100, High: 105, Low: 99, Close: 102, Volume: 10}
	assert.NoError(t, good.Validate())

	lowAboveBody := Candle{Timestamp: 1, Open: 100, High: 105, Low: 101, Close: 102, Volume: 10}
	assert.Error(t, lowAboveBody.Validate())

	highBelowBody := Candle{Timestamp: 1, Open: 100, High: 101, Low: 99, Close: 102, Volume: 10}
	assert.Error(t, highBelowBody.Validate())

	negVolume := Candle{Timestamp: 1, Open: 100, High: 105, Low: 99, Close: 102, Volume: -1}
	assert.Error(t, negVolume.Validate())

	// Flat bar is valid.
	flat := Candle{Timestamp: 1, Open: 100, High: 100, Low: 100, Close: 100}
	assert.NoError(t, flat.Validate())
}

func TestCandleTime(t *testing.T) {
	t.Parallel()

	c := Candle{Timestamp: 1700000000000}
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), c.Time())
	assert.Equal(t, time.UTC, c.Time().Location())
}

func TestTimeframeSeconds(t *testing.T) {
	t.Parallel()

	cases := map[string]int64{
		"1m":  60,
		"5m":  300,
		"15m": 900,
		"1h":  3600,
		"4h":  14400,
		"1d":  86400,
		"1w":  604800,
	}
	for tf, want := range cases {
		got, err := TimeframeSeconds(tf)
		assert.NoError(t, err, tf)
		assert.Equal(t, want, got, tf)
	}

	for _, tf := range []string{"", "m", "5", "5x", "m5", "5m5", "-1m", "0m"} {
		_, err := TimeframeSeconds(tf)
		assert.Error(t, err, tf)
	}
}

func TestParseSymbol(t *testing.T) {
	t.Parallel()

	base, quote, err := ParseSymbol("btc/usdt")
	assert.NoError(t, err)
	assert.Equal(t, "BTC", base)
	assert.Equal(t, "USDT", quote)

	for _, s := range []string{"", "BTCUSDT", "/USDT", "BTC/", "/"} {
		_, _, err := ParseSymbol(s)
		assert.Error(t, err, s)
	}

	assert.Equal(t, "BTCUSDT", ExchangeSymbol("BTC/USDT"))
	assert.Equal(t, "ETH", BaseAsset("ETH/USDT"))
	assert.Equal(t, "USDT", QuoteAsset("ETH/USDT"))
}
