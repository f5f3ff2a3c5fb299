package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEMASeedAndRecurrence(t *testing.T) {
	t.Parallel()

	// span 3 => alpha 0.5
	out := EMA([]float64{1, 2, 3}, 3)
	assert.Equal(t, 3, len(out))
	assert.InDelta(t, 1.0, out[0], 1e-12)
	assert.InDelta(t, 1.5, out[1], 1e-12)
	assert.InDelta(t, 2.25, out[2], 1e-12)
}

func TestEMAEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, EMA(nil, 5))
}

func TestRSIWarmup(t *testing.T) {
	t.Parallel()

	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(100 + i)
	}
	out := RSI(closes, 14)

	for i := 0; i < 14; i++ {
		assert.True(t, math.IsNaN(out[i]), "index %d should be NaN", i)
	}
	// Only gains: avg loss is zero, RSI defined as 100.
	for i := 14; i < 20; i++ {
		assert.Equal(t, 100.0, out[i], "index %d", i)
	}
}

func TestRSIAllLosses(t *testing.T) {
	t.Parallel()

	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(100 - i)
	}
	out := RSI(closes, 14)
	for i := 14; i < 20; i++ {
		assert.InDelta(t, 0.0, out[i], 1e-12)
	}
}

func TestRSIDeclineThenBounce(t *testing.T) {
	t.Parallel()

	// 19 bars falling by exactly 1, then a +5 bounce. The Wilder averages
	// converge exactly (all losses equal), so the final value is closed form:
	// avg_gain = 5/14, avg_loss = 13/14, RSI = 100 - 100/(1+5/13).
	closes := make([]float64, 20)
	for i := 0; i < 19; i++ {
		closes[i] = float64(100 - i)
	}
	closes[19] = closes[18] + 5

	out := RSI(closes, 14)
	assert.InDelta(t, 100-100/(1+5.0/13.0), out[19], 1e-9)
	assert.InDelta(t, 27.7777777778, out[19], 1e-6)
}

func TestRSITooShort(t *testing.T) {
	t.Parallel()

	out := RSI([]float64{1, 2, 3}, 14)
	for _, v := range out {
		assert.True(t, math.IsNaN(v))
	}
}

func TestMACDFlatSeries(t *testing.T) {
	t.Parallel()

	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}
	macd, signal, hist := MACD(closes, 12, 26, 9)
	for i := range closes {
		assert.InDelta(t, 0.0, macd[i], 1e-12)
		assert.InDelta(t, 0.0, signal[i], 1e-12)
		assert.InDelta(t, 0.0, hist[i], 1e-12)
	}
}

func TestMACDTrendSign(t *testing.T) {
	t.Parallel()

	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	macd, _, hist := MACD(closes, 12, 26, 9)

	// In a sustained uptrend the fast EMA sits above the slow EMA.
	assert.Greater(t, macd[len(macd)-1], 0.0)
	// The histogram settles positive long before the end.
	assert.Greater(t, hist[40], 0.0)
}

func TestRollingMean(t *testing.T) {
	t.Parallel()

	out := RollingMean([]float64{1, 2, 3, 4}, 2)
	assert.True(t, math.IsNaN(out[0]))
	assert.InDelta(t, 1.5, out[1], 1e-12)
	assert.InDelta(t, 2.5, out[2], 1e-12)
	assert.InDelta(t, 3.5, out[3], 1e-12)
}

func TestRollingMeanWindowLargerThanSeries(t *testing.T) {
	t.Parallel()

	out := RollingMean([]float64{1, 2}, 5)
	for _, v := range out {
		assert.True(t, math.IsNaN(v))
	}
}
