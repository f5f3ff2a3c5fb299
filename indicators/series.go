// Package indicators provides technical analysis primitives over ordered
// float64 series. All functions are pure and return a slice the same length
// as the input; positions where the indicator is not yet defined hold NaN,
// so callers can gate on math.IsNaN rather than track warmup counts.
package indicators

import "math"

// EMA computes the exponential moving average with alpha = 2/(span+1),
// seeded with the first input value. Every output position is defined.
func EMA(series []float64, span int) []float64 {
	out := make([]float64, len(series))
	if len(series) == 0 || span <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	alpha := 2.0 / float64(span+1)
	out[0] = series[0]
	for i := 1; i < len(series); i++ {
		out[i] = alpha*series[i] + (1-alpha)*out[i-1]
	}
	return out
}

// wilder smooths a delta-derived series with alpha = 1/period.
//
// The input convention follows RSI: xs[0] is undefined (there is no delta at
// the first bar) and xs[1:] hold values. The first defined output is at
// index period and equals the arithmetic mean of xs[1..period]; later
// positions follow the recurrence.
func wilder(xs []float64, period int) []float64 {
	out := make([]float64, len(xs))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(xs) <= period {
		return out
	}

	sum := 0.0
	for i := 1; i <= period; i++ {
		sum += xs[i]
	}
	out[period] = sum / float64(period)

	alpha := 1.0 / float64(period)
	for i := period + 1; i < len(xs); i++ {
		out[i] = alpha*xs[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RSI computes the Relative Strength Index over closes using Wilder
// smoothing. Output positions before index period are NaN. When the average
// loss is zero the RSI is defined as 100.
func RSI(closes []float64, period int) []float64 {
	n := len(closes)
	gains := make([]float64, n)
	losses := make([]float64, n)
	if n > 0 {
		gains[0] = math.NaN()
		losses[0] = math.NaN()
	}
	for i := 1; i < n; i++ {
		delta := closes[i] - closes[i-1]
		gains[i] = math.Max(delta, 0)
		losses[i] = math.Max(-delta, 0)
	}

	avgGain := wilder(gains, period)
	avgLoss := wilder(losses, period)

	out := make([]float64, n)
	for i := range out {
		ag, al := avgGain[i], avgLoss[i]
		switch {
		case math.IsNaN(ag) || math.IsNaN(al):
			out[i] = math.NaN()
		case al == 0:
			out[i] = 100
		default:
			out[i] = 100 - 100/(1+ag/al)
		}
	}
	return out
}

// MACD computes the MACD line (fast EMA - slow EMA), its signal line and
// the histogram (macd - signal). All three outputs are the same length as
// closes and defined from the first position.
func MACD(closes []float64, fast, slow, signal int) (macd, signalLine, hist []float64) {
	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)

	macd = make([]float64, len(closes))
	for i := range macd {
		macd[i] = emaFast[i] - emaSlow[i]
	}

	signalLine = EMA(macd, signal)

	hist = make([]float64, len(closes))
	for i := range hist {
		hist[i] = macd[i] - signalLine[i]
	}
	return macd, signalLine, hist
}

// RollingMean computes the arithmetic mean of the trailing window values.
// Positions before window-1 are NaN.
func RollingMean(series []float64, window int) []float64 {
	out := make([]float64, len(series))
	for i := range out {
		out[i] = math.NaN()
	}
	if window <= 0 || len(series) < window {
		return out
	}

	sum := 0.0
	for i, v := range series {
		sum += v
		if i >= window {
			sum -= series[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}
