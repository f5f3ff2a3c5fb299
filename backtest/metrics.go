package backtest

import (
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/stat"
)

const secondsPerYear = 31_536_000

// Metrics summarizes one run. ProfitFactor can be +Inf when the run has
// winners and no losers; it is serialized as the string "inf" so the JSON
// stays valid.
type Metrics struct {
	TotalReturnPct float64 `json:"total_return_pct"`
	TradeCount     int     `json:"trade_count"`
	WinRatePct     float64 `json:"win_rate_pct"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	Sharpe         float64 `json:"sharpe"`
	ProfitFactor   float64 `json:"-"`
}

func (m Metrics) MarshalJSON() ([]byte, error) {
	type alias Metrics
	out := struct {
		alias
		ProfitFactor any `json:"profit_factor"`
	}{alias: alias(m)}

	if math.IsInf(m.ProfitFactor, 1) {
		out.ProfitFactor = "inf"
	} else {
		out.ProfitFactor = m.ProfitFactor
	}
	return json.Marshal(out)
}

// ComputeMetrics derives the run summary from the equity curve and the
// closed trades. tfSeconds is the candle timeframe used to annualize the
// Sharpe ratio.
func ComputeMetrics(startingCash float64, curve []EquityPoint, trades []ClosedTrade, tfSeconds int64) Metrics {
	m := Metrics{TradeCount: len(trades)}

	if startingCash > 0 && len(curve) > 0 {
		final := curve[len(curve)-1].Equity
		m.TotalReturnPct = (final/startingCash - 1) * 100
	}

	wins := 0
	grossProfit, grossLoss := 0.0, 0.0
	for _, t := range trades {
		if t.PnL > 0 {
			wins++
			grossProfit += t.PnL
		} else {
			grossLoss += -t.PnL
		}
	}
	if len(trades) > 0 {
		m.WinRatePct = float64(wins) / float64(len(trades)) * 100
	}
	switch {
	case grossLoss > 0:
		m.ProfitFactor = grossProfit / grossLoss
	case grossProfit > 0:
		m.ProfitFactor = math.Inf(1)
	}

	m.MaxDrawdownPct = maxDrawdownPct(curve)
	m.Sharpe = annualizedSharpe(curve, tfSeconds)
	return m
}

// maxDrawdownPct is the largest peak-to-trough equity decline.
func maxDrawdownPct(curve []EquityPoint) float64 {
	peak := math.Inf(-1)
	maxDD := 0.0
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			if dd := (peak - p.Equity) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD * 100
}

// annualizedSharpe computes the Sharpe ratio of per-period equity returns
// (zero risk-free rate), scaled by the square root of periods per year.
func annualizedSharpe(curve []EquityPoint, tfSeconds int64) float64 {
	if len(curve) < 3 || tfSeconds <= 0 {
		return 0
	}

	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev <= 0 {
			return 0
		}
		returns = append(returns, curve[i].Equity/prev-1)
	}

	mean := stat.Mean(returns, nil)
	std := stat.StdDev(returns, nil)
	if std == 0 {
		return 0
	}

	periodsPerYear := float64(secondsPerYear) / float64(tfSeconds)
	return mean / std * math.Sqrt(periodsPerYear)
}
