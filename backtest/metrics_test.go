package backtest

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeMetricsBasics(t *testing.T) {
	t.Parallel()

	curve := []EquityPoint{
		{TimestampMS: 0, Equity: 10_000},
		{TimestampMS: 300_000, Equity: 10_100},
		{TimestampMS: 600_000, Equity: 9_900},
		{TimestampMS: 900_000, Equity: 10_500},
	}
	trades := []ClosedTrade{
		{PnL: 120},
		{PnL: -40},
		{PnL: 60},
		{PnL: 0}, // flat trades count as losses for win rate
	}

	m := ComputeMetrics(10_000, curve, trades, 300)

	assert.InDelta(t, 5.0, m.TotalReturnPct, 1e-9)
	assert.Equal(t, 4, m.TradeCount)
	assert.InDelta(t, 50.0, m.WinRatePct, 1e-9)
	// Peak 10100 down to 9900.
	assert.InDelta(t, (10_100.0-9_900.0)/10_100.0*100, m.MaxDrawdownPct, 1e-9)
	assert.InDelta(t, 180.0/40.0, m.ProfitFactor, 1e-9)
	assert.NotZero(t, m.Sharpe)
}

func TestComputeMetricsEmptyRun(t *testing.T) {
	t.Parallel()

	m := ComputeMetrics(10_000, nil, nil, 300)
	assert.Zero(t, m.TotalReturnPct)
	assert.Zero(t, m.TradeCount)
	assert.Zero(t, m.WinRatePct)
	assert.Zero(t, m.MaxDrawdownPct)
	assert.Zero(t, m.Sharpe)
	assert.Zero(t, m.ProfitFactor)
}

func TestComputeMetricsFlatCurveHasZeroSharpe(t *testing.T) {
	t.Parallel()

	curve := []EquityPoint{
		{TimestampMS: 0, Equity: 10_000},
		{TimestampMS: 300_000, Equity: 10_000},
		{TimestampMS: 600_000, Equity: 10_000},
	}
	m := ComputeMetrics(10_000, curve, nil, 300)
	assert.Zero(t, m.Sharpe)
	assert.Zero(t, m.MaxDrawdownPct)
}

func TestProfitFactorInfSerializesAsString(t *testing.T) {
	t.Parallel()

	trades := []ClosedTrade{{PnL: 10}, {PnL: 5}}
	m := ComputeMetrics(10_000, nil, trades, 300)
	require.True(t, math.IsInf(m.ProfitFactor, 1))

	raw, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "inf", decoded["profit_factor"])
	assert.InDelta(t, 100.0, decoded["win_rate_pct"].(float64), 1e-9)
}

func TestReportJSONRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.StartMS = 0
	cfg.EndMS = 900_000
	res := Result{
		RunID:       "01HTESTRUN0000000000000000",
		FinalEquity: 10_050,
		EquityCurve: []EquityPoint{
			{TimestampMS: 0, Equity: 10_000},
			{TimestampMS: 300_000, Equity: 10_050},
		},
	}

	report := BuildReport(cfg, res)
	assert.Equal(t, "1970-01-01T00:00:00Z", report.StartUTC)
	assert.Equal(t, res.RunID, report.RunID)
	assert.NotNil(t, report.Trades)

	raw, err := report.JSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, res.RunID, decoded["run_id"])
	assert.Equal(t, "5m", decoded["timeframe"])

	// No trades: closed_trades must be an empty array, not null.
	trades, ok := decoded["closed_trades"].([]any)
	require.True(t, ok)
	assert.Empty(t, trades)
}
