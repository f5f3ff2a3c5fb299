package backtest

import (
	"encoding/json"
	"time"

	"github.com/rustyeddy/spotbot/market"
)

// Report is the JSON artifact of one backtest run.
type Report struct {
	RunID        string        `json:"run_id"`
	Symbols      []string      `json:"symbols"`
	Timeframe    string        `json:"timeframe"`
	StartUTC     string        `json:"start_utc"`
	EndUTC       string        `json:"end_utc"`
	StartingCash float64       `json:"starting_cash"`
	FinalEquity  float64       `json:"final_equity"`
	Metrics      Metrics       `json:"metrics"`
	Trades       []ClosedTrade `json:"closed_trades"`
}

// BuildReport assembles the report from a run's config and result.
func BuildReport(cfg Config, res Result) Report {
	tfSeconds, err := market.TimeframeSeconds(cfg.Timeframe)
	if err != nil {
		tfSeconds = 0
	}

	trades := res.Trades
	if trades == nil {
		trades = []ClosedTrade{}
	}

	return Report{
		RunID:        res.RunID,
		Symbols:      cfg.Symbols,
		Timeframe:    cfg.Timeframe,
		StartUTC:     time.UnixMilli(cfg.StartMS).UTC().Format(time.RFC3339),
		EndUTC:       time.UnixMilli(cfg.EndMS).UTC().Format(time.RFC3339),
		StartingCash: cfg.StartingCash,
		FinalEquity:  res.FinalEquity,
		Metrics:      ComputeMetrics(cfg.StartingCash, res.EquityCurve, trades, tfSeconds),
		Trades:       trades,
	}
}

// JSON renders the report indented for files and stdout.
func (r Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
