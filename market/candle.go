// Package market holds the small value types shared by every layer:
// OHLCV candles, the timeframe grammar, and the BASE/QUOTE symbol grammar.
package market

import (
	"fmt"
	"time"
)

// Candle is a single OHLCV bar. Timestamp is the bar open time in
// milliseconds since the Unix epoch, UTC. Candles are treated as immutable
// once constructed.
type Candle struct {
	Timestamp int64   `json:"timestamp_ms"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Time returns the bar open time as a UTC time.Time.
func (c Candle) Time() time.Time {
	return time.UnixMilli(c.Timestamp).UTC()
}

// Validate checks the OHLCV invariant:
// Low <= min(Open, Close) <= max(Open, Close) <= High, Volume >= 0.
func (c Candle) Validate() error {
	lo, hi := c.Open, c.Close
	if lo > hi {
		lo, hi = hi, lo
	}
	if c.Low > lo {
		return fmt.Errorf("candle %d: low %.8f above min(open, close) %.8f", c.Timestamp, c.Low, lo)
	}
	if c.High < hi {
		return fmt.Errorf("candle %d: high %.8f below max(open, close) %.8f", c.Timestamp, c.High, hi)
	}
	if c.Volume < 0 {
		return fmt.Errorf("candle %d: negative volume %.8f", c.Timestamp, c.Volume)
	}
	return nil
}

// Closes extracts the close series from a candle window.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Volumes extracts the volume series from a candle window.
func Volumes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Volume
	}
	return out
}
