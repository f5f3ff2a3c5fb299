package strategy

import (
	"fmt"
	"math"

	"github.com/rustyeddy/spotbot/broker"
	"github.com/rustyeddy/spotbot/indicators"
	"github.com/rustyeddy/spotbot/market"
)

// RSIMACDVolume is a mean-reversion entry engine: RSI picks oversold /
// overbought extremes, a MACD histogram zero-cross confirms the turn, and
// a volume spike validates participation.
type RSIMACDVolume struct {
	Params Params
}

// New builds the engine from its parameters.
func New(p Params) *RSIMACDVolume {
	return &RSIMACDVolume{Params: p}
}

// minWindow is the shortest candle window the engine will evaluate.
func (s *RSIMACDVolume) minWindow() int {
	if s.Params.HistoryLimit > 50 {
		return s.Params.HistoryLimit
	}
	return 50
}

// Generate classifies a chronologically ordered candle window. position is
// the currently open position for the same symbol, or nil.
func (s *RSIMACDVolume) Generate(candles []market.Candle, position *broker.Position) Signal {
	if len(candles) < s.minWindow() {
		return hold("insufficient candle history")
	}

	closes := market.Closes(candles)
	volumes := market.Volumes(candles)

	rsi := indicators.RSI(closes, s.Params.RSIPeriod)
	_, _, hist := indicators.MACD(closes, s.Params.MACDFast, s.Params.MACDSlow, s.Params.MACDSignal)
	volMA := indicators.RollingMean(volumes, s.Params.VolumeMAPeriod)

	n := len(candles)
	rsiCurr := rsi[n-1]
	histPrev := hist[n-2]
	histCurr := hist[n-1]
	volCurr := volumes[n-1]
	volMACurr := volMA[n-1]

	if math.IsNaN(rsiCurr) || math.IsNaN(histPrev) || math.IsNaN(histCurr) || math.IsNaN(volMACurr) {
		return hold("indicators not ready")
	}

	bullishCross := histPrev <= 0 && histCurr > 0
	bearishCross := histPrev >= 0 && histCurr < 0
	volSpike := volCurr > volMACurr*s.Params.VolumeSpikeMult

	if position == nil {
		if rsiCurr <= s.Params.RSIOversold && bullishCross && volSpike {
			return Signal{
				Action: Buy,
				Reason: fmt.Sprintf("RSI %.1f<=oversold %g, MACD bullish, volume spike", rsiCurr, s.Params.RSIOversold),
			}
		}
		return hold("no entry")
	}

	if rsiCurr >= s.Params.RSIOverbought && bearishCross && volSpike {
		return Signal{
			Action: Sell,
			Reason: fmt.Sprintf("RSI %.1f>=overbought %g, MACD bearish, volume spike", rsiCurr, s.Params.RSIOverbought),
		}
	}
	return hold("hold position")
}
