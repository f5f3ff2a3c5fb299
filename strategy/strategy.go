// Package strategy turns a candle window into a discrete trading signal.
// The engine is stateless: it never issues orders and never sizes trades,
// it only classifies the window.
package strategy

// Action is the signal verdict.
type Action string

const (
	Buy  Action = "buy"
	Sell Action = "sell"
	Hold Action = "hold"
)

// Signal is the strategy output for one symbol on one tick.
type Signal struct {
	Action Action
	Reason string
}

func hold(reason string) Signal { return Signal{Action: Hold, Reason: reason} }

// Params are the tunables of the RSI+MACD+volume engine.
type Params struct {
	HistoryLimit    int // minimum window length is max(HistoryLimit, 50)
	RSIPeriod       int
	RSIOversold     float64
	RSIOverbought   float64
	MACDFast        int
	MACDSlow        int
	MACDSignal      int
	VolumeMAPeriod  int
	VolumeSpikeMult float64
}
