package market

// Bar represents a single OHLCV price candle. Timestamps are unix
// milliseconds. A Bar is immutable once produced.
type Bar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Bullish reports whether the bar closed above its open.
func (b Bar) Bullish() bool {
	return b.Close > b.Open
}

// Bearish reports whether the bar closed below its open.
func (b Bar) Bearish() bool {
	return b.Close < b.Open
}

// Range returns the full high-to-low extent of the bar.
func (b Bar) Range() float64 {
	return b.High - b.Low
}

// Direction indicates the side of a trade signal.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// Bias represents the directional bias of a market structure.
type Bias int

const (
	BiasNeutral Bias = 0
	BiasBullish Bias = 1
	BiasBearish Bias = -1
)

func (b Bias) String() string {
	switch b {
	case BiasBullish:
		return "bullish"
	case BiasBearish:
		return "bearish"
	default:
		return "neutral"
	}
}
