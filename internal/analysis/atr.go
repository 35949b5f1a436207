package analysis

import (
	"math"

	"smc-signal-engine/internal/market"
)

// ATRPeriod is the standard average true range window.
const ATRPeriod = 14

// CalculateATR returns the simple moving average of the last period true
// ranges. With fewer than period+1 bars it falls back to a fraction of
// the last close so stop sizing still has a volatility estimate.
func CalculateATR(bars []market.Bar, period int) float64 {
	if len(bars) < period+1 {
		if len(bars) > 0 {
			return bars[len(bars)-1].Close * 0.001
		}
		return 0.01
	}

	trueRanges := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		cur, prev := bars[i], bars[i-1]
		tr := max(cur.High-cur.Low,
			max(math.Abs(cur.High-prev.Close), math.Abs(cur.Low-prev.Close)))
		trueRanges = append(trueRanges, tr)
	}

	recent := trueRanges
	if len(recent) > period {
		recent = recent[len(recent)-period:]
	}
	sum := 0.0
	for _, tr := range recent {
		sum += tr
	}
	return sum / float64(len(recent))
}
