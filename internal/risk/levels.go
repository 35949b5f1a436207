package risk

import (
	"smc-signal-engine/internal/analysis"
	"smc-signal-engine/internal/market"
)

// recentExtremeWindow is how many trailing bars anchor the structural
// stop.
const recentExtremeWindow = 10

// Levels holds the computed trade levels for a signal. Targets sit at
// increasing risk multiples R, R+1 and R+2.
type Levels struct {
	Entry           float64 `json:"entry"`
	StopLoss        float64 `json:"stopLoss"`
	Target1         float64 `json:"target1"`
	Target2         float64 `json:"target2"`
	Target3         float64 `json:"target3"`
	RiskRewardRatio float64 `json:"riskRewardRatio"`
	ATR             float64 `json:"atr"`
}

// CalculateLevels derives entry, stop and targets for a signal on the
// given instrument. Entry is the newest bar's close (market order
// assumption). The stop anchors to the recent structural extreme with a
// half-ATR buffer, but never sits closer than 1.5 ATR from entry. All
// prices are rounded to the instrument's quoting precision.
func CalculateLevels(symbol string, direction market.Direction, bars []market.Bar, rr float64) Levels {
	entry := bars[len(bars)-1].Close
	atr := analysis.CalculateATR(bars, analysis.ATRPeriod)

	recent := bars
	if len(recent) > recentExtremeWindow {
		recent = recent[len(recent)-recentExtremeWindow:]
	}

	var stop float64
	if direction == market.DirectionBuy {
		low := recent[0].Low
		for _, b := range recent[1:] {
			if b.Low < low {
				low = b.Low
			}
		}
		stop = min(low-atr*0.5, entry-atr*1.5)
	} else {
		high := recent[0].High
		for _, b := range recent[1:] {
			if b.High > high {
				high = b.High
			}
		}
		stop = max(high+atr*0.5, entry+atr*1.5)
	}

	t1, t2, t3 := Targets(direction, entry, stop, rr)

	return Levels{
		Entry:           market.RoundPrice(symbol, entry),
		StopLoss:        market.RoundPrice(symbol, stop),
		Target1:         market.RoundPrice(symbol, t1),
		Target2:         market.RoundPrice(symbol, t2),
		Target3:         market.RoundPrice(symbol, t3),
		RiskRewardRatio: rr,
		ATR:             atr,
	}
}

// Targets computes the three take-profit levels from an entry/stop pair
// at risk multiples rr, rr+1 and rr+2.
func Targets(direction market.Direction, entry, stop, rr float64) (t1, t2, t3 float64) {
	risk := entry - stop
	if direction == market.DirectionSell {
		risk = stop - entry
	}

	if direction == market.DirectionBuy {
		return entry + risk*rr, entry + risk*(rr+1), entry + risk*(rr+2)
	}
	return entry - risk*rr, entry - risk*(rr+1), entry - risk*(rr+2)
}
