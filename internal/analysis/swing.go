package analysis

import "smc-signal-engine/internal/market"

// SwingPoint reports whether the bar sitting lookback bars behind the
// newest one is a strict local extreme of the surrounding 2*lookback+1
// window. Ties disqualify a candidate: an equal high or low anywhere in
// the window means no swing.
type SwingPoint struct {
	IsHigh   bool
	IsLow    bool
	High     float64
	Low      float64
	BarIndex int
	BarTime  int64
}

// DetectSwing evaluates the candidate bar at index len-lookback-1. Both
// flags are false when fewer than 2*lookback+1 bars exist.
func DetectSwing(bars []market.Bar, lookback int) SwingPoint {
	if len(bars) < lookback*2+1 {
		return SwingPoint{}
	}

	idx := len(bars) - lookback - 1
	candidate := bars[idx]

	isHigh := true
	isLow := true
	for i := idx - lookback; i <= idx+lookback; i++ {
		if i == idx {
			continue
		}
		if bars[i].High >= candidate.High {
			isHigh = false
		}
		if bars[i].Low <= candidate.Low {
			isLow = false
		}
		if !isHigh && !isLow {
			break
		}
	}

	sp := SwingPoint{
		IsHigh:   isHigh,
		IsLow:    isLow,
		BarIndex: idx,
		BarTime:  candidate.Timestamp,
	}
	if isHigh {
		sp.High = candidate.High
	}
	if isLow {
		sp.Low = candidate.Low
	}
	return sp
}

// RollingExtremes returns the highest high and lowest low over the last
// lookback bars excluding the newest bar, along with the indices of the
// extreme bars. It is the seed source for structure pivots while the
// strict swing window is not yet filled. ok is false when fewer than two
// bars exist.
func RollingExtremes(bars []market.Bar, lookback int) (high, low float64, highIdx, lowIdx int, ok bool) {
	if len(bars) < 2 {
		return 0, 0, 0, 0, false
	}

	end := len(bars) - 1 // exclude the newest bar
	start := end - lookback
	if start < 0 {
		start = 0
	}

	highIdx, lowIdx = start, start
	high, low = bars[start].High, bars[start].Low
	for i := start + 1; i < end; i++ {
		if bars[i].High > high {
			high = bars[i].High
			highIdx = i
		}
		if bars[i].Low < low {
			low = bars[i].Low
			lowIdx = i
		}
	}
	return high, low, highIdx, lowIdx, true
}
