package analysis

import "smc-signal-engine/internal/market"

// BreakTag labels a structure break by its relationship to the prior
// bias: BOS continues the trend, CHoCH reverses it.
type BreakTag string

const (
	TagBOS   BreakTag = "BOS"
	TagCHoCH BreakTag = "CHoCH"
)

// Pivot tracks one side (high or low) of a structure level. Crossed stays
// true from the first break of the level until a new level at a different
// price is established, which is what limits BOS/CHoCH to one firing per
// broken level. Seeded marks a level derived from rolling extremes rather
// than a confirmed swing; seeded levels keep refreshing until a strict
// swing takes over.
type Pivot struct {
	Level   float64 `json:"level"`
	Set     bool    `json:"set"`
	Crossed bool    `json:"crossed"`
	Seeded  bool    `json:"seeded"`
	BarTime int64   `json:"barTime"`
}

// StructureState is the per-granularity state machine: the active
// high/low pivots plus the trend bias they imply.
type StructureState struct {
	High Pivot       `json:"high"`
	Low  Pivot       `json:"low"`
	Bias market.Bias `json:"bias"`
}

// StructureEvent is one BOS or CHoCH firing.
type StructureEvent struct {
	Tag       BreakTag
	Bullish   bool
	Level     float64
	PivotTime int64
}

func (s *StructureState) setHigh(level float64, barTime int64, seeded bool) {
	if s.High.Set && s.High.Level == level {
		return
	}
	s.High = Pivot{Level: level, Set: true, Crossed: false, Seeded: seeded, BarTime: barTime}
}

func (s *StructureState) setLow(level float64, barTime int64, seeded bool) {
	if s.Low.Set && s.Low.Level == level {
		return
	}
	s.Low = Pivot{Level: level, Set: true, Crossed: false, Seeded: seeded, BarTime: barTime}
}

// UpdatePivots refreshes the pivot levels from the bar window. Strict
// swing points always win; while a side has never seen a strict swing,
// its level is seeded from the rolling extremes of the lookback window so
// the machine can operate before (or when capacity prevents) the full
// 2*lookback+1 window existing. A level change on either side resets that
// side's crossed flag.
func (s *StructureState) UpdatePivots(bars []market.Bar, lookback int) {
	sp := DetectSwing(bars, lookback)
	if sp.IsHigh {
		s.setHigh(sp.High, sp.BarTime, false)
	}
	if sp.IsLow {
		s.setLow(sp.Low, sp.BarTime, false)
	}

	high, low, highIdx, lowIdx, ok := RollingExtremes(bars, lookback)
	if !ok {
		return
	}
	if !sp.IsHigh && (!s.High.Set || s.High.Seeded) {
		s.setHigh(high, bars[highIdx].Timestamp, true)
	}
	if !sp.IsLow && (!s.Low.Set || s.Low.Seeded) {
		s.setLow(low, bars[lowIdx].Timestamp, true)
	}
}

// EvaluateBreaks checks the current price against both pivots and emits
// at most one high event and one low event. The checks are independent:
// both can fire in the same cycle when both conditions hold. allowBullish
// and allowBearish carry the internal-granularity confluence filter;
// swing evaluation passes true for both.
func (s *StructureState) EvaluateBreaks(price float64, allowBullish, allowBearish bool) []StructureEvent {
	var events []StructureEvent

	if s.High.Set && !s.High.Crossed && price > s.High.Level && allowBullish {
		tag := TagBOS
		if s.Bias == market.BiasBearish {
			tag = TagCHoCH
		}
		s.High.Crossed = true
		s.Bias = market.BiasBullish
		events = append(events, StructureEvent{
			Tag:       tag,
			Bullish:   true,
			Level:     s.High.Level,
			PivotTime: s.High.BarTime,
		})
	}

	if s.Low.Set && !s.Low.Crossed && price < s.Low.Level && allowBearish {
		tag := TagBOS
		if s.Bias == market.BiasBullish {
			tag = TagCHoCH
		}
		s.Low.Crossed = true
		s.Bias = market.BiasBearish
		events = append(events, StructureEvent{
			Tag:       tag,
			Bullish:   false,
			Level:     s.Low.Level,
			PivotTime: s.Low.BarTime,
		})
	}

	return events
}

// CleanDirectionalBar implements the internal-structure bar quality
// filter. The comparison polarity is kept exactly as the production
// indicator computes it.
func CleanDirectionalBar(bar market.Bar) (bullish, bearish bool) {
	upperWick := bar.High - max(bar.Close, bar.Open)
	lowerWick := min(bar.Close, bar.Open) - bar.Low
	return upperWick > lowerWick, upperWick < lowerWick
}
