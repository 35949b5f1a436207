package analysis

import "smc-signal-engine/internal/market"

// MaxOrderBlocks bounds the per-instrument order block history.
const MaxOrderBlocks = 10

// OrderBlock is a one-bar institutional interest zone: the last
// opposing-direction candle before a directional move.
type OrderBlock struct {
	High      float64     `json:"high"`
	Low       float64     `json:"low"`
	Bias      market.Bias `json:"bias"`
	CreatedAt int64       `json:"createdAt"`
}

// Contains reports whether price sits inside the block's zone.
func (ob OrderBlock) Contains(price float64) bool {
	return price >= ob.Low && price <= ob.High
}

// OrderBlockList keeps active order blocks newest first, capped at
// MaxOrderBlocks with oldest evicted.
type OrderBlockList struct {
	blocks []OrderBlock
}

// Add pushes a block to the front. A block identical to the current front
// entry is skipped so one formation event cannot record duplicate zones.
func (l *OrderBlockList) Add(ob OrderBlock) {
	if len(l.blocks) > 0 {
		front := l.blocks[0]
		if front.High == ob.High && front.Low == ob.Low && front.Bias == ob.Bias {
			return
		}
	}
	l.blocks = append([]OrderBlock{ob}, l.blocks...)
	if len(l.blocks) > MaxOrderBlocks {
		l.blocks = l.blocks[:MaxOrderBlocks]
	}
}

// Blocks returns the active blocks, newest first.
func (l *OrderBlockList) Blocks() []OrderBlock {
	return l.blocks
}

// Respected returns the blocks whose zone contains the given price.
func (l *OrderBlockList) Respected(price float64) []OrderBlock {
	var hits []OrderBlock
	for _, ob := range l.blocks {
		if ob.Contains(price) {
			hits = append(hits, ob)
		}
	}
	return hits
}

// RecordFromBreak scans forward from the broken pivot bar looking for the
// institutional footprint candle. A bullish break records the first
// down-candle that follows an up-candle (the last supply candle before
// markup); a bearish break records the mirror. Returns nil when no
// qualifying candle exists in the window.
func RecordFromBreak(bars []market.Bar, pivotTime int64, bias market.Bias) *OrderBlock {
	start := 0
	for i, b := range bars {
		if b.Timestamp == pivotTime {
			start = i
			break
		}
	}

	for i := start + 1; i < len(bars); i++ {
		cur, prev := bars[i], bars[i-1]
		switch bias {
		case market.BiasBullish:
			if cur.Bearish() && prev.Bullish() {
				return &OrderBlock{High: cur.High, Low: cur.Low, Bias: bias, CreatedAt: cur.Timestamp}
			}
		case market.BiasBearish:
			if cur.Bullish() && prev.Bearish() {
				return &OrderBlock{High: cur.High, Low: cur.Low, Bias: bias, CreatedAt: cur.Timestamp}
			}
		}
	}
	return nil
}

// Formation is the result of the streaming order block heuristic over the
// last three bars of the recent window.
type Formation struct {
	Bullish bool
	Bearish bool
	High    float64
	Low     float64
}

// DetectFormation applies the displacement heuristic to the last three
// bars: an opposing setup candle, then a middle candle whose range the
// final candle both clears and exceeds by 1.5x. The recorded zone is the
// middle bar's high/low.
func DetectFormation(recent []market.Bar) Formation {
	if len(recent) < 3 {
		return Formation{}
	}

	prev := recent[len(recent)-3]
	middle := recent[len(recent)-2]
	last := recent[len(recent)-1]

	displacement := last.Range() > middle.Range()*1.5

	return Formation{
		Bullish: prev.Bearish() && last.Close > middle.High && displacement,
		Bearish: prev.Bullish() && last.Close < middle.Low && displacement,
		High:    middle.High,
		Low:     middle.Low,
	}
}
