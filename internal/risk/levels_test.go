package risk

import (
	"math"
	"testing"

	"smc-signal-engine/internal/market"
)

// TestTargetsBuy reproduces the canonical buy example: entry 1.1000,
// stop 1.0950, R=2.0.
func TestTargetsBuy(t *testing.T) {
	t1, t2, t3 := Targets(market.DirectionBuy, 1.1000, 1.0950, 2.0)

	if math.Abs(t1-1.1100) > 1e-9 {
		t.Errorf("target1 = %f, want 1.1100", t1)
	}
	if math.Abs(t2-1.1150) > 1e-9 {
		t.Errorf("target2 = %f, want 1.1150", t2)
	}
	if math.Abs(t3-1.1200) > 1e-9 {
		t.Errorf("target3 = %f, want 1.1200", t3)
	}
}

// TestTargetsSell verifies the mirrored sell math.
func TestTargetsSell(t *testing.T) {
	t1, t2, t3 := Targets(market.DirectionSell, 1.1000, 1.1050, 2.0)

	if math.Abs(t1-1.0900) > 1e-9 {
		t.Errorf("target1 = %f, want 1.0900", t1)
	}
	if math.Abs(t2-1.0850) > 1e-9 {
		t.Errorf("target2 = %f, want 1.0850", t2)
	}
	if math.Abs(t3-1.0800) > 1e-9 {
		t.Errorf("target3 = %f, want 1.0800", t3)
	}
}

// TestTargetMonotonicity verifies strictly ordered targets for both
// directions across risk ratios.
func TestTargetMonotonicity(t *testing.T) {
	for _, rr := range []float64{1.0, 1.5, 2.0, 3.0} {
		t1, t2, t3 := Targets(market.DirectionBuy, 1.2000, 1.1900, rr)
		if !(t1 < t2 && t2 < t3) {
			t.Errorf("Buy targets not strictly increasing at R=%.1f: %f %f %f", rr, t1, t2, t3)
		}

		t1, t2, t3 = Targets(market.DirectionSell, 1.2000, 1.2100, rr)
		if !(t1 > t2 && t2 > t3) {
			t.Errorf("Sell targets not strictly decreasing at R=%.1f: %f %f %f", rr, t1, t2, t3)
		}
	}
}

// TestCalculateLevelsBuy verifies the stop anchors to the wider of the
// structural and ATR distances.
func TestCalculateLevelsBuy(t *testing.T) {
	bars := make([]market.Bar, 0, 20)
	price := 1.1000
	for i := 0; i < 20; i++ {
		bars = append(bars, market.Bar{
			Timestamp: int64(i * 60000),
			Open:      price,
			High:      price + 0.0010,
			Low:       price - 0.0010,
			Close:     price,
		})
	}
	// ATR = 0.0020 (constant range, no close gaps). Recent low = 1.0990.
	// Structural stop = 1.0990 - 0.0010 = 1.0980.
	// ATR stop = 1.1000 - 0.0030 = 1.0970. Buy takes the lower.
	levels := CalculateLevels("EUR/USD", market.DirectionBuy, bars, 2.0)

	if math.Abs(levels.Entry-1.1000) > 1e-9 {
		t.Errorf("Entry = %f, want 1.1000", levels.Entry)
	}
	if math.Abs(levels.StopLoss-1.0970) > 1e-9 {
		t.Errorf("StopLoss = %f, want 1.0970", levels.StopLoss)
	}
	// Risk distance 0.0030, R=2.
	if math.Abs(levels.Target1-1.1060) > 1e-9 {
		t.Errorf("Target1 = %f, want 1.1060", levels.Target1)
	}
	if math.Abs(levels.Target2-1.1090) > 1e-9 {
		t.Errorf("Target2 = %f, want 1.1090", levels.Target2)
	}
	if math.Abs(levels.Target3-1.1120) > 1e-9 {
		t.Errorf("Target3 = %f, want 1.1120", levels.Target3)
	}
}

// TestCalculateLevelsSell verifies the mirrored stop anchoring.
func TestCalculateLevelsSell(t *testing.T) {
	bars := make([]market.Bar, 0, 20)
	price := 150.000
	for i := 0; i < 20; i++ {
		bars = append(bars, market.Bar{
			Timestamp: int64(i * 60000),
			Open:      price,
			High:      price + 0.100,
			Low:       price - 0.100,
			Close:     price,
		})
	}
	// ATR = 0.200, recent high 150.100: structural stop 150.200,
	// ATR stop 150.300. Sell takes the higher.
	levels := CalculateLevels("USD/JPY", market.DirectionSell, bars, 2.0)

	if math.Abs(levels.StopLoss-150.300) > 1e-9 {
		t.Errorf("StopLoss = %f, want 150.300", levels.StopLoss)
	}
	if !(levels.Target1 > levels.Target2 && levels.Target2 > levels.Target3) {
		t.Errorf("Sell targets not decreasing: %f %f %f", levels.Target1, levels.Target2, levels.Target3)
	}
}

// TestCalculateLevelsThinHistory verifies the ATR fallback keeps the
// stop a sane distance from entry.
func TestCalculateLevelsThinHistory(t *testing.T) {
	bars := []market.Bar{
		{Timestamp: 0, Open: 1.1000, High: 1.1010, Low: 1.0990, Close: 1.1000},
		{Timestamp: 60000, Open: 1.1000, High: 1.1012, Low: 1.0992, Close: 1.1005},
	}

	levels := CalculateLevels("EUR/USD", market.DirectionBuy, bars, 2.0)
	if levels.StopLoss >= levels.Entry {
		t.Errorf("Buy stop %f must sit below entry %f", levels.StopLoss, levels.Entry)
	}
}
