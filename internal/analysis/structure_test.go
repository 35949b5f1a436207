package analysis

import (
	"testing"

	"smc-signal-engine/internal/market"
)

// TestBreakTagging walks the machine through the canonical cycle:
// neutral high break is BOS, opposing low break is CHoCH, and a repeat
// high break after a new level is BOS again.
func TestBreakTagging(t *testing.T) {
	s := &StructureState{}
	s.setHigh(1.1000, 1000, false)
	s.setLow(1.0900, 1000, false)

	events := s.EvaluateBreaks(1.1010, true, true)
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].Tag != TagBOS || !events[0].Bullish {
		t.Errorf("Neutral high break should be bullish BOS, got %s bullish=%v", events[0].Tag, events[0].Bullish)
	}
	if s.Bias != market.BiasBullish {
		t.Errorf("Bias = %v, want bullish", s.Bias)
	}

	// Against-bias low break is CHoCH.
	events = s.EvaluateBreaks(1.0890, true, true)
	if len(events) != 1 || events[0].Tag != TagCHoCH || events[0].Bullish {
		t.Fatalf("Expected bearish CHoCH, got %+v", events)
	}
	if s.Bias != market.BiasBearish {
		t.Errorf("Bias = %v, want bearish", s.Bias)
	}

	// New high level established at a different price, then broken:
	// reversal again, so CHoCH.
	s.setHigh(1.0950, 2000, false)
	events = s.EvaluateBreaks(1.0960, true, true)
	if len(events) != 1 || events[0].Tag != TagCHoCH || !events[0].Bullish {
		t.Fatalf("Expected bullish CHoCH on reversal, got %+v", events)
	}
}

// TestCrossedFlagBlocksRefire verifies a broken level cannot fire twice
// until a new level at a different price is established.
func TestCrossedFlagBlocksRefire(t *testing.T) {
	s := &StructureState{}
	s.setHigh(1.1000, 1000, false)

	if events := s.EvaluateBreaks(1.1010, true, true); len(events) != 1 {
		t.Fatalf("First break should fire, got %d events", len(events))
	}
	if events := s.EvaluateBreaks(1.1020, true, true); len(events) != 0 {
		t.Fatalf("Crossed level must not refire, got %d events", len(events))
	}

	// Re-setting the same price level keeps the crossed flag.
	s.setHigh(1.1000, 3000, false)
	if events := s.EvaluateBreaks(1.1030, true, true); len(events) != 0 {
		t.Fatal("Identical level must not reset the crossed flag")
	}

	// A strictly new level resets it.
	s.setHigh(1.1050, 4000, false)
	if events := s.EvaluateBreaks(1.1060, true, true); len(events) != 1 {
		t.Fatal("New level should allow a fresh break")
	}
}

// TestBothSidesCanFire verifies the high and low checks are independent
// within one cycle.
func TestBothSidesCanFire(t *testing.T) {
	s := &StructureState{}
	// Inverted levels so one price can break both.
	s.setHigh(1.0900, 1000, false)
	s.setLow(1.1000, 1000, false)

	events := s.EvaluateBreaks(1.0950, true, true)
	if len(events) != 2 {
		t.Fatalf("Expected both sides to fire, got %d events", len(events))
	}
}

// TestConfluenceFilterGates verifies the allow flags suppress events.
func TestConfluenceFilterGates(t *testing.T) {
	s := &StructureState{}
	s.setHigh(1.1000, 1000, false)

	if events := s.EvaluateBreaks(1.1010, false, true); len(events) != 0 {
		t.Fatal("Filtered bullish break must not fire")
	}
	// The suppressed break must not consume the level.
	if s.High.Crossed {
		t.Error("Suppressed break must not set the crossed flag")
	}
}

// TestUpdatePivotsSeedThenStrict verifies rolling-extreme seeding is
// replaced once a strict swing appears, and that seeded levels refresh.
func TestUpdatePivotsSeedThenStrict(t *testing.T) {
	s := &StructureState{}
	lookback := 2

	bars := []market.Bar{
		flatBar(1000, 1.10, 1.05),
		flatBar(2000, 1.12, 1.06),
		flatBar(3000, 1.11, 1.07),
	}
	s.UpdatePivots(bars, lookback)
	if !s.High.Set || !s.High.Seeded {
		t.Fatal("Expected seeded high pivot before strict window fills")
	}
	if s.High.Level != 1.12 {
		t.Errorf("Seeded high = %f, want 1.12", s.High.Level)
	}

	// Grow to a strict swing high at the candidate index.
	bars = []market.Bar{
		flatBar(1000, 1.10, 1.05),
		flatBar(2000, 1.12, 1.06),
		flatBar(3000, 1.25, 1.07),
		flatBar(4000, 1.13, 1.08),
		flatBar(5000, 1.11, 1.09),
	}
	s.UpdatePivots(bars, lookback)
	if s.High.Seeded {
		t.Error("Strict swing should replace the seeded pivot")
	}
	if s.High.Level != 1.25 {
		t.Errorf("Strict high = %f, want 1.25", s.High.Level)
	}
}

// TestCleanDirectionalBar exercises the bar quality filter polarity.
func TestCleanDirectionalBar(t *testing.T) {
	// Long upper wick, no lower wick.
	upperWicked := market.Bar{Open: 1.00, High: 1.10, Low: 1.00, Close: 1.01}
	bullish, bearish := CleanDirectionalBar(upperWicked)
	if !bullish || bearish {
		t.Errorf("Upper-wicked bar: bullish=%v bearish=%v, want true/false", bullish, bearish)
	}

	// Long lower wick, no upper wick.
	lowerWicked := market.Bar{Open: 1.10, High: 1.10, Low: 1.00, Close: 1.09}
	bullish, bearish = CleanDirectionalBar(lowerWicked)
	if bullish || !bearish {
		t.Errorf("Lower-wicked bar: bullish=%v bearish=%v, want false/true", bullish, bearish)
	}
}
