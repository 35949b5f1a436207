package analysis

import (
	"math"
	"testing"

	"smc-signal-engine/internal/market"
)

// TestDetectBullishGap verifies the three-bar bullish imbalance and its
// measured gap size.
func TestDetectBullishGap(t *testing.T) {
	bars := []market.Bar{
		{Timestamp: 1000, Open: 1.0990, High: 1.1000, Low: 1.0980, Close: 1.0995},
		{Timestamp: 2000, Open: 1.0995, High: 1.1040, Low: 1.0990, Close: 1.1035},
		{Timestamp: 3000, Open: 1.1035, High: 1.1070, Low: 1.1050, Close: 1.1060},
	}

	gaps := DetectGaps(bars)
	if len(gaps) != 1 {
		t.Fatalf("Expected 1 gap, got %d", len(gaps))
	}

	gap := gaps[0]
	if !gap.Bullish {
		t.Error("Expected bullish gap")
	}
	if gap.Bottom != 1.1000 || gap.Top != 1.1050 {
		t.Errorf("Gap zone = [%f, %f], want [1.1000, 1.1050]", gap.Bottom, gap.Top)
	}
	if math.Abs(gap.Size-0.0050) > 1e-9 {
		t.Errorf("Gap size = %f, want 0.0050", gap.Size)
	}
}

// TestDetectBearishGap verifies the mirrored bearish imbalance.
func TestDetectBearishGap(t *testing.T) {
	bars := []market.Bar{
		{Timestamp: 1000, Open: 105, High: 106, Low: 100, Close: 102},
		{Timestamp: 2000, Open: 102, High: 103, Low: 95, Close: 96},
		{Timestamp: 3000, Open: 96, High: 99, Low: 92, Close: 94},
	}

	gaps := DetectGaps(bars)
	if len(gaps) != 1 {
		t.Fatalf("Expected 1 gap, got %d", len(gaps))
	}
	gap := gaps[0]
	if gap.Bullish {
		t.Error("Expected bearish gap")
	}
	if gap.Bottom != 99 || gap.Top != 100 {
		t.Errorf("Gap zone = [%f, %f], want [99, 100]", gap.Bottom, gap.Top)
	}
}

// TestNoGapOnOverlap verifies overlapping triples produce nothing.
func TestNoGapOnOverlap(t *testing.T) {
	bars := []market.Bar{
		{Timestamp: 1000, Open: 95, High: 100, Low: 94, Close: 98},
		{Timestamp: 2000, Open: 98, High: 102, Low: 97, Close: 100},
		{Timestamp: 3000, Open: 100, High: 104, Low: 99, Close: 102},
	}

	if gaps := DetectGaps(bars); len(gaps) != 0 {
		t.Errorf("Expected 0 gaps for overlapping bars, got %d", len(gaps))
	}
}

// TestGapScanWindowBounded verifies only the last five bars are scanned.
func TestGapScanWindowBounded(t *testing.T) {
	// A clear gap in old bars, flat bars since.
	bars := []market.Bar{
		{Timestamp: 1000, Open: 1.0, High: 1.0, Low: 0.9, Close: 1.0},
		{Timestamp: 2000, Open: 1.5, High: 1.6, Low: 1.4, Close: 1.5},
		{Timestamp: 3000, Open: 2.0, High: 2.1, Low: 1.9, Close: 2.0},
	}
	for i := 0; i < 5; i++ {
		bars = append(bars, market.Bar{
			Timestamp: int64(4000 + i*1000), Open: 2.0, High: 2.05, Low: 1.95, Close: 2.0,
		})
	}

	if gaps := DetectGaps(bars); len(gaps) != 0 {
		t.Errorf("Gap outside the scan window should be ignored, got %d gaps", len(gaps))
	}
}
