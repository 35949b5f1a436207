package market

import (
	"strconv"
	"testing"
)

func bar(ts int64, close float64) Bar {
	return Bar{Timestamp: ts, Open: close, High: close + 1, Low: close - 1, Close: close}
}

// TestHistoryCapacity verifies FIFO eviction once the window overflows.
func TestHistoryCapacity(t *testing.T) {
	h := NewHistory(100)

	for i := 0; i < 120; i++ {
		if err := h.Append(bar(int64(i)*60000, 1.10)); err != nil {
			t.Fatalf("Append failed at bar %d: %v", i, err)
		}
	}

	if h.Len() != 100 {
		t.Fatalf("Expected 100 bars after overflow, got %d", h.Len())
	}

	// Oldest surviving bar should be bar 20 (bars 0-19 evicted).
	if got := h.Bars()[0].Timestamp; got != 20*60000 {
		t.Errorf("Expected oldest timestamp %d, got %d", 20*60000, got)
	}
	if got := h.Bars()[99].Timestamp; got != 119*60000 {
		t.Errorf("Expected newest timestamp %d, got %d", 119*60000, got)
	}
}

// TestHistoryDuplicateTimestamp verifies idempotent re-delivery of the
// newest bar is a no-op.
func TestHistoryDuplicateTimestamp(t *testing.T) {
	h := NewHistory(100)

	h.Append(bar(1000, 1.10))
	h.Append(bar(2000, 1.11))

	dup := bar(2000, 9.99)
	if err := h.Append(dup); err != nil {
		t.Fatalf("Duplicate append should not error: %v", err)
	}

	if h.Len() != 2 {
		t.Fatalf("Expected 2 bars, got %d", h.Len())
	}
	last, _ := h.Last()
	if last.Close != 1.11 {
		t.Errorf("Duplicate delivery must not overwrite stored bar, close = %f", last.Close)
	}
}

// TestHistoryDuplicateLateTimestamp verifies re-delivery of a bar that
// already sits inside the tolerance tail is a no-op rather than a
// duplicate insert. Full-batch refetches re-deliver the second-to-last
// bar every pass on a one-minute timeframe.
func TestHistoryDuplicateLateTimestamp(t *testing.T) {
	h := NewHistory(100)

	h.Append(bar(0, 1.10))
	h.Append(bar(60000, 1.11))
	h.Append(bar(120000, 1.12))

	if err := h.Append(bar(60000, 9.99)); err != nil {
		t.Fatalf("Re-delivered bar should not error: %v", err)
	}
	if h.Len() != 3 {
		t.Fatalf("Expected 3 bars after re-delivery, got %d", h.Len())
	}
	if got := h.Bars()[1].Close; got != 1.11 {
		t.Errorf("Re-delivery must not overwrite stored bar, close = %f", got)
	}
}

// TestHistoryOutOfOrder verifies late bars within tolerance are sorted in
// and bars beyond the tolerance are rejected.
func TestHistoryOutOfOrder(t *testing.T) {
	h := NewHistory(100)

	h.Append(bar(60000, 1.10))
	h.Append(bar(180000, 1.12))

	// 60s behind the newest bar, exactly at tolerance: accepted and sorted.
	if err := h.Append(bar(120000, 1.11)); err != nil {
		t.Fatalf("In-tolerance late bar rejected: %v", err)
	}
	bars := h.Bars()
	if bars[1].Timestamp != 120000 {
		t.Errorf("Late bar not sorted into place, middle timestamp = %d", bars[1].Timestamp)
	}

	// Far beyond tolerance: rejected, history unchanged.
	if err := h.Append(bar(1000, 1.05)); err != ErrOutOfOrderBar {
		t.Fatalf("Expected ErrOutOfOrderBar, got %v", err)
	}
	if h.Len() != 3 {
		t.Errorf("Rejected bar must not be stored, len = %d", h.Len())
	}
}

// TestPricePrecision checks instrument precision conventions.
func TestPricePrecision(t *testing.T) {
	tests := []struct {
		symbol string
		want   int
	}{
		{"USD/JPY", 3},
		{"USDJPY", 3},
		{"EUR/USD", 5},
		{"GBPUSD", 5},
		{"XAU/USD", 2},
		{"US30", 2},
		{"BTCUSD", 2},
	}

	for _, tt := range tests {
		if got := PricePrecision(tt.symbol); got != tt.want {
			t.Errorf("PricePrecision(%s) = %d, want %d", tt.symbol, got, tt.want)
		}
	}
}

// TestFormatPriceRoundTrip verifies formatted prices parse back within one
// unit in the last decimal place.
func TestFormatPriceRoundTrip(t *testing.T) {
	tests := []struct {
		symbol string
		price  float64
	}{
		{"EUR/USD", 1.085437},
		{"USD/JPY", 149.5012},
		{"XAU/USD", 2020.337},
	}

	for _, tt := range tests {
		formatted := FormatPrice(tt.symbol, tt.price)
		parsed, err := strconv.ParseFloat(formatted, 64)
		if err != nil {
			t.Fatalf("FormatPrice(%s) produced unparseable %q", tt.symbol, formatted)
		}
		unit := 1.0
		for i := 0; i < PricePrecision(tt.symbol); i++ {
			unit /= 10
		}
		if diff := abs(parsed - tt.price); diff >= unit {
			t.Errorf("Round trip for %s: |%f - %f| = %f, want < %f", tt.symbol, parsed, tt.price, diff, unit)
		}
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
