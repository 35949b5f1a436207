package market

import (
	"errors"
	"sort"
)

// DefaultCapacity is the bar window size kept per instrument.
const DefaultCapacity = 100

// OutOfOrderToleranceMs is how far behind the newest stored bar a late
// delivery may be before it is rejected instead of re-sorted in.
const OutOfOrderToleranceMs = int64(60_000)

// ErrOutOfOrderBar is returned when a bar arrives with a timestamp older
// than the newest stored bar by more than the tolerance.
var ErrOutOfOrderBar = errors.New("bar timestamp violates ordering tolerance")

// History is a bounded, timestamp-ordered window of bars for one
// instrument. Oldest bars are evicted first when the window overflows.
// History is not safe for concurrent use; callers serialize access per
// instrument.
type History struct {
	bars     []Bar
	capacity int
}

// NewHistory creates a history window with the given capacity. A
// non-positive capacity falls back to DefaultCapacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{
		bars:     make([]Bar, 0, capacity),
		capacity: capacity,
	}
}

// Append inserts a bar, keeping the window sorted ascending by timestamp
// and trimmed to capacity. Re-delivery of any stored timestamp is a
// silent no-op so idempotent retries cannot distort the window. Bars
// older than the newest by more than the tolerance are rejected with
// ErrOutOfOrderBar.
func (h *History) Append(bar Bar) error {
	n := len(h.bars)
	if n > 0 {
		newest := h.bars[n-1].Timestamp
		if bar.Timestamp == newest {
			return nil
		}
		if bar.Timestamp < newest {
			if newest-bar.Timestamp > OutOfOrderToleranceMs {
				return ErrOutOfOrderBar
			}
			// Only the tolerance tail can hold the timestamp; anything
			// older would have been rejected above.
			for i := n - 1; i >= 0; i-- {
				if h.bars[i].Timestamp == bar.Timestamp {
					return nil
				}
				if newest-h.bars[i].Timestamp > OutOfOrderToleranceMs {
					break
				}
			}
			h.bars = append(h.bars, bar)
			sort.Slice(h.bars, func(i, j int) bool {
				return h.bars[i].Timestamp < h.bars[j].Timestamp
			})
			h.trim()
			return nil
		}
	}
	h.bars = append(h.bars, bar)
	h.trim()
	return nil
}

func (h *History) trim() {
	if len(h.bars) > h.capacity {
		h.bars = h.bars[len(h.bars)-h.capacity:]
	}
}

// Bars returns the ordered window. The returned slice is shared with the
// history and must not be mutated.
func (h *History) Bars() []Bar {
	return h.bars
}

// Len returns the number of stored bars.
func (h *History) Len() int {
	return len(h.bars)
}

// Last returns the most recent bar, or false when the window is empty.
func (h *History) Last() (Bar, bool) {
	if len(h.bars) == 0 {
		return Bar{}, false
	}
	return h.bars[len(h.bars)-1], true
}

// LastN returns up to n of the most recent bars in ascending order.
func (h *History) LastN(n int) []Bar {
	if n >= len(h.bars) {
		return h.bars
	}
	return h.bars[len(h.bars)-n:]
}
