package engine

import (
	"sync"
	"time"

	"smc-signal-engine/internal/analysis"
	"smc-signal-engine/internal/confluence"
	"smc-signal-engine/internal/market"
)

// PriceCache holds the last running price tick pushed by the data
// layer. The engine only stores and exposes it; evaluation always runs
// off bar closes.
type PriceCache struct {
	Price     float64   `json:"price"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// cycleResult memoizes one evaluation cycle. Structure state mutates
// only when a cycle runs against a bar the machine has not seen, so
// re-evaluating on an unchanged window replays the stored result and
// keeps Evaluate idempotent between bars.
type cycleResult struct {
	barTime     int64
	tokens      []confluence.Token
	confidence  int
	direction   market.Direction
	directional bool
}

// InstrumentState is all mutable engine state for one instrument and
// timeframe. Access is serialized through mu; evaluations for the same
// instrument never run concurrently.
type InstrumentState struct {
	mu sync.Mutex

	History        *market.History
	Swing          analysis.StructureState
	Internal       analysis.StructureState
	SwingBlocks    analysis.OrderBlockList
	InternalBlocks analysis.OrderBlockList
	LastSignalAt   time.Time
	Price          *PriceCache

	lastCycle  *cycleResult
	lastAccess time.Time
}

// registry owns the instrument states, keyed by symbol and timeframe.
// When the instrument count exceeds the limit the least recently
// accessed state is evicted, bounding memory on long-running processes.
type registry struct {
	mu       sync.Mutex
	limit    int
	capacity int
	states   map[string]*InstrumentState
}

func newRegistry(limit, capacity int) *registry {
	return &registry{
		limit:    limit,
		capacity: capacity,
		states:   make(map[string]*InstrumentState),
	}
}

func stateKey(symbol, timeframe string) string {
	return symbol + ":" + timeframe
}

func (r *registry) get(key string) (*InstrumentState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.states[key]
	if ok {
		st.lastAccess = time.Now()
	}
	return st, ok
}

func (r *registry) getOrCreate(key string) *InstrumentState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st, ok := r.states[key]; ok {
		st.lastAccess = time.Now()
		return st
	}

	if len(r.states) >= r.limit {
		r.evictOldest()
	}

	st := &InstrumentState{
		History:    market.NewHistory(r.capacity),
		lastAccess: time.Now(),
	}
	r.states[key] = st
	return st
}

// evictOldest removes the least recently accessed state. Caller holds
// the registry lock.
func (r *registry) evictOldest() {
	var oldestKey string
	var oldest time.Time
	first := true
	for key, st := range r.states {
		if first || st.lastAccess.Before(oldest) {
			oldestKey = key
			oldest = st.lastAccess
			first = false
		}
	}
	if !first {
		delete(r.states, oldestKey)
	}
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}
