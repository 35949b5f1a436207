// Package engine orchestrates the smart money concepts detectors into a
// per-instrument evaluation cycle: structure breaks at two
// granularities, order block and fair value gap evidence, confidence
// scoring, quality gating and trade level calculation.
package engine

import (
	"time"

	"smc-signal-engine/internal/analysis"
	"smc-signal-engine/internal/confluence"
	"smc-signal-engine/internal/events"
	"smc-signal-engine/internal/logging"
	"smc-signal-engine/internal/market"
	"smc-signal-engine/internal/risk"

	"github.com/google/uuid"
)

// Engine is the signal detection core. One Engine serves all
// instruments; per-instrument state is serialized so evaluations for
// the same instrument never interleave, while different instruments
// evaluate independently.
type Engine struct {
	cfg      Config
	registry *registry
	log      *logging.Logger
	bus      *events.EventBus

	now func() time.Time
}

// New creates an engine. The event bus may be nil when no downstream
// consumers are wired.
func New(cfg Config, log *logging.Logger, bus *events.EventBus) *Engine {
	if log == nil {
		log = logging.Default()
	}
	return &Engine{
		cfg:      cfg,
		registry: newRegistry(cfg.MaxInstruments, cfg.HistoryCapacity),
		log:      log.WithComponent("engine"),
		bus:      bus,
		now:      time.Now,
	}
}

// IngestBar appends a bar to the instrument's history. Duplicate
// redelivery of the newest bar is a no-op; a bar older than the newest
// by more than the ordering tolerance is dropped and reported as
// market.ErrOutOfOrderBar.
func (e *Engine) IngestBar(symbol, timeframe string, bar market.Bar) error {
	st := e.registry.getOrCreate(stateKey(symbol, timeframe))

	st.mu.Lock()
	defer st.mu.Unlock()

	if err := st.History.Append(bar); err != nil {
		e.log.Warn("dropped out-of-order bar",
			"symbol", symbol, "timeframe", timeframe, "bar_time", bar.Timestamp)
		return err
	}
	st.lastCycle = nil

	if e.bus != nil {
		e.bus.PublishBarIngested(symbol, timeframe, bar.Timestamp, bar.Close)
	}
	return nil
}

// UpdatePrice stores a running price tick for an instrument the engine
// already tracks. Evaluation runs off bar closes; the tick is kept for
// introspection and downstream consumers only.
func (e *Engine) UpdatePrice(symbol, timeframe string, price float64) {
	st, ok := e.registry.get(stateKey(symbol, timeframe))
	if !ok {
		return
	}

	st.mu.Lock()
	st.Price = &PriceCache{Price: price, FetchedAt: e.now()}
	st.mu.Unlock()

	if e.bus != nil {
		e.bus.PublishPriceUpdate(symbol, price)
	}
}

// Evaluate runs one evaluation cycle for the instrument and returns a
// Signal when the quality gate and cooldown both pass, or nil. Too few
// bars is not an error; the cycle simply detects nothing. Re-evaluating
// without new bars replays the memoized cycle, so token sets and
// confidence are identical across repeated calls.
func (e *Engine) Evaluate(symbol, timeframe string) (*Signal, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}

	st, ok := e.registry.get(stateKey(symbol, timeframe))
	if !ok {
		return nil, nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	bars := st.History.Bars()
	if len(bars) < e.cfg.MinBars {
		return nil, nil
	}

	newest := bars[len(bars)-1].Timestamp
	cycle := st.lastCycle
	if cycle == nil || cycle.barTime != newest {
		cycle = e.runCycle(symbol, timeframe, st, bars)
		st.lastCycle = cycle
	}

	primaries := confluence.CountPrimaries(cycle.tokens)
	if !cycle.directional || primaries < 1 ||
		len(cycle.tokens) < e.cfg.MinConfirmations ||
		cycle.confidence < e.cfg.MinConfidence {
		if cycle.directional {
			e.log.Debug("signal rejected by quality gate",
				"symbol", symbol, "timeframe", timeframe,
				"confidence", cycle.confidence, "tokens", len(cycle.tokens), "primaries", primaries)
			if e.bus != nil {
				e.bus.PublishSignalRejected(symbol, timeframe, "quality_gate",
					cycle.confidence, len(cycle.tokens))
			}
		}
		return nil, nil
	}

	now := e.now()
	if !st.LastSignalAt.IsZero() && now.Sub(st.LastSignalAt) < e.cfg.Cooldown {
		e.log.Debug("signal suppressed by cooldown",
			"symbol", symbol, "timeframe", timeframe,
			"since_last", now.Sub(st.LastSignalAt).String())
		return nil, nil
	}

	levels := risk.CalculateLevels(symbol, cycle.direction, bars, e.cfg.RiskRewardRatio)
	confirmations := confluence.Dedupe(cycle.tokens)
	labels := confluence.Labels(confirmations)

	sig := &Signal{
		ID:                 uuid.New().String(),
		Instrument:         symbol,
		Timeframe:          timeframe,
		Direction:          cycle.direction,
		EntryPrice:         levels.Entry,
		StopLoss:           levels.StopLoss,
		TakeProfit:         TakeProfit{T1: levels.Target1, T2: levels.Target2, T3: levels.Target3},
		RiskRewardRatio:    levels.RiskRewardRatio,
		Confidence:         cycle.confidence,
		Confirmations:      confirmations,
		ConfirmationLabels: labels,
		AnalysisText:       analysisText(symbol, timeframe, cycle.direction, cycle.confidence, labels),
		SessionQuality:     sessionQuality(now),
		GeneratedAt:        now,
	}
	st.LastSignalAt = now

	e.log.Info("signal generated",
		"signal_id", sig.ID, "symbol", symbol, "timeframe", timeframe,
		"direction", string(sig.Direction), "confidence", sig.Confidence,
		"entry", sig.EntryPrice, "stop", sig.StopLoss)
	if e.bus != nil {
		e.bus.PublishSignal(sig.ID, symbol, timeframe, string(sig.Direction), sig.Confidence, sig.EntryPrice)
	}
	return sig, nil
}

// runCycle executes one full detection pass. Swing structure updates
// first, then internal structure behind the confluence filter, then
// order block respect, the formation heuristic, fair value gaps and the
// supporting evidence detectors. At most one high and one low event can
// fire per granularity per cycle.
func (e *Engine) runCycle(symbol, timeframe string, st *InstrumentState, bars []market.Bar) *cycleResult {
	last := bars[len(bars)-1]
	price := last.Close

	var tokens []confluence.Token

	st.Swing.UpdatePivots(bars, e.cfg.LookbackSwing)
	swingEvents := st.Swing.EvaluateBreaks(price, true, true)
	for _, ev := range swingEvents {
		tokens = append(tokens, structureToken(ev, true))
		if brokeConfirmedSwing(&st.Swing, ev) {
			tokens = append(tokens, confluence.TokenStrongWeakHighLow)
		}
		e.recordBreak(symbol, timeframe, "swing", st, &st.SwingBlocks, bars, ev)
	}

	st.Internal.UpdatePivots(bars, e.cfg.LookbackInternal)
	allowBullish, allowBearish := true, true
	if e.cfg.UseInternalConfluenceFilter {
		cleanBullish, cleanBearish := analysis.CleanDirectionalBar(last)
		allowBullish = cleanBullish && pivotLevelsDiffer(st.Internal.High, st.Swing.High)
		allowBearish = cleanBearish && pivotLevelsDiffer(st.Internal.Low, st.Swing.Low)
	}
	internalEvents := st.Internal.EvaluateBreaks(price, allowBullish, allowBearish)
	for _, ev := range internalEvents {
		tokens = append(tokens, structureToken(ev, false))
		e.recordBreak(symbol, timeframe, "internal", st, &st.InternalBlocks, bars, ev)
	}

	for range st.SwingBlocks.Respected(price) {
		tokens = append(tokens, confluence.TokenSwingOrderBlock)
	}
	for range st.InternalBlocks.Respected(price) {
		tokens = append(tokens, confluence.TokenInternalOrderBlock)
	}

	// Formation zones become respect candidates from the next cycle on.
	if f := analysis.DetectFormation(bars); f.Bullish || f.Bearish {
		bias := market.BiasBullish
		if f.Bearish {
			bias = market.BiasBearish
		}
		st.InternalBlocks.Add(analysis.OrderBlock{
			High: f.High, Low: f.Low, Bias: bias, CreatedAt: last.Timestamp,
		})
	}

	for _, gap := range analysis.DetectGaps(bars) {
		if gap.Bullish {
			tokens = append(tokens, confluence.TokenBullishFVG)
		} else {
			tokens = append(tokens, confluence.TokenBearishFVG)
		}
	}

	tokens = append(tokens, supportingTokens(bars, st.Swing.Bias, st.Internal.Bias)...)

	// Internal events set the direction first; swing is the fallback.
	directional := false
	var direction market.Direction
	if len(internalEvents) > 0 {
		direction = eventDirection(internalEvents[len(internalEvents)-1])
		directional = true
	} else if len(swingEvents) > 0 {
		direction = eventDirection(swingEvents[len(swingEvents)-1])
		directional = true
	}

	return &cycleResult{
		barTime:     last.Timestamp,
		tokens:      tokens,
		confidence:  confluence.Score(tokens),
		direction:   direction,
		directional: directional,
	}
}

// recordBreak logs a structure break, publishes it, and records the
// institutional footprint candle behind the broken pivot.
func (e *Engine) recordBreak(symbol, timeframe, granularity string, st *InstrumentState,
	blocks *analysis.OrderBlockList, bars []market.Bar, ev analysis.StructureEvent) {

	e.log.Debug("structure break",
		"symbol", symbol, "timeframe", timeframe, "granularity", granularity,
		"tag", string(ev.Tag), "bullish", ev.Bullish, "level", ev.Level)
	if e.bus != nil {
		e.bus.PublishStructureBreak(symbol, timeframe, granularity, string(ev.Tag), ev.Bullish, ev.Level)
	}

	bias := market.BiasBullish
	if !ev.Bullish {
		bias = market.BiasBearish
	}
	if ob := analysis.RecordFromBreak(bars, ev.PivotTime, bias); ob != nil {
		blocks.Add(*ob)
	}
}

// snapshotBars is how many trailing bars a structure snapshot carries.
const snapshotBars = 5

// StructureSnapshot is a read-only view of one instrument's structure
// state, exposed for dashboard introspection.
type StructureSnapshot struct {
	Symbol              string                   `json:"symbol"`
	Timeframe           string                   `json:"timeframe"`
	Swing               analysis.StructureState  `json:"swing"`
	Internal            analysis.StructureState  `json:"internal"`
	SwingOrderBlocks    []analysis.OrderBlock    `json:"swingOrderBlocks"`
	InternalOrderBlocks []analysis.OrderBlock    `json:"internalOrderBlocks"`
	LastSignalAt        time.Time                `json:"lastSignalAt"`
	Price               *PriceCache              `json:"price,omitempty"`
	Bars                int                      `json:"bars"`
	RecentBars          []market.Bar             `json:"recentBars"`
}

// ActiveStructures returns the current pivots, bias and order blocks for
// an instrument, or false when the engine does not track it.
func (e *Engine) ActiveStructures(symbol, timeframe string) (StructureSnapshot, bool) {
	st, ok := e.registry.get(stateKey(symbol, timeframe))
	if !ok {
		return StructureSnapshot{}, false
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	snap := StructureSnapshot{
		Symbol:              symbol,
		Timeframe:           timeframe,
		Swing:               st.Swing,
		Internal:            st.Internal,
		SwingOrderBlocks:    append([]analysis.OrderBlock(nil), st.SwingBlocks.Blocks()...),
		InternalOrderBlocks: append([]analysis.OrderBlock(nil), st.InternalBlocks.Blocks()...),
		LastSignalAt:        st.LastSignalAt,
		Bars:                st.History.Len(),
		RecentBars:          append([]market.Bar(nil), st.History.LastN(snapshotBars)...),
	}
	if st.Price != nil {
		price := *st.Price
		snap.Price = &price
	}
	return snap, true
}

// TrackedInstruments returns how many instrument states the engine holds.
func (e *Engine) TrackedInstruments() int {
	return e.registry.len()
}

func structureToken(ev analysis.StructureEvent, swing bool) confluence.Token {
	switch {
	case swing && ev.Bullish && ev.Tag == analysis.TagBOS:
		return confluence.TokenSwingBullishBOS
	case swing && !ev.Bullish && ev.Tag == analysis.TagBOS:
		return confluence.TokenSwingBearishBOS
	case swing && ev.Bullish:
		return confluence.TokenSwingBullishCHoCH
	case swing:
		return confluence.TokenSwingBearishCHoCH
	case ev.Bullish && ev.Tag == analysis.TagBOS:
		return confluence.TokenInternalBullishBOS
	case !ev.Bullish && ev.Tag == analysis.TagBOS:
		return confluence.TokenInternalBearishBOS
	case ev.Bullish:
		return confluence.TokenInternalBullishCHoCH
	default:
		return confluence.TokenInternalBearishCHoCH
	}
}

func eventDirection(ev analysis.StructureEvent) market.Direction {
	if ev.Bullish {
		return market.DirectionBuy
	}
	return market.DirectionSell
}

// brokeConfirmedSwing reports whether the fired event crossed a pivot
// that came from a strict swing rather than a rolling-extreme seed.
// Breaking a confirmed level is stronger evidence than breaking a seed.
func brokeConfirmedSwing(s *analysis.StructureState, ev analysis.StructureEvent) bool {
	if ev.Bullish {
		return !s.High.Seeded
	}
	return !s.Low.Seeded
}

// pivotLevelsDiffer applies the internal filter's level test: the
// internal pivot must sit at a different price than the swing pivot, or
// the swing side must be unset.
func pivotLevelsDiffer(internal, swing analysis.Pivot) bool {
	if !internal.Set {
		return false
	}
	if !swing.Set {
		return true
	}
	return internal.Level != swing.Level
}
