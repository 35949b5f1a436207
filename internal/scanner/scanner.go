// Package scanner drives the engine on a fixed interval: fetch bars for
// each configured symbol, ingest them, evaluate, and deliver any emitted
// signal to the persistence, cache and event fan-out paths.
package scanner

import (
	"context"
	"errors"
	"sync"
	"time"

	"smc-signal-engine/config"
	"smc-signal-engine/internal/cache"
	"smc-signal-engine/internal/database"
	"smc-signal-engine/internal/engine"
	"smc-signal-engine/internal/events"
	"smc-signal-engine/internal/logging"
	"smc-signal-engine/internal/market"
	"smc-signal-engine/internal/marketdata"
)

// Scanner periodically evaluates every configured symbol. The engine
// serializes per-instrument state itself, so symbols scan concurrently.
type Scanner struct {
	cfg     config.ScannerConfig
	engine  *engine.Engine
	fetcher *marketdata.Fetcher
	repo    *database.Repository
	cache   *cache.CacheService
	bus     *events.EventBus
	log     *logging.Logger
}

// New creates a scanner. repo, cacheService and bus may be nil; the
// corresponding delivery path is then skipped.
func New(
	cfg config.ScannerConfig,
	eng *engine.Engine,
	fetcher *marketdata.Fetcher,
	repo *database.Repository,
	cacheService *cache.CacheService,
	bus *events.EventBus,
	log *logging.Logger,
) *Scanner {
	return &Scanner{
		cfg:     cfg,
		engine:  eng,
		fetcher: fetcher,
		repo:    repo,
		cache:   cacheService,
		bus:     bus,
		log:     log.WithComponent("scanner"),
	}
}

// Run blocks, scanning on the configured interval until the context is
// cancelled. The first scan happens immediately.
func (s *Scanner) Run(ctx context.Context) {
	interval := time.Duration(s.cfg.ScanInterval) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	s.log.Info("scanner started",
		"symbols", len(s.cfg.Symbols), "timeframe", s.cfg.Timeframe, "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.scanAll(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scanner stopped")
			return
		case <-ticker.C:
			s.scanAll(ctx)
		}
	}
}

func (s *Scanner) scanAll(ctx context.Context) {
	start := time.Now()
	signals := 0

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, symbol := range s.cfg.Symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			if sig := s.scanSymbol(ctx, symbol); sig != nil {
				mu.Lock()
				signals++
				mu.Unlock()
			}
		}(symbol)
	}
	wg.Wait()

	elapsed := time.Since(start)
	s.log.Debug("scan pass complete",
		"symbols", len(s.cfg.Symbols), "signals", signals, "elapsed", elapsed.String())
	if s.bus != nil {
		s.bus.PublishScanCompleted(len(s.cfg.Symbols), signals, elapsed)
	}
}

func (s *Scanner) scanSymbol(ctx context.Context, symbol string) *engine.Signal {
	bars, err := s.fetcher.HistoricalBars(ctx, symbol, s.cfg.Timeframe, s.cfg.BarLimit)
	if err != nil {
		s.log.Error("bar fetch failed", "symbol", symbol, "error", err)
		if s.bus != nil {
			s.bus.PublishError("scanner", "bar fetch failed for "+symbol, err)
		}
		return nil
	}

	for _, bar := range bars {
		if err := s.engine.IngestBar(symbol, s.cfg.Timeframe, bar); err != nil {
			if errors.Is(err, market.ErrOutOfOrderBar) {
				continue
			}
			s.log.Error("bar ingest failed", "symbol", symbol, "error", err)
			return nil
		}
	}

	// Cached quotes are shared across processes; the fetcher is only
	// consulted on a miss, and its answer refreshes the cache.
	price, havePrice := 0.0, false
	if s.cache != nil && s.cache.IsHealthy() {
		price, havePrice = s.cache.GetPrice(ctx, symbol)
	}
	if !havePrice {
		if quote, err := s.fetcher.Quote(ctx, symbol); err == nil {
			price, havePrice = quote, true
			if s.cache != nil {
				if err := s.cache.SetPrice(ctx, symbol, quote); err != nil {
					s.log.Debug("price cache write failed", "symbol", symbol, "error", err)
				}
			}
		}
	}
	if havePrice {
		s.engine.UpdatePrice(symbol, s.cfg.Timeframe, price)
	}

	sig, err := s.engine.Evaluate(symbol, s.cfg.Timeframe)
	if err != nil {
		s.log.Error("evaluation failed", "symbol", symbol, "error", err)
		return nil
	}
	if sig == nil {
		return nil
	}

	s.deliver(ctx, sig)
	return sig
}

// deliver pushes an emitted signal down every configured path. A
// failing path logs and does not block the others.
func (s *Scanner) deliver(ctx context.Context, sig *engine.Signal) {
	if s.repo != nil {
		rec := signalRecord(sig)
		if err := s.repo.SaveSignal(ctx, rec); err != nil {
			s.log.Error("signal persistence failed", "signal_id", sig.ID, "error", err)
		}
	}

	if s.cache != nil {
		if err := s.cache.SetLatestSignal(ctx, sig.Instrument, sig.Timeframe, sig); err != nil {
			s.log.Debug("signal cache write failed", "signal_id", sig.ID, "error", err)
		}
	}
}

func signalRecord(sig *engine.Signal) *database.SignalRecord {
	confirmations := make([]string, len(sig.Confirmations))
	for i, tok := range sig.Confirmations {
		confirmations[i] = string(tok)
	}
	return &database.SignalRecord{
		ID:              sig.ID,
		Instrument:      sig.Instrument,
		Timeframe:       sig.Timeframe,
		Direction:       string(sig.Direction),
		EntryPrice:      sig.EntryPrice,
		StopLoss:        sig.StopLoss,
		TakeProfit1:     sig.TakeProfit.T1,
		TakeProfit2:     sig.TakeProfit.T2,
		TakeProfit3:     sig.TakeProfit.T3,
		RiskRewardRatio: sig.RiskRewardRatio,
		Confidence:      sig.Confidence,
		Confirmations:   confirmations,
		AnalysisText:    sig.AnalysisText,
		SessionQuality:  sig.SessionQuality,
		GeneratedAt:     sig.GeneratedAt,
	}
}
