package marketdata

import (
	"context"
	"sync"
	"time"

	"smc-signal-engine/internal/logging"
	"smc-signal-engine/internal/market"
)

type cachedQuote struct {
	price     float64
	fetchedAt time.Time
}

// Fetcher is the provider chain the rest of the service talks to: a
// primary provider, an optional mock fallback, and a short-lived quote
// cache that absorbs bursty polling.
type Fetcher struct {
	primary  Provider
	fallback Provider
	cacheTTL time.Duration
	log      *logging.Logger

	mu     sync.Mutex
	quotes map[string]cachedQuote
}

// NewFetcher wires a primary provider with an optional fallback. A nil
// fallback disables degradation; failures then propagate to callers.
func NewFetcher(primary, fallback Provider, cacheTTL time.Duration, log *logging.Logger) *Fetcher {
	return &Fetcher{
		primary:  primary,
		fallback: fallback,
		cacheTTL: cacheTTL,
		log:      log.WithComponent("marketdata"),
		quotes:   make(map[string]cachedQuote),
	}
}

// HistoricalBars fetches bars from the primary provider, degrading to
// the fallback when the primary fails.
func (f *Fetcher) HistoricalBars(ctx context.Context, symbol, timeframe string, limit int) ([]market.Bar, error) {
	bars, err := f.primary.HistoricalBars(ctx, symbol, timeframe, limit)
	if err == nil && len(bars) > 0 {
		return bars, nil
	}

	if f.fallback == nil {
		return bars, err
	}

	f.log.Warn("primary provider failed, using fallback",
		"provider", f.primary.Name(), "symbol", symbol, "error", err)
	return f.fallback.HistoricalBars(ctx, symbol, timeframe, limit)
}

// Quote returns the current price, memoized for the cache TTL.
func (f *Fetcher) Quote(ctx context.Context, symbol string) (float64, error) {
	f.mu.Lock()
	if cached, ok := f.quotes[symbol]; ok && time.Since(cached.fetchedAt) < f.cacheTTL {
		f.mu.Unlock()
		return cached.price, nil
	}
	f.mu.Unlock()

	price, err := f.primary.Quote(ctx, symbol)
	if err != nil && f.fallback != nil {
		f.log.Warn("primary quote failed, using fallback",
			"provider", f.primary.Name(), "symbol", symbol, "error", err)
		price, err = f.fallback.Quote(ctx, symbol)
	}
	if err != nil {
		return 0, err
	}

	f.mu.Lock()
	f.quotes[symbol] = cachedQuote{price: price, fetchedAt: time.Now()}
	f.mu.Unlock()
	return price, nil
}
