// Package marketdata supplies OHLCV bars and spot quotes to the signal
// engine. A provider chain routes each request to the configured
// upstream and can fall back to simulated data, so the engine keeps
// producing evaluations when the upstream is down or rate limited.
package marketdata

import (
	"context"
	"errors"

	"smc-signal-engine/internal/market"
)

var (
	// ErrUnauthorized maps upstream 401/403 responses.
	ErrUnauthorized = errors.New("market data provider rejected credentials")
	// ErrRateLimited maps upstream 429 responses.
	ErrRateLimited = errors.New("market data provider rate limit exceeded")
	// ErrSymbolNotFound maps upstream 404 responses.
	ErrSymbolNotFound = errors.New("symbol not found at market data provider")
)

// Provider fetches bars and quotes for one upstream source.
type Provider interface {
	// Name identifies the provider in logs.
	Name() string
	// HistoricalBars returns up to limit bars for the symbol and
	// timeframe, ordered ascending by timestamp.
	HistoricalBars(ctx context.Context, symbol, timeframe string, limit int) ([]market.Bar, error)
	// Quote returns the current price for the symbol.
	Quote(ctx context.Context, symbol string) (float64, error)
}
