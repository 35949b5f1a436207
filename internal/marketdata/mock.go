package marketdata

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"smc-signal-engine/internal/market"
)

// basePrices seed the simulator with realistic price levels per symbol.
var basePrices = map[string]float64{
	"EUR/USD": 1.0850,
	"GBP/USD": 1.2650,
	"USD/JPY": 149.50,
	"AUD/USD": 0.6550,
	"USD/CAD": 1.3600,
	"USD/CHF": 0.8800,
	"NZD/USD": 0.6100,
	"XAU/USD": 2030.00,
	"BTC/USD": 43000.00,
}

// MockProvider generates deterministic-enough random-walk data so the
// rest of the system stays exercisable without an upstream API.
type MockProvider struct {
	mu     sync.Mutex
	rng    *rand.Rand
	prices map[string]float64
}

// NewMockProvider creates a simulator seeded from the wall clock.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		prices: make(map[string]float64),
	}
}

func (p *MockProvider) Name() string { return "mock" }

func (p *MockProvider) basePrice(symbol string) float64 {
	if price, ok := p.prices[symbol]; ok {
		return price
	}
	price, ok := basePrices[symbol]
	if !ok {
		price = 1.0
	}
	p.prices[symbol] = price
	return price
}

// volatility scales the walk step to roughly 0.05% of price per bar.
func volatility(price float64) float64 {
	return price * 0.0005
}

// HistoricalBars synthesizes a random walk ending at the symbol's
// current simulated price.
func (p *MockProvider) HistoricalBars(_ context.Context, symbol, timeframe string, limit int) ([]market.Bar, error) {
	if limit <= 0 {
		limit = 100
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	price := p.basePrice(symbol)
	step := barInterval(timeframe)
	now := time.Now().Truncate(step)
	start := now.Add(-time.Duration(limit-1) * step)

	bars := make([]market.Bar, 0, limit)
	for i := 0; i < limit; i++ {
		vol := volatility(price)
		open := price
		drift := (p.rng.Float64() - 0.5) * 2 * vol
		close := open + drift
		high := math.Max(open, close) + p.rng.Float64()*vol*0.5
		low := math.Min(open, close) - p.rng.Float64()*vol*0.5

		bars = append(bars, market.Bar{
			Timestamp: start.Add(time.Duration(i) * step).UnixMilli(),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    1000 + p.rng.Float64()*9000,
		})
		price = close
	}

	p.prices[symbol] = price
	return bars, nil
}

// Quote returns the symbol's simulated price advanced by one small step.
func (p *MockProvider) Quote(_ context.Context, symbol string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	price := p.basePrice(symbol)
	price += (p.rng.Float64() - 0.5) * 2 * volatility(price)
	p.prices[symbol] = price
	return price, nil
}

func barInterval(timeframe string) time.Duration {
	switch timeframe {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	default:
		return time.Hour
	}
}
