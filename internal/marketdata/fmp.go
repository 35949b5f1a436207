package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"smc-signal-engine/internal/logging"
	"smc-signal-engine/internal/market"
)

// timeframe names accepted by the historical-chart endpoint.
var fmpTimeframes = map[string]string{
	"1m":  "1min",
	"5m":  "5min",
	"15m": "15min",
	"30m": "30min",
	"1h":  "1hour",
	"4h":  "4hour",
	"1d":  "1day",
}

// FMPProvider fetches forex bars and quotes from a Financial Modeling
// Prep compatible REST API.
type FMPProvider struct {
	baseURL    string
	apiKey     string
	maxRetries int
	client     *http.Client
	log        *logging.Logger
}

// NewFMPProvider creates a provider against the given base URL.
func NewFMPProvider(baseURL, apiKey string, timeout time.Duration, maxRetries int, log *logging.Logger) *FMPProvider {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &FMPProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		maxRetries: maxRetries,
		client:     &http.Client{Timeout: timeout},
		log:        log.WithComponent("marketdata.fmp"),
	}
}

func (p *FMPProvider) Name() string { return "fmp" }

type fmpBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

type fmpQuote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// HistoricalBars fetches the historical chart for the symbol. The
// upstream returns newest first; bars are reversed to ascending order.
func (p *FMPProvider) HistoricalBars(ctx context.Context, symbol, timeframe string, limit int) ([]market.Bar, error) {
	interval, ok := fmpTimeframes[timeframe]
	if !ok {
		return nil, fmt.Errorf("unsupported timeframe %q", timeframe)
	}

	endpoint := fmt.Sprintf("%s/historical-chart/%s/%s?apikey=%s",
		p.baseURL, interval, url.PathEscape(apiSymbol(symbol)), url.QueryEscape(p.apiKey))

	var raw []fmpBar
	if err := p.getJSON(ctx, endpoint, &raw); err != nil {
		return nil, err
	}

	bars := make([]market.Bar, 0, len(raw))
	for _, rb := range raw {
		ts, err := parseFMPDate(rb.Date)
		if err != nil {
			continue
		}
		bars = append(bars, market.Bar{
			Timestamp: ts,
			Open:      rb.Open,
			High:      rb.High,
			Low:       rb.Low,
			Close:     rb.Close,
			Volume:    rb.Volume,
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp < bars[j].Timestamp })
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}

// Quote fetches the current price for the symbol.
func (p *FMPProvider) Quote(ctx context.Context, symbol string) (float64, error) {
	endpoint := fmt.Sprintf("%s/quote/%s?apikey=%s",
		p.baseURL, url.PathEscape(apiSymbol(symbol)), url.QueryEscape(p.apiKey))

	var quotes []fmpQuote
	if err := p.getJSON(ctx, endpoint, &quotes); err != nil {
		return 0, err
	}
	if len(quotes) == 0 || quotes[0].Price <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}
	return quotes[0].Price, nil
}

// getJSON performs a GET with exponential backoff on transient
// failures. Credential and not-found errors are terminal and do not
// retry.
func (p *FMPProvider) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			p.log.Debug("retrying market data request", "attempt", attempt+1, "backoff", backoff.String())
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}

		resp, err := p.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		switch resp.StatusCode {
		case http.StatusOK:
			err = json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				lastErr = fmt.Errorf("decode response: %w", err)
				continue
			}
			return nil
		case http.StatusUnauthorized, http.StatusForbidden:
			resp.Body.Close()
			return ErrUnauthorized
		case http.StatusNotFound:
			resp.Body.Close()
			return ErrSymbolNotFound
		case http.StatusTooManyRequests:
			resp.Body.Close()
			lastErr = ErrRateLimited
			continue
		default:
			resp.Body.Close()
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
			continue
		}
	}
	return lastErr
}

// apiSymbol strips the slash convention ("EUR/USD" -> "EURUSD") for the
// upstream path.
func apiSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "")
}

// parseFMPDate parses the provider's "2006-01-02 15:04:05" timestamps
// into unix milliseconds.
func parseFMPDate(s string) (int64, error) {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		t, err = time.Parse("2006-01-02", s)
		if err != nil {
			return 0, err
		}
	}
	return t.UnixMilli(), nil
}
