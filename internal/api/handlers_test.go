package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"smc-signal-engine/config"
	"smc-signal-engine/internal/cache"
	"smc-signal-engine/internal/engine"
	"smc-signal-engine/internal/logging"
)

func newTestServer() *Server {
	return newTestServerWithCache(nil)
}

func newTestServerWithCache(cs *cache.CacheService) *Server {
	log := logging.New(&logging.Config{Level: "ERROR", Output: "stderr", JSONFormat: true})
	eng := engine.New(engine.DefaultConfig(), log, nil)
	cfg := config.ServerConfig{Port: 0, Host: "127.0.0.1", AllowedOrigins: "*"}
	return NewServer(cfg, eng, nil, cs, nil, log)
}

// degradedCache builds a cache service pointed at a port nothing listens
// on, so it starts in degraded mode without network waits.
func degradedCache(t *testing.T) *cache.CacheService {
	t.Helper()
	log := logging.New(&logging.Config{Level: "ERROR", Output: "stderr", JSONFormat: true})
	cs, err := cache.NewCacheService(config.RedisConfig{Enabled: true, Address: "127.0.0.1:1"}, log)
	if err != nil {
		t.Fatalf("NewCacheService: %v", err)
	}
	if cs.IsHealthy() {
		t.Fatal("cache should start degraded without a reachable Redis")
	}
	return cs
}

func ingestBody(n int) string {
	var bars []string
	price := 1.1000
	for i := 0; i < n; i++ {
		bars = append(bars, fmt.Sprintf(
			`{"timestamp":%d,"open":%f,"high":%f,"low":%f,"close":%f,"volume":100}`,
			int64(i)*60000, price, price+0.0005, price-0.0001, price+0.0004))
		price += 0.0010
	}
	return `{"timeframe":"1h","bars":[` + strings.Join(bars, ",") + `]}`
}

// TestIngestEvaluateStructures walks the happy path: feed a breakout
// series, evaluate, then inspect the structures.
func TestIngestEvaluateStructures(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/instruments/EUR-USD/bars",
		strings.NewReader(ingestBody(60)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("ingest status = %d, body %s", w.Code, w.Body.String())
	}

	var ingest struct {
		Symbol   string `json:"symbol"`
		Ingested int    `json:"ingested"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &ingest); err != nil {
		t.Fatalf("decode ingest response: %v", err)
	}
	if ingest.Symbol != "EUR/USD" || ingest.Ingested != 60 {
		t.Errorf("ingest response = %+v", ingest)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/instruments/EUR-USD/evaluate?timeframe=1h", nil)
	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("evaluate status = %d, body %s", w.Code, w.Body.String())
	}

	var sig engine.Signal
	if err := json.Unmarshal(w.Body.Bytes(), &sig); err != nil {
		t.Fatalf("decode signal: %v", err)
	}
	if sig.Direction != "BUY" || sig.Confidence < 60 {
		t.Errorf("signal = direction %s confidence %d", sig.Direction, sig.Confidence)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/instruments/EUR-USD/structures?timeframe=1h", nil)
	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("structures status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"swing"`) {
		t.Errorf("structures body missing swing state: %s", w.Body.String())
	}
}

// TestEvaluateNoContent verifies a quiet market yields 204.
func TestEvaluateNoContent(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/instruments/EUR-USD/bars",
		strings.NewReader(ingestBody(10)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/instruments/EUR-USD/evaluate", nil)
	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
}

// TestStructuresUnknownInstrument verifies 404 for untracked symbols.
func TestStructuresUnknownInstrument(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/instruments/XXX-YYY/structures", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

// TestSignalFeedUnavailable verifies 503 when no store is configured.
func TestSignalFeedUnavailable(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/signals", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

// TestSignalFeedDegradedCache verifies the cache fallback refuses to
// query an unhealthy Redis and the feed answers 503 instead of hanging.
func TestSignalFeedDegradedCache(t *testing.T) {
	s := newTestServerWithCache(degradedCache(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/signals", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

// TestLatestSignalUnavailable verifies the latest-signal endpoint
// answers 503 when the cache is missing or degraded.
func TestLatestSignalUnavailable(t *testing.T) {
	for name, s := range map[string]*Server{
		"no cache":       newTestServer(),
		"degraded cache": newTestServerWithCache(degradedCache(t)),
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/instruments/EUR-USD/signals/latest", nil)
		w := httptest.NewRecorder()
		s.Router().ServeHTTP(w, req)
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: status = %d, want 503", name, w.Code)
		}
	}
}

// TestRateLimiter verifies the sliding window blocks excess requests.
func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, 100*time.Millisecond)

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Error("third request should be limited")
	}
	if !rl.Allow("b") {
		t.Error("independent key should not be limited")
	}
}
