package scanner

import (
	"context"
	"testing"

	"smc-signal-engine/config"
	"smc-signal-engine/internal/engine"
	"smc-signal-engine/internal/logging"
	"smc-signal-engine/internal/marketdata"
)

// TestScanSymbolWithMockData verifies a scan pass against the simulator
// populates engine state without errors.
func TestScanSymbolWithMockData(t *testing.T) {
	log := logging.New(&logging.Config{Level: "ERROR", Output: "stderr", JSONFormat: true})
	eng := engine.New(engine.DefaultConfig(), log, nil)
	fetcher := marketdata.NewFetcher(marketdata.NewMockProvider(), nil, 0, log)

	cfg := config.ScannerConfig{
		Symbols:   []string{"EUR/USD", "USD/JPY"},
		Timeframe: "1h",
		BarLimit:  100,
	}
	s := New(cfg, eng, fetcher, nil, nil, nil, log)

	s.scanAll(context.Background())

	if got := eng.TrackedInstruments(); got != 2 {
		t.Errorf("TrackedInstruments = %d, want 2", got)
	}
	snap, ok := eng.ActiveStructures("EUR/USD", "1h")
	if !ok {
		t.Fatal("EUR/USD not tracked after scan")
	}
	if snap.Bars == 0 {
		t.Error("no bars ingested during scan")
	}
	if snap.Price == nil {
		t.Error("quote not stored during scan")
	}
}
