package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// TestGenerateSampleConfig verifies the sample file is valid JSON that
// round-trips into a usable configuration.
func TestGenerateSampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	if err := GenerateSampleConfig(path); err != nil {
		t.Fatalf("GenerateSampleConfig: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("sample is not valid JSON: %v", err)
	}
	if cfg.EngineConfig.LookbackSwing != 50 || cfg.EngineConfig.LookbackInternal != 5 {
		t.Errorf("engine lookbacks = %d/%d, want 50/5",
			cfg.EngineConfig.LookbackSwing, cfg.EngineConfig.LookbackInternal)
	}
	if cfg.ServerConfig.Port != 8080 {
		t.Errorf("server port = %d, want 8080", cfg.ServerConfig.Port)
	}
	if len(cfg.ScannerConfig.Symbols) == 0 {
		t.Error("sample has no scanner symbols")
	}
}
