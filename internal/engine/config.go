package engine

import (
	"fmt"
	"time"

	"smc-signal-engine/internal/market"
)

// Config holds the tunable parameters of the signal engine. Zero values
// are not usable; start from DefaultConfig and override.
type Config struct {
	LookbackSwing               int           `json:"lookback_swing"`
	LookbackInternal            int           `json:"lookback_internal"`
	RiskRewardRatio             float64       `json:"risk_reward_ratio"`
	Cooldown                    time.Duration `json:"cooldown"`
	MinConfirmations            int           `json:"min_confirmations"`
	MinConfidence               int           `json:"min_confidence"`
	UseInternalConfluenceFilter bool          `json:"use_internal_confluence_filter"`
	HistoryCapacity             int           `json:"history_capacity"`
	MinBars                     int           `json:"min_bars"`
	MaxInstruments              int           `json:"max_instruments"`
}

// DefaultConfig returns the production parameter set.
func DefaultConfig() Config {
	return Config{
		LookbackSwing:               50,
		LookbackInternal:            5,
		RiskRewardRatio:             2.0,
		Cooldown:                    5 * time.Minute,
		MinConfirmations:            4,
		MinConfidence:               60,
		UseInternalConfluenceFilter: true,
		HistoryCapacity:             market.DefaultCapacity,
		MinBars:                     25,
		MaxInstruments:              64,
	}
}

// Validate checks every parameter range. Evaluate calls this on entry
// and fails fast before touching instrument state.
func (c Config) Validate() error {
	if c.LookbackSwing <= 0 {
		return fmt.Errorf("%w: lookback_swing must be positive, got %d", ErrInvalidConfig, c.LookbackSwing)
	}
	if c.LookbackInternal <= 0 {
		return fmt.Errorf("%w: lookback_internal must be positive, got %d", ErrInvalidConfig, c.LookbackInternal)
	}
	if c.LookbackInternal >= c.LookbackSwing {
		return fmt.Errorf("%w: lookback_internal %d must be smaller than lookback_swing %d",
			ErrInvalidConfig, c.LookbackInternal, c.LookbackSwing)
	}
	if c.RiskRewardRatio <= 0 {
		return fmt.Errorf("%w: risk_reward_ratio must be positive, got %v", ErrInvalidConfig, c.RiskRewardRatio)
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("%w: cooldown must not be negative, got %v", ErrInvalidConfig, c.Cooldown)
	}
	if c.MinConfirmations < 1 {
		return fmt.Errorf("%w: min_confirmations must be at least 1, got %d", ErrInvalidConfig, c.MinConfirmations)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 100 {
		return fmt.Errorf("%w: min_confidence must be in [0,100], got %d", ErrInvalidConfig, c.MinConfidence)
	}
	if c.HistoryCapacity <= 0 {
		return fmt.Errorf("%w: history_capacity must be positive, got %d", ErrInvalidConfig, c.HistoryCapacity)
	}
	if c.MinBars <= 0 {
		return fmt.Errorf("%w: min_bars must be positive, got %d", ErrInvalidConfig, c.MinBars)
	}
	if c.MaxInstruments <= 0 {
		return fmt.Errorf("%w: max_instruments must be positive, got %d", ErrInvalidConfig, c.MaxInstruments)
	}
	return nil
}
