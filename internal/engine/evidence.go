package engine

import (
	"math"

	"smc-signal-engine/internal/analysis"
	"smc-signal-engine/internal/confluence"
	"smc-signal-engine/internal/market"
)

const (
	zoneWindow         = 50
	premiumThreshold   = 0.70
	discountThreshold  = 0.30
	equilibriumBand    = 0.05
	volumeWindow       = 10
	volumeSpikeFactor  = 1.2
	equalLevelWindow   = 20
	equalLevelRelTol   = 0.0002
	atrFloorOfPrice    = 0.0001
	atrCeilingOfPrice  = 0.02
)

// supportingTokens gathers the non-structural evidence for the current
// cycle: price zone relative to the recent range, macro/micro bias
// alignment, volume expansion, equal-level breaks and the volatility
// sanity filter. Each detector degrades to no token on thin data.
func supportingTokens(bars []market.Bar, swingBias, internalBias market.Bias) []confluence.Token {
	var tokens []confluence.Token
	price := bars[len(bars)-1].Close

	if t, ok := zoneToken(bars, price); ok {
		tokens = append(tokens, t)
	}

	if swingBias != market.BiasNeutral && swingBias == internalBias {
		tokens = append(tokens, confluence.TokenMultiTimeframeAligned)
	}

	if volumeExpansion(bars) {
		tokens = append(tokens, confluence.TokenVolumeConfirmation)
	}

	if equalLevelBreak(bars, price, true) {
		tokens = append(tokens, confluence.TokenEqualHighsBreak)
	}
	if equalLevelBreak(bars, price, false) {
		tokens = append(tokens, confluence.TokenEqualLowsBreak)
	}

	atr := analysis.CalculateATR(bars, analysis.ATRPeriod)
	if price > 0 {
		ratio := atr / price
		if ratio >= atrFloorOfPrice && ratio <= atrCeilingOfPrice {
			tokens = append(tokens, confluence.TokenATRVolatilityFilter)
		}
	}

	return tokens
}

// zoneToken places the current price within the recent trading range:
// premium (upper third), discount (lower third), or equilibrium (near
// the midpoint).
func zoneToken(bars []market.Bar, price float64) (confluence.Token, bool) {
	window := bars
	if len(window) > zoneWindow {
		window = window[len(window)-zoneWindow:]
	}

	high, low := window[0].High, window[0].Low
	for _, b := range window[1:] {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}

	span := high - low
	if span <= 0 {
		return "", false
	}

	position := (price - low) / span
	switch {
	case position >= premiumThreshold:
		return confluence.TokenPremiumZoneEntry, true
	case position <= discountThreshold:
		return confluence.TokenDiscountZoneEntry, true
	case math.Abs(position-0.5) <= equilibriumBand:
		return confluence.TokenEquilibriumZone, true
	}
	return "", false
}

// volumeExpansion reports whether the newest bar's volume exceeds the
// trailing average by the spike factor.
func volumeExpansion(bars []market.Bar) bool {
	if len(bars) < volumeWindow+1 {
		return false
	}

	prior := bars[len(bars)-1-volumeWindow : len(bars)-1]
	sum := 0.0
	for _, b := range prior {
		sum += b.Volume
	}
	avg := sum / float64(len(prior))
	if avg <= 0 {
		return false
	}
	return bars[len(bars)-1].Volume > avg*volumeSpikeFactor
}

// equalLevelBreak looks for a pair of near-equal highs (or lows) in the
// recent window that the current price has now broken through. Equal
// highs mark resting liquidity; a close beyond both is treated as a
// liquidity sweep.
func equalLevelBreak(bars []market.Bar, price float64, highs bool) bool {
	if len(bars) < 3 || price <= 0 {
		return false
	}

	window := bars[:len(bars)-1]
	if len(window) > equalLevelWindow {
		window = window[len(window)-equalLevelWindow:]
	}
	if len(window) < 2 {
		return false
	}

	// Top two extremes of the window.
	best, second := math.Inf(-1), math.Inf(-1)
	if !highs {
		best, second = math.Inf(1), math.Inf(1)
	}
	for _, b := range window {
		if highs {
			switch {
			case b.High > best:
				second, best = best, b.High
			case b.High > second:
				second = b.High
			}
		} else {
			switch {
			case b.Low < best:
				second, best = best, b.Low
			case b.Low < second:
				second = b.Low
			}
		}
	}
	if math.IsInf(second, 0) {
		return false
	}

	if math.Abs(best-second)/price > equalLevelRelTol {
		return false
	}
	if highs {
		return price > best
	}
	return price < best
}
