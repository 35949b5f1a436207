package analysis

import "smc-signal-engine/internal/market"

// fvgScanWindow is how many of the most recent bars are scanned for
// unfilled three-bar imbalances each cycle.
const fvgScanWindow = 5

// Gap is a three-bar fair value gap: the first and third bar of a triple
// leave a price range the middle bar never overlapped.
type Gap struct {
	Bullish bool    `json:"bullish"`
	Top     float64 `json:"top"`
	Bottom  float64 `json:"bottom"`
	Size    float64 `json:"size"`
}

// DetectGaps scans consecutive bar triples within the last five bars. A
// bullish gap exists when the first bar's high sits strictly below the
// third bar's low; bearish is the mirror. Gaps are evaluation-cycle
// evidence only; no fill tracking is kept.
func DetectGaps(bars []market.Bar) []Gap {
	if len(bars) < 3 {
		return nil
	}

	recent := bars
	if len(recent) > fvgScanWindow {
		recent = recent[len(recent)-fvgScanWindow:]
	}

	var gaps []Gap
	for i := 2; i < len(recent); i++ {
		first := recent[i-2]
		third := recent[i]

		if first.High < third.Low {
			gaps = append(gaps, Gap{
				Bullish: true,
				Top:     third.Low,
				Bottom:  first.High,
				Size:    third.Low - first.High,
			})
		}
		if first.Low > third.High {
			gaps = append(gaps, Gap{
				Bullish: false,
				Top:     first.Low,
				Bottom:  third.High,
				Size:    first.Low - third.High,
			})
		}
	}
	return gaps
}
