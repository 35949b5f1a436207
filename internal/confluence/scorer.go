package confluence

import "math"

// Point values per confirmation token. Major structural breaks score
// highest, supporting evidence lowest.
var pointValues = map[Token]int{
	TokenSwingBullishBOS:       30,
	TokenSwingBearishBOS:       30,
	TokenSwingBullishCHoCH:     25,
	TokenSwingBearishCHoCH:     25,
	TokenInternalBullishBOS:    20,
	TokenInternalBearishBOS:    20,
	TokenInternalBullishCHoCH:  18,
	TokenInternalBearishCHoCH:  18,
	TokenSwingOrderBlock:       22,
	TokenInternalOrderBlock:    18,
	TokenBullishFVG:            15,
	TokenBearishFVG:            15,
	TokenEqualHighsBreak:       12,
	TokenEqualLowsBreak:        12,
	TokenPremiumZoneEntry:      10,
	TokenDiscountZoneEntry:     10,
	TokenEquilibriumZone:       8,
	TokenMultiTimeframeAligned: 8,
	TokenVolumeConfirmation:    6,
	TokenStrongWeakHighLow:     5,
	TokenATRVolatilityFilter:   4,
}

// Points returns the scoring weight of a token. Unknown tokens score 0.
func (t Token) Points() int {
	return pointValues[t]
}

const (
	confluenceBonus  = 10
	thinEvidenceMult = 0.8
	thinEvidenceMin  = 4
)

// Score aggregates the tokens fired in one evaluation cycle into a
// confidence value in [0,100]. The stage order matters and must not be
// rearranged: sum, then the two-primary confluence bonus, then the
// thin-evidence penalty, then clamp and round.
func Score(tokens []Token) int {
	total := 0.0
	primaries := 0
	for _, t := range tokens {
		points := t.Points()
		if points == 0 {
			continue
		}
		total += float64(points)
		if t.Primary() {
			primaries++
		}
	}

	if primaries >= 2 {
		total += confluenceBonus
	}
	if len(tokens) < thinEvidenceMin {
		total *= thinEvidenceMult
	}

	score := int(math.Round(total))
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// CountPrimaries returns how many tokens in the list are structural
// break confirmations.
func CountPrimaries(tokens []Token) int {
	n := 0
	for _, t := range tokens {
		if t.Primary() {
			n++
		}
	}
	return n
}
