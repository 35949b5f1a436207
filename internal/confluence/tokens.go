package confluence

import "strings"

// Token identifies one confirmation fired during an evaluation cycle.
// Tokens are stable identifiers used for scoring; display labels come
// from Label. They are produced fresh each cycle and never persisted.
type Token string

const (
	TokenSwingBullishBOS       Token = "swingBullishBOS"
	TokenSwingBearishBOS       Token = "swingBearishBOS"
	TokenSwingBullishCHoCH     Token = "swingBullishCHoCH"
	TokenSwingBearishCHoCH     Token = "swingBearishCHoCH"
	TokenInternalBullishBOS    Token = "internalBullishBOS"
	TokenInternalBearishBOS    Token = "internalBearishBOS"
	TokenInternalBullishCHoCH  Token = "internalBullishCHoCH"
	TokenInternalBearishCHoCH  Token = "internalBearishCHoCH"
	TokenSwingOrderBlock       Token = "swingOrderBlockRespect"
	TokenInternalOrderBlock    Token = "internalOrderBlockRespect"
	TokenBullishFVG            Token = "bullishFairValueGap"
	TokenBearishFVG            Token = "bearishFairValueGap"
	TokenEqualHighsBreak       Token = "equalHighsBreak"
	TokenEqualLowsBreak        Token = "equalLowsBreak"
	TokenPremiumZoneEntry      Token = "premiumZoneEntry"
	TokenDiscountZoneEntry     Token = "discountZoneEntry"
	TokenEquilibriumZone       Token = "equilibriumZone"
	TokenMultiTimeframeAligned Token = "multiTimeframeAlignment"
	TokenVolumeConfirmation    Token = "volumeConfirmation"
	TokenStrongWeakHighLow     Token = "strongWeakHighLow"
	TokenATRVolatilityFilter   Token = "atrVolatilityFilter"
)

// Primary reports whether the token is a structural break confirmation.
// Primary tokens drive the confluence bonus and the signal quality gate.
func (t Token) Primary() bool {
	s := string(t)
	return strings.Contains(s, "BOS") || strings.Contains(s, "CHoCH")
}

var labels = map[Token]string{
	TokenSwingBullishBOS:       "Swing Bullish BOS",
	TokenSwingBearishBOS:       "Swing Bearish BOS",
	TokenSwingBullishCHoCH:     "Swing Bullish CHoCH",
	TokenSwingBearishCHoCH:     "Swing Bearish CHoCH",
	TokenInternalBullishBOS:    "Internal Bullish BOS",
	TokenInternalBearishBOS:    "Internal Bearish BOS",
	TokenInternalBullishCHoCH:  "Internal Bullish CHoCH",
	TokenInternalBearishCHoCH:  "Internal Bearish CHoCH",
	TokenSwingOrderBlock:       "Swing Order Block Respect",
	TokenInternalOrderBlock:    "Internal Order Block Respect",
	TokenBullishFVG:            "Bullish Fair Value Gap",
	TokenBearishFVG:            "Bearish Fair Value Gap",
	TokenEqualHighsBreak:       "Equal Highs Break",
	TokenEqualLowsBreak:        "Equal Lows Break",
	TokenPremiumZoneEntry:      "Premium Zone Entry",
	TokenDiscountZoneEntry:     "Discount Zone Entry",
	TokenEquilibriumZone:       "Equilibrium Zone",
	TokenMultiTimeframeAligned: "Multi-Timeframe Alignment",
	TokenVolumeConfirmation:    "Volume Confirmation",
	TokenStrongWeakHighLow:     "Strong/Weak High-Low",
	TokenATRVolatilityFilter:   "ATR Volatility Filter",
}

// Label returns the human-readable display label for the token. Unknown
// tokens fall back to their raw identifier.
func (t Token) Label() string {
	if label, ok := labels[t]; ok {
		return label
	}
	return string(t)
}

// Labels maps a token list to display labels, preserving order.
func Labels(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Label()
	}
	return out
}

// Dedupe returns the tokens with duplicates removed, first occurrence
// order preserved. Scoring runs over the raw fired list; the ordered set
// is what a Signal carries.
func Dedupe(tokens []Token) []Token {
	seen := make(map[Token]bool, len(tokens))
	var out []Token
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
