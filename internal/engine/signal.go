package engine

import (
	"fmt"
	"strings"
	"time"

	"smc-signal-engine/internal/confluence"
	"smc-signal-engine/internal/market"
)

// TakeProfit holds the three target levels of a signal.
type TakeProfit struct {
	T1 float64 `json:"t1"`
	T2 float64 `json:"t2"`
	T3 float64 `json:"t3"`
}

// Signal is the finished output of a qualifying evaluation cycle.
// Immutable once created.
type Signal struct {
	ID                 string             `json:"id"`
	Instrument         string             `json:"instrument"`
	Timeframe          string             `json:"timeframe"`
	Direction          market.Direction   `json:"direction"`
	EntryPrice         float64            `json:"entryPrice"`
	StopLoss           float64            `json:"stopLoss"`
	TakeProfit         TakeProfit         `json:"takeProfit"`
	RiskRewardRatio    float64            `json:"riskRewardRatio"`
	Confidence         int                `json:"confidence"`
	Confirmations      []confluence.Token `json:"confirmations"`
	ConfirmationLabels []string           `json:"confirmationLabels"`
	AnalysisText       string             `json:"analysisText"`
	SessionQuality     string             `json:"sessionQuality"`
	GeneratedAt        time.Time          `json:"generatedAt"`
}

// analysisText renders the human-readable narrative shown alongside a
// signal in the dashboard feed.
func analysisText(symbol, timeframe string, dir market.Direction, confidence int, labels []string) string {
	strength := "developing"
	switch {
	case confidence >= 80:
		strength = "strong"
	case confidence >= 70:
		strength = "solid"
	}

	side := "bullish"
	if dir == market.DirectionSell {
		side = "bearish"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s shows a %s %s structure with %d confirmations: %s.",
		symbol, timeframe, strength, side, len(labels), strings.Join(labels, ", "))
	fmt.Fprintf(&b, " Confidence %d/100.", confidence)
	return b.String()
}

// sessionQuality tags the signal with the trading session active at
// generation time (UTC hours).
func sessionQuality(at time.Time) string {
	switch hour := at.UTC().Hour(); {
	case hour >= 13 && hour <= 16:
		return "Excellent (London/New York overlap)"
	case hour >= 8 && hour <= 12:
		return "Good (London session)"
	case hour >= 17 && hour <= 21:
		return "Good (New York session)"
	case hour >= 0 && hour <= 6:
		return "Fair (Asian session)"
	default:
		return "Low (session transition)"
	}
}
