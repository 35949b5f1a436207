package database

import "time"

// SignalRecord is the persisted form of an emitted signal.
type SignalRecord struct {
	ID              string    `json:"id"`
	Instrument      string    `json:"instrument"`
	Timeframe       string    `json:"timeframe"`
	Direction       string    `json:"direction"`
	EntryPrice      float64   `json:"entryPrice"`
	StopLoss        float64   `json:"stopLoss"`
	TakeProfit1     float64   `json:"takeProfit1"`
	TakeProfit2     float64   `json:"takeProfit2"`
	TakeProfit3     float64   `json:"takeProfit3"`
	RiskRewardRatio float64   `json:"riskRewardRatio"`
	Confidence      int       `json:"confidence"`
	Confirmations   []string  `json:"confirmations"`
	AnalysisText    string    `json:"analysisText"`
	SessionQuality  string    `json:"sessionQuality"`
	GeneratedAt     time.Time `json:"generatedAt"`
	CreatedAt       time.Time `json:"createdAt"`
}
