package database

import (
	"context"
	"encoding/json"
	"fmt"
)

// Repository provides data access methods
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// HealthCheck performs a database health check
func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.db.Pool.Ping(ctx)
}

// SaveSignal inserts an emitted signal.
func (r *Repository) SaveSignal(ctx context.Context, rec *SignalRecord) error {
	confirmations, err := json.Marshal(rec.Confirmations)
	if err != nil {
		return fmt.Errorf("marshal confirmations: %w", err)
	}

	query := `
		INSERT INTO signals (
			id, instrument, timeframe, direction,
			entry_price, stop_loss, take_profit_1, take_profit_2, take_profit_3,
			risk_reward_ratio, confidence, confirmations,
			analysis_text, session_quality, generated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at
	`
	return r.db.Pool.QueryRow(
		ctx, query,
		rec.ID, rec.Instrument, rec.Timeframe, rec.Direction,
		rec.EntryPrice, rec.StopLoss, rec.TakeProfit1, rec.TakeProfit2, rec.TakeProfit3,
		rec.RiskRewardRatio, rec.Confidence, confirmations,
		rec.AnalysisText, rec.SessionQuality, rec.GeneratedAt,
	).Scan(&rec.CreatedAt)
}

// RecentSignals returns the newest signals, optionally filtered by
// instrument. A non-positive limit defaults to 50.
func (r *Repository) RecentSignals(ctx context.Context, instrument string, limit int) ([]SignalRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, instrument, timeframe, direction,
		       entry_price, stop_loss, take_profit_1, take_profit_2, take_profit_3,
		       risk_reward_ratio, confidence, confirmations,
		       analysis_text, session_quality, generated_at, created_at
		FROM signals
	`
	args := []interface{}{}
	if instrument != "" {
		query += ` WHERE instrument = $1`
		args = append(args, instrument)
	}
	query += fmt.Sprintf(` ORDER BY generated_at DESC LIMIT %d`, limit)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var records []SignalRecord
	for rows.Next() {
		var rec SignalRecord
		var confirmations []byte
		if err := rows.Scan(
			&rec.ID, &rec.Instrument, &rec.Timeframe, &rec.Direction,
			&rec.EntryPrice, &rec.StopLoss, &rec.TakeProfit1, &rec.TakeProfit2, &rec.TakeProfit3,
			&rec.RiskRewardRatio, &rec.Confidence, &confirmations,
			&rec.AnalysisText, &rec.SessionQuality, &rec.GeneratedAt, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		if err := json.Unmarshal(confirmations, &rec.Confirmations); err != nil {
			rec.Confirmations = nil
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
