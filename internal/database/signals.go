package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/ansovision/mt5-community-api/internal/models"
)

// CreateSignal inserts a new signal with status pending and a
// server-assigned creation timestamp.
func (db *DB) CreateSignal(s *models.Signal) error {
	query := `
		INSERT INTO signals (
			symbol, action, volume, sl, tp, confidence, timeframe,
			limit_orders, reasoning, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	now := time.Now().UTC()
	s.Status = models.SignalStatusPending
	err := db.conn.QueryRow(query,
		s.Symbol, s.Action, s.Volume, s.StopLoss, s.TakeProfit, s.Confidence,
		s.Timeframe, s.LimitOrders, s.Reasoning, s.Status, now,
	).Scan(&s.ID)

	if err != nil {
		return fmt.Errorf("failed to create signal: %w", err)
	}
	s.CreatedAt = now
	return nil
}

// ClaimPendingSignals flips up to limit of the oldest pending signals to
// processing and returns them as they looked before the transition. The
// select and the status update share one transaction with row locks, so
// two concurrent pollers never receive overlapping sets.
func (db *DB) ClaimPendingSignals(limit int) ([]*models.Signal, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		SELECT id, symbol, action, volume, sl, tp, confidence, timeframe,
		       limit_orders, reasoning, status, created_at
		FROM signals
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := tx.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending signals: %w", err)
	}

	var signals []*models.Signal
	for rows.Next() {
		s, err := scanSignal(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		signals = append(signals, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pending signals: %w", err)
	}

	if len(signals) == 0 {
		return nil, tx.Commit()
	}

	ids := make([]int64, 0, len(signals))
	for _, s := range signals {
		ids = append(ids, int64(s.ID))
	}

	update := `UPDATE signals SET status = 'processing' WHERE id = ANY($1)`
	if _, err := tx.Exec(update, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to claim signals: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}

	return signals, nil
}

// GetSignalByID retrieves a single signal.
func (db *DB) GetSignalByID(id int) (*models.Signal, error) {
	query := `
		SELECT id, symbol, action, volume, sl, tp, confidence, timeframe,
		       limit_orders, reasoning, status, created_at
		FROM signals
		WHERE id = $1
	`
	row := db.conn.QueryRow(query, id)
	s, err := scanSignal(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("signal %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSignal(row rowScanner) (*models.Signal, error) {
	var s models.Signal
	var sl, tp sql.NullString
	var confidence sql.NullFloat64
	var reasoning sql.NullString

	err := row.Scan(
		&s.ID, &s.Symbol, &s.Action, &s.Volume, &sl, &tp, &confidence,
		&s.Timeframe, &s.LimitOrders, &reasoning, &s.Status, &s.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan signal: %w", err)
	}

	if sl.Valid {
		d, _ := decimal.NewFromString(sl.String)
		s.StopLoss = &d
	}
	if tp.Valid {
		d, _ := decimal.NewFromString(tp.String)
		s.TakeProfit = &d
	}
	if confidence.Valid {
		s.Confidence = confidence.Float64
	}
	if reasoning.Valid {
		s.Reasoning = reasoning.String
	}

	return &s, nil
}
