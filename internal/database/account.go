package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ansovision/mt5-community-api/internal/models"
)

// CreateAccountSnapshot appends an account state row.
func (db *DB) CreateAccountSnapshot(s *models.AccountSnapshot) error {
	query := `
		INSERT INTO account_state (balance, equity, margin, free_margin, profit, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now().UTC()
	}
	err := db.conn.QueryRow(query,
		s.Balance, s.Equity, s.Margin, s.FreeMargin, s.Profit, s.Timestamp,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to create account snapshot: %w", err)
	}
	return nil
}

// LatestAccountSnapshot returns the most recent snapshot, or nil when no
// snapshot has been recorded yet.
func (db *DB) LatestAccountSnapshot() (*models.AccountSnapshot, error) {
	query := `
		SELECT id, balance, equity, margin, free_margin, profit, timestamp
		FROM account_state
		ORDER BY timestamp DESC
		LIMIT 1
	`
	var s models.AccountSnapshot
	err := db.conn.QueryRow(query).Scan(
		&s.ID, &s.Balance, &s.Equity, &s.Margin, &s.FreeMargin, &s.Profit, &s.Timestamp,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest account snapshot: %w", err)
	}
	return &s, nil
}
