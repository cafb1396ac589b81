package database

import (
	"fmt"
	"time"

	"github.com/ansovision/mt5-community-api/internal/models"
)

// CreateTrade records a trade confirmed by the terminal.
func (db *DB) CreateTrade(t *models.Trade) error {
	query := `
		INSERT INTO trades (ticket, symbol, action, volume, open_price, status, opened_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	if t.Status == "" {
		t.Status = "open"
	}
	if t.OpenedAt.IsZero() {
		t.OpenedAt = time.Now().UTC()
	}
	err := db.conn.QueryRow(query,
		t.Ticket, t.Symbol, t.Action, t.Volume, t.OpenPrice, t.Status, t.OpenedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to create trade %d: %w", t.Ticket, err)
	}
	return nil
}

// GetTradeHistory returns the most recent trades, newest first.
func (db *DB) GetTradeHistory(limit int) ([]*models.Trade, error) {
	query := `
		SELECT id, ticket, symbol, action, volume, open_price, status, opened_at
		FROM trades
		ORDER BY opened_at DESC
		LIMIT $1
	`
	rows, err := db.conn.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get trade history: %w", err)
	}
	defer rows.Close()

	var trades []*models.Trade
	for rows.Next() {
		var t models.Trade
		err := rows.Scan(&t.ID, &t.Ticket, &t.Symbol, &t.Action, &t.Volume, &t.OpenPrice, &t.Status, &t.OpenedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, &t)
	}

	return trades, rows.Err()
}
