package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ansovision/mt5-community-api/internal/models"
)

// CreateUser inserts a new ledger entry with zero profit/loss.
func (db *DB) CreateUser(u *models.User) error {
	query := `
		INSERT INTO users (user_id, email, investment, profit_loss, created_at)
		VALUES ($1, $2, $3, 0, $4)
		RETURNING id
	`
	now := time.Now().UTC()
	err := db.conn.QueryRow(query, u.UserID, u.Email, u.Investment, now).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", u.UserID, err)
	}
	u.ProfitLoss = decimal.Zero
	u.CreatedAt = now
	return nil
}

// GetUser retrieves a user by external id.
func (db *DB) GetUser(userID string) (*models.User, error) {
	query := `
		SELECT id, user_id, email, investment, profit_loss, created_at
		FROM users
		WHERE user_id = $1
	`
	var u models.User
	err := db.conn.QueryRow(query, userID).Scan(
		&u.ID, &u.UserID, &u.Email, &u.Investment, &u.ProfitLoss, &u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	return &u, nil
}

// AddInvestment atomically increments a user's investment and returns the
// new total.
func (db *DB) AddInvestment(userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE users SET investment = investment + $2
		WHERE user_id = $1
		RETURNING investment
	`
	var total decimal.Decimal
	err := db.conn.QueryRow(query, userID, amount).Scan(&total)
	if err == sql.ErrNoRows {
		return decimal.Zero, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to add investment for %s: %w", userID, err)
	}
	return total, nil
}

// GetInvestedUsers returns all users holding a positive investment,
// ordered by user id for deterministic distribution runs.
func (db *DB) GetInvestedUsers() ([]*models.User, error) {
	query := `
		SELECT id, user_id, email, investment, profit_loss, created_at
		FROM users
		WHERE investment > 0
		ORDER BY user_id
	`
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get invested users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var u models.User
		err := rows.Scan(&u.ID, &u.UserID, &u.Email, &u.Investment, &u.ProfitLoss, &u.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &u)
	}

	return users, rows.Err()
}

// SetProfitLoss overwrites a user's allocated share of the latest account
// profit. The value replaces the previous allocation, it is not added.
func (db *DB) SetProfitLoss(userID string, profitLoss decimal.Decimal) error {
	query := `UPDATE users SET profit_loss = $2 WHERE user_id = $1`
	result, err := db.conn.Exec(query, userID, profitLoss)
	if err != nil {
		return fmt.Errorf("failed to set profit_loss for %s: %w", userID, err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return nil
}

// TotalInvestment sums pooled capital across all users.
func (db *DB) TotalInvestment() (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(investment), 0) FROM users`
	var total decimal.Decimal
	if err := db.conn.QueryRow(query).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum investments: %w", err)
	}
	return total, nil
}
