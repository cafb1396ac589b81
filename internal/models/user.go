package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is an entry in the pooled-investment ledger. ProfitLoss holds the
// user's share of the most recently reported account profit; it is
// overwritten on every distribution, not accumulated.
type User struct {
	ID         int             `json:"id"`
	UserID     string          `json:"user_id"`
	Email      string          `json:"email"`
	Investment decimal.Decimal `json:"investment"`
	ProfitLoss decimal.Decimal `json:"profit_loss"`
	CreatedAt  time.Time       `json:"created_at"`
}

// InvestmentRequest is the payload for adding capital to the pool.
type InvestmentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}
