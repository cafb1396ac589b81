package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountSnapshot is one append-only reading of the trading account state
// as reported by the terminal.
type AccountSnapshot struct {
	ID         int             `json:"id"`
	Balance    decimal.Decimal `json:"balance"`
	Equity     decimal.Decimal `json:"equity"`
	Margin     decimal.Decimal `json:"margin"`
	FreeMargin decimal.Decimal `json:"free_margin"`
	Profit     decimal.Decimal `json:"profit"`
	Timestamp  time.Time       `json:"timestamp"`
}

// AccountUpdate is the terminal's account report payload.
type AccountUpdate struct {
	Balance    decimal.Decimal `json:"balance"`
	Equity     decimal.Decimal `json:"equity"`
	Margin     decimal.Decimal `json:"margin"`
	FreeMargin decimal.Decimal `json:"free_margin"`
	Profit     decimal.Decimal `json:"profit"`
}

// AccountSummary combines the latest snapshot with pooled-investment totals
// and the active account configuration. Account is an empty object, not
// null, when no snapshot exists yet.
type AccountSummary struct {
	Account         any             `json:"account"`
	TotalInvestment decimal.Decimal `json:"total_investment"`
	AccountMode     string          `json:"account_mode"`
	AccountNumber   string          `json:"account_number"`
	Server          string          `json:"server"`
	IsDemo          bool            `json:"is_demo"`
}
