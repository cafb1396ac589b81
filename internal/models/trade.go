package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade records an execution confirmed by the terminal.
type Trade struct {
	ID        int             `json:"id"`
	Ticket    int64           `json:"ticket"`
	Symbol    string          `json:"symbol"`
	Action    string          `json:"action"`
	Volume    decimal.Decimal `json:"volume"`
	OpenPrice decimal.Decimal `json:"open_price"`
	Status    string          `json:"status"`
	OpenedAt  time.Time       `json:"opened_at"`
}

// TradeConfirmation is the terminal's execution report payload.
type TradeConfirmation struct {
	Ticket int64           `json:"ticket"`
	Action string          `json:"action"`
	Symbol string          `json:"symbol"`
	Volume decimal.Decimal `json:"volume"`
	Price  decimal.Decimal `json:"price"`
}
