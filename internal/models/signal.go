package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrValidation marks malformed client input. Handlers map it to a 400.
var ErrValidation = errors.New("validation failed")

// Signal lifecycle states. A signal moves pending -> processing when a
// terminal claims it; it never moves back.
const (
	SignalStatusPending    = "pending"
	SignalStatusProcessing = "processing"
)

// Trade directions accepted from the signal generator.
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
)

// Defaults applied when the generator omits optional fields.
var (
	DefaultVolume     = decimal.NewFromFloat(0.01) // minimum lot
	DefaultConfidence = 0.85
	DefaultTimeframe  = "M15"
)

// Signal represents a trade instruction awaiting pickup by the terminal.
type Signal struct {
	ID          int              `json:"id"`
	Symbol      string           `json:"symbol"`
	Action      string           `json:"action"`
	Volume      decimal.Decimal  `json:"volume"`
	StopLoss    *decimal.Decimal `json:"sl,omitempty"`
	TakeProfit  *decimal.Decimal `json:"tp,omitempty"`
	Confidence  float64          `json:"confidence,omitempty"`
	Timeframe   string           `json:"timeframe"`
	LimitOrders bool             `json:"limit_orders"`
	Reasoning   string           `json:"reasoning,omitempty"`
	Status      string           `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
}

// SignalRequest is the ingress payload from the signal generator.
type SignalRequest struct {
	Symbol      string           `json:"symbol"`
	Action      string           `json:"action"`
	Volume      decimal.Decimal  `json:"volume"`
	StopLoss    *decimal.Decimal `json:"sl"`
	TakeProfit  *decimal.Decimal `json:"tp"`
	Confidence  *float64         `json:"confidence"`
	Timeframe   string           `json:"timeframe"`
	LimitOrders bool             `json:"limit_orders"`
	Reasoning   string           `json:"reasoning"`
}

// Normalize validates the request and applies terminal defaults, returning
// the signal ready for insertion. The action is upper-cased; volume falls
// back to the minimum lot, confidence to 0.85 and timeframe to M15.
func (r *SignalRequest) Normalize() (*Signal, error) {
	if strings.TrimSpace(r.Symbol) == "" {
		return nil, fmt.Errorf("symbol is required: %w", ErrValidation)
	}

	action := strings.ToUpper(strings.TrimSpace(r.Action))
	if action == "" {
		return nil, fmt.Errorf("action is required: %w", ErrValidation)
	}
	if action != ActionBuy && action != ActionSell {
		return nil, fmt.Errorf("action must be BUY or SELL, got %q: %w", r.Action, ErrValidation)
	}

	volume := r.Volume
	if volume.IsZero() {
		volume = DefaultVolume
	}
	if volume.IsNegative() {
		return nil, fmt.Errorf("volume must be positive: %w", ErrValidation)
	}

	confidence := DefaultConfidence
	if r.Confidence != nil {
		if *r.Confidence < 0 || *r.Confidence > 1 {
			return nil, fmt.Errorf("confidence must be within [0,1]: %w", ErrValidation)
		}
		confidence = *r.Confidence
	}

	timeframe := r.Timeframe
	if timeframe == "" {
		timeframe = DefaultTimeframe
	}

	return &Signal{
		Symbol:      r.Symbol,
		Action:      action,
		Volume:      volume,
		StopLoss:    r.StopLoss,
		TakeProfit:  r.TakeProfit,
		Confidence:  confidence,
		Timeframe:   timeframe,
		LimitOrders: r.LimitOrders,
		Reasoning:   r.Reasoning,
		Status:      SignalStatusPending,
	}, nil
}
