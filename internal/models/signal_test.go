package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalRequest_Normalize_Defaults(t *testing.T) {
	req := &SignalRequest{
		Symbol: "EURUSD",
		Action: "buy",
	}

	signal, err := req.Normalize()
	require.NoError(t, err)

	assert.Equal(t, "EURUSD", signal.Symbol)
	assert.Equal(t, "BUY", signal.Action)
	assert.True(t, signal.Volume.Equal(decimal.NewFromFloat(0.01)))
	assert.Equal(t, 0.85, signal.Confidence)
	assert.Equal(t, "M15", signal.Timeframe)
	assert.Equal(t, SignalStatusPending, signal.Status)
	assert.Nil(t, signal.StopLoss)
	assert.Nil(t, signal.TakeProfit)
}

func TestSignalRequest_Normalize_ExplicitValues(t *testing.T) {
	sl := decimal.NewFromFloat(1.0850)
	tp := decimal.NewFromFloat(1.0950)
	confidence := 0.92

	req := &SignalRequest{
		Symbol:      "EURUSD",
		Action:      "SELL",
		Volume:      decimal.NewFromFloat(0.5),
		StopLoss:    &sl,
		TakeProfit:  &tp,
		Confidence:  &confidence,
		Timeframe:   "H1",
		LimitOrders: true,
		Reasoning:   "resistance rejection",
	}

	signal, err := req.Normalize()
	require.NoError(t, err)

	assert.Equal(t, "SELL", signal.Action)
	assert.True(t, signal.Volume.Equal(decimal.NewFromFloat(0.5)))
	assert.Equal(t, 0.92, signal.Confidence)
	assert.Equal(t, "H1", signal.Timeframe)
	assert.True(t, signal.LimitOrders)
	require.NotNil(t, signal.StopLoss)
	assert.True(t, signal.StopLoss.Equal(sl))
}

func TestSignalRequest_Normalize_MissingSymbol(t *testing.T) {
	req := &SignalRequest{Action: "BUY"}

	_, err := req.Normalize()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "symbol")
}

func TestSignalRequest_Normalize_MissingAction(t *testing.T) {
	req := &SignalRequest{Symbol: "EURUSD"}

	_, err := req.Normalize()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "action")
}

func TestSignalRequest_Normalize_InvalidAction(t *testing.T) {
	req := &SignalRequest{Symbol: "EURUSD", Action: "HOLD"}

	_, err := req.Normalize()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestSignalRequest_Normalize_NegativeVolume(t *testing.T) {
	req := &SignalRequest{
		Symbol: "EURUSD",
		Action: "BUY",
		Volume: decimal.NewFromFloat(-0.1),
	}

	_, err := req.Normalize()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestSignalRequest_Normalize_ConfidenceOutOfRange(t *testing.T) {
	confidence := 1.2
	req := &SignalRequest{
		Symbol:     "EURUSD",
		Action:     "BUY",
		Confidence: &confidence,
	}

	_, err := req.Normalize()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestSignalRequest_Normalize_ActionWhitespace(t *testing.T) {
	req := &SignalRequest{Symbol: "GBPUSD", Action: " sell "}

	signal, err := req.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "SELL", signal.Action)
}
