package distributor

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ansovision/mt5-community-api/internal/metrics"
	"github.com/ansovision/mt5-community-api/internal/models"
)

// Outcome describes how a distribution run ended.
type Outcome string

const (
	// OutcomeApplied means every invested user received their share.
	OutcomeApplied Outcome = "applied"
	// OutcomePartial means at least one per-user write failed; the rest landed.
	OutcomePartial Outcome = "partial"
	// OutcomeSkipped means there was nothing to distribute to.
	OutcomeSkipped Outcome = "skipped"
)

// UserFailure records a per-user write that did not land.
type UserFailure struct {
	UserID string
	Err    error
}

// Result reports exactly what a distribution run wrote, so callers and
// tests can observe partial failure instead of uniform silent success.
type Result struct {
	Outcome  Outcome
	Users    int
	Failures []UserFailure
}

// UserLedger is the slice of storage the distributor needs.
type UserLedger interface {
	GetInvestedUsers() ([]*models.User, error)
	SetProfitLoss(userID string, profitLoss decimal.Decimal) error
}

// Distributor splits the account's reported profit/loss across users in
// proportion to their share of the pooled investment.
type Distributor struct {
	ledger UserLedger
	log    zerolog.Logger
}

// New creates a Distributor over the given ledger.
func New(ledger UserLedger, log zerolog.Logger) *Distributor {
	return &Distributor{ledger: ledger, log: log}
}

// Distribute overwrites each invested user's profit_loss with their share
// of totalProfit. Shares are rounded to cents and the final user receives
// the residual, so the allocations always sum exactly to totalProfit.
// Per-user write failures are collected in the result rather than aborting
// the run; only a failure to read the ledger returns an error.
func (d *Distributor) Distribute(totalProfit decimal.Decimal) (Result, error) {
	users, err := d.ledger.GetInvestedUsers()
	if err != nil {
		metrics.DistributionsTotal.WithLabelValues(string(OutcomeSkipped)).Inc()
		return Result{Outcome: OutcomeSkipped}, fmt.Errorf("failed to load invested users: %w", err)
	}
	if len(users) == 0 {
		metrics.DistributionsTotal.WithLabelValues(string(OutcomeSkipped)).Inc()
		return Result{Outcome: OutcomeSkipped}, nil
	}

	totalInvestment := decimal.Zero
	for _, u := range users {
		totalInvestment = totalInvestment.Add(u.Investment)
	}
	if !totalInvestment.IsPositive() {
		// Unreachable through the investment > 0 filter; guards a bypassed filter.
		metrics.DistributionsTotal.WithLabelValues(string(OutcomeSkipped)).Inc()
		return Result{Outcome: OutcomeSkipped}, nil
	}

	result := Result{Users: len(users)}
	allocated := decimal.Zero
	for i, u := range users {
		share := totalProfit.Mul(u.Investment).DivRound(totalInvestment, 2)
		if i == len(users)-1 {
			share = totalProfit.Sub(allocated)
		}
		allocated = allocated.Add(share)

		if err := d.ledger.SetProfitLoss(u.UserID, share); err != nil {
			d.log.Error().Err(err).Str("user_id", u.UserID).Msg("profit allocation write failed")
			result.Failures = append(result.Failures, UserFailure{UserID: u.UserID, Err: err})
			continue
		}
	}

	if len(result.Failures) > 0 {
		result.Outcome = OutcomePartial
	} else {
		result.Outcome = OutcomeApplied
	}
	metrics.DistributionsTotal.WithLabelValues(string(result.Outcome)).Inc()

	d.log.Info().
		Str("total_profit", totalProfit.String()).
		Int("users", result.Users).
		Int("failures", len(result.Failures)).
		Str("outcome", string(result.Outcome)).
		Msg("profits distributed")

	return result, nil
}
