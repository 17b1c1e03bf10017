package services

import (
	"context"
	"time"

	"github.com/feastly/ledger_backend/internal/core/domain"
)

// BalanceSvcFacade computes derived account balances by replay over the
// immutable ledger. No cached or stored running balances exist anywhere.
type BalanceSvcFacade interface {
	// GetBalance returns the account position as of the given time (nil
	// means now).
	GetBalance(ctx context.Context, accountID string, asOf *time.Time) (*domain.Balance, error)
}

// SettlementSvcFacade is the periodic payout engine.
type SettlementSvcFacade interface {
	// RunSettlement converts the account's unsettled in-period payables into
	// one settlement and its payout posting batch. Re-running a settled
	// period returns the existing settlement without new postings; a period
	// with nothing to pay returns (nil, nil).
	RunSettlement(ctx context.Context, accountID string, period domain.SettlementPeriod) (*domain.Settlement, error)

	// RunDuePeriod settles the previous period for every settleable account.
	// Called by the cron scheduler; per-account failures are logged and do
	// not stop the sweep.
	RunDuePeriod(ctx context.Context, now time.Time) error

	// ConfirmSettlement applies the payout rail's asynchronous confirmation.
	// Success marks the settlement paid exactly once; failure leaves it open
	// for operator resolution.
	ConfirmSettlement(ctx context.Context, settlementID string, success bool) (*domain.Settlement, error)

	// ListOpenSettlements surfaces settlements awaiting confirmation.
	ListOpenSettlements(ctx context.Context, olderThan time.Duration) ([]domain.Settlement, error)
}
