package services

import (
	"context"
	"time"

	"github.com/feastly/ledger_backend/internal/core/domain"
	portsrepo "github.com/feastly/ledger_backend/internal/core/ports/repositories"
	portssvc "github.com/feastly/ledger_backend/internal/core/ports/services"
)

// balanceService derives account positions by replay over the immutable
// ledger. Nothing is cached; the settlement engine and operator UIs read the
// same snapshot-consistent aggregation.
type balanceService struct {
	accountSvc portssvc.AccountSvcFacade
	balances   portsrepo.BalanceReader
}

// NewBalanceService creates a new BalanceService.
func NewBalanceService(accountSvc portssvc.AccountSvcFacade, ledgerRepo portsrepo.LedgerRepositoryFacade) portssvc.BalanceSvcFacade {
	return &balanceService{accountSvc: accountSvc, balances: ledgerRepo}
}

var _ portssvc.BalanceSvcFacade = (*balanceService)(nil)

// GetBalance returns the account position as of the given time (nil = now).
func (s *balanceService) GetBalance(ctx context.Context, accountID string, asOf *time.Time) (*domain.Balance, error) {
	account, err := s.accountSvc.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	at := time.Now().UTC()
	if asOf != nil {
		at = asOf.UTC()
	}

	available, err := s.balances.SumPostings(ctx, accountID, at)
	if err != nil {
		return nil, err
	}

	balance := &domain.Balance{
		AccountID: accountID,
		Available: available,
		AsOf:      at,
	}

	// Payables only exist on accounts the settlement engine pays out; the
	// same posting types on the platform account are funding entries.
	if account.AccountType.IsSettleable() {
		payable, err := s.balances.SumUnsettledPayables(ctx, accountID, at)
		if err != nil {
			return nil, err
		}
		balance.PayablePending = payable
	}

	if account.AccountType == domain.AccountClient {
		debt, err := s.balances.SumOutstandingDebt(ctx, accountID, at)
		if err != nil {
			return nil, err
		}
		// Outstanding debt is a negative replay sum; expose the receivable
		// as the positive amount the client owes.
		balance.ReceivablePending = -debt
	}

	return balance, nil
}
