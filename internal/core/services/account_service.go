package services

import (
	"context"

	"github.com/feastly/ledger_backend/internal/core/domain"
	portsrepo "github.com/feastly/ledger_backend/internal/core/ports/repositories"
	portssvc "github.com/feastly/ledger_backend/internal/core/ports/services"
)

// accountService resolves ledger participants. Accounts exist one per
// (type, owner); they come into being on first use and are never deleted.
type accountService struct {
	accountRepo portsrepo.AccountRepositoryFacade
}

// NewAccountService creates a new AccountService.
func NewAccountService(accountRepo portsrepo.AccountRepositoryFacade) portssvc.AccountSvcFacade {
	return &accountService{accountRepo: accountRepo}
}

var _ portssvc.AccountSvcFacade = (*accountService)(nil)

func (s *accountService) EnsureAccount(ctx context.Context, accountType domain.AccountType, ownerRef string) (*domain.Account, error) {
	return s.accountRepo.EnsureAccount(ctx, accountType, ownerRef)
}

func (s *accountService) GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.accountRepo.FindAccountByID(ctx, accountID)
}

// PlatformAccount returns the platform singleton account, creating it on
// first use like any other account.
func (s *accountService) PlatformAccount(ctx context.Context) (*domain.Account, error) {
	return s.accountRepo.EnsureAccount(ctx, domain.AccountPlatform, domain.PlatformOwnerRef)
}

func (s *accountService) ListSettleableAccounts(ctx context.Context) ([]domain.Account, error) {
	restaurants, err := s.accountRepo.ListAccountsByType(ctx, domain.AccountRestaurant)
	if err != nil {
		return nil, err
	}
	agents, err := s.accountRepo.ListAccountsByType(ctx, domain.AccountDeliveryAgent)
	if err != nil {
		return nil, err
	}
	return append(restaurants, agents...), nil
}
