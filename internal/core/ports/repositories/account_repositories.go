package repositories

import (
	"context"

	"github.com/feastly/ledger_backend/internal/core/domain"
)

// AccountReader defines read operations for account data
type AccountReader interface {
	// FindAccountByID retrieves a specific account by its unique identifier.
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// ListAccountsByType retrieves every account of the given type. Used by
	// the settlement scheduler to enumerate payout candidates.
	ListAccountsByType(ctx context.Context, accountType domain.AccountType) ([]domain.Account, error)
}

// AccountWriter defines write operations for account data
type AccountWriter interface {
	// EnsureAccount returns the account for (type, owner), creating it if it
	// does not exist yet. Concurrent calls for the same pair return the same
	// row; accounts are never deleted.
	EnsureAccount(ctx context.Context, accountType domain.AccountType, ownerRef string) (*domain.Account, error)
}

// AccountRepositoryFacade combines all account-related repository interfaces
type AccountRepositoryFacade interface {
	AccountReader
	AccountWriter
}
