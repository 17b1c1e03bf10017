package services

import (
	"context"

	"github.com/feastly/ledger_backend/internal/core/domain"
)

// LedgerSvcFacade is the ledger store's service surface: validate-then-commit
// of posting batches. Reads go through the reporting and balance facades.
type LedgerSvcFacade interface {
	// AppendBatch validates the batch (zero-sum per order reference, allowed
	// types for the event, no zero amounts) and commits it atomically.
	// Re-submitting an already committed idempotency key returns the prior
	// result with AlreadyCommitted set.
	AppendBatch(ctx context.Context, batch domain.PostingBatch, postings []domain.Posting) (*domain.BatchResult, error)
}

// AccountSvcFacade resolves ledger participants, creating accounts lazily.
type AccountSvcFacade interface {
	// EnsureAccount returns the account for (type, owner), creating it on
	// first use.
	EnsureAccount(ctx context.Context, accountType domain.AccountType, ownerRef string) (*domain.Account, error)

	// GetAccountByID retrieves an account or apperrors.ErrNotFound.
	GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// PlatformAccount returns the platform singleton account.
	PlatformAccount(ctx context.Context) (*domain.Account, error)

	// ListSettleableAccounts lists restaurant and delivery agent accounts for
	// the settlement scheduler.
	ListSettleableAccounts(ctx context.Context) ([]domain.Account, error)
}
