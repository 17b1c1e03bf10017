package repositories

import (
	"context"
	"time"

	"github.com/feastly/ledger_backend/internal/core/domain"
)

// LedgerWriter defines the single write operation of the ledger store.
type LedgerWriter interface {
	// AppendBatch commits a batch and its postings atomically. If a batch
	// with the same idempotency key was already committed the call is a no-op
	// that returns the prior result with AlreadyCommitted set. There is no
	// update or delete operation; the ledger is append-only.
	AppendBatch(ctx context.Context, batch domain.PostingBatch, postings []domain.Posting) (*domain.BatchResult, error)
}

// LedgerReader defines read operations over committed batches and postings.
type LedgerReader interface {
	// FindBatchByIdempotencyKey returns a previously committed batch and its
	// postings, or apperrors.ErrNotFound.
	FindBatchByIdempotencyKey(ctx context.Context, key string) (*domain.BatchResult, error)

	// FindPostingsByOrderRef returns every posting referencing an order, in
	// creation order.
	FindPostingsByOrderRef(ctx context.Context, orderRef string) ([]domain.Posting, error)

	// ListPostings returns a filtered page of postings joined with their
	// account, newest first, plus the total row count for page math.
	ListPostings(ctx context.Context, filter domain.PostingFilter, limit, offset int) ([]domain.TransactionRow, int64, error)

	// ListPostingsByAccount retrieves postings for one account using
	// token-based pagination over (created_at, posting_id).
	ListPostingsByAccount(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.Posting, *string, error)
}

// BalanceReader defines the aggregation reads behind the balance service.
// All three are snapshot-consistent index scans over (account_id, created_at)
// and never block writers.
type BalanceReader interface {
	// SumPostings returns the replay sum of every posting for the account
	// with created_at <= asOf.
	SumPostings(ctx context.Context, accountID string, asOf time.Time) (int64, error)

	// SumUnsettledPayables sums payable-type postings for the account not yet
	// referenced by a paid settlement, up to asOf.
	SumUnsettledPayables(ctx context.Context, accountID string, asOf time.Time) (int64, error)

	// SumOutstandingDebt sums CLIENT_DEBT postings for the account up to
	// asOf. The result is negative or zero; zero means the debt was repaid.
	SumOutstandingDebt(ctx context.Context, accountID string, asOf time.Time) (int64, error)
}

// LedgerRepositoryFacade combines all ledger repository interfaces
type LedgerRepositoryFacade interface {
	LedgerWriter
	LedgerReader
	BalanceReader
}
