package repositories

import (
	"context"
	"time"

	"github.com/feastly/ledger_backend/internal/core/domain"
)

// SettlementBuilder is invoked by CreateSettlementForPeriod inside the
// storage transaction, after the period's unattached payables have been
// selected and locked. It builds the settlement row and the zero-sum payout
// posting batch to commit alongside it.
type SettlementBuilder func(payables []domain.Posting) (domain.Settlement, domain.PostingBatch, []domain.Posting, error)

// SettlementReader defines read operations for settlement data
type SettlementReader interface {
	// FindSettlementByID retrieves a settlement with its attached posting IDs.
	FindSettlementByID(ctx context.Context, settlementID string) (*domain.Settlement, error)

	// ListOpenSettlements returns settlements still awaiting payout-rail
	// confirmation, oldest first. olderThan of zero means no age cutoff.
	ListOpenSettlements(ctx context.Context, olderThan time.Duration) ([]domain.Settlement, error)
}

// SettlementWriter defines write operations for settlement data
type SettlementWriter interface {
	// CreateSettlementForPeriod runs the whole settlement write inside one
	// storage transaction: it takes the per-(account, period) advisory lock,
	// returns the existing settlement if one was already created, selects and
	// locks the period's payable postings not yet attached to any settlement,
	// and if any exist invokes build and commits the settlement, the
	// attachments and the payout batch together. The bool result reports
	// whether a new settlement was created by this call.
	CreateSettlementForPeriod(ctx context.Context, accountID string, period domain.SettlementPeriod, build SettlementBuilder) (*domain.Settlement, bool, error)

	// MarkSettlementPaid transitions a settlement OPEN -> PAID exactly once.
	// Returns apperrors.ErrDuplicate if it is already paid.
	MarkSettlementPaid(ctx context.Context, settlementID string, paidAt time.Time) error
}

// SettlementRepositoryFacade combines all settlement repository interfaces
type SettlementRepositoryFacade interface {
	SettlementReader
	SettlementWriter
}
