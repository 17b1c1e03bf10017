package services

import (
	"context"

	"github.com/feastly/ledger_backend/internal/core/domain"
)

// OrchestratorSvcFacade translates order lifecycle events into posting
// batches. All operations are idempotent under retry.
type OrchestratorSvcFacade interface {
	// HandleOrderEvent processes one at-least-once event from the order
	// lifecycle system. Duplicate deliveries return the originally committed
	// batch. An event whose amounts contradict earlier postings for the same
	// order returns apperrors.ErrReconciliation and flags the order.
	HandleOrderEvent(ctx context.Context, event domain.OrderEvent) (*domain.BatchResult, error)

	// HandlePaymentFailure applies the configured payment-failure policy to a
	// delivered order: track a client debt or write the amount off.
	HandlePaymentFailure(ctx context.Context, orderRef string) (*domain.BatchResult, error)

	// RecordDebtRepayment posts a repayment against an order's outstanding
	// client debt.
	RecordDebtRepayment(ctx context.Context, orderRef string, amount int64) (*domain.BatchResult, error)

	// RecordAdjustment credits (or claws back from) a restaurant or delivery
	// agent account outside the order flow, offset on the platform account.
	RecordAdjustment(ctx context.Context, accountID string, amount int64, reason string) (*domain.BatchResult, error)

	// ListFlaggedOrders returns orders held for manual reconciliation review.
	ListFlaggedOrders(ctx context.Context) ([]domain.Order, error)
}
