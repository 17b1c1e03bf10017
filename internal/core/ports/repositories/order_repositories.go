package repositories

import (
	"context"

	"github.com/feastly/ledger_backend/internal/core/domain"
)

// OrderReader defines read operations for orchestrator order state
type OrderReader interface {
	// FindOrder retrieves the orchestrator state for an order, or
	// apperrors.ErrNotFound if no event was seen for it yet.
	FindOrder(ctx context.Context, orderRef string) (*domain.Order, error)

	// ListFlaggedOrders returns orders excluded from automated processing
	// because of a reconciliation conflict.
	ListFlaggedOrders(ctx context.Context) ([]domain.Order, error)
}

// OrderWriter defines write operations for orchestrator order state
type OrderWriter interface {
	// SaveOrder inserts or updates the order state row.
	SaveOrder(ctx context.Context, order domain.Order) error

	// FlagOrder marks an order as a reconciliation conflict with a reason.
	// Flagged orders are never auto-resolved.
	FlagOrder(ctx context.Context, orderRef string, reason string) error
}

// OrderRepositoryFacade combines all order-state repository interfaces
type OrderRepositoryFacade interface {
	OrderReader
	OrderWriter
}
