package services

import (
	"errors"
	"fmt"

	"github.com/feastly/ledger_backend/internal/apperrors"
	"github.com/feastly/ledger_backend/internal/core/domain"
)

var (
	ErrBatchEmpty       = errors.New("posting batch must not be empty")
	ErrBatchUnbalanced  = errors.New("posting batch does not sum to zero per order reference")
	ErrZeroAmount       = errors.New("posting amount must not be zero")
	ErrDisallowedType   = errors.New("posting type not allowed for event")
	ErrUnknownEventType = errors.New("unknown event type")
)

// allowedTypesByEvent is the compile-time table of posting types each business
// event may emit. Anything outside it indicates a bug in the orchestrator's
// event handling.
var allowedTypesByEvent = map[domain.EventType]map[domain.PostingType]struct{}{
	domain.EventDelivered: {
		domain.OrderRevenue:           {},
		domain.PlatformCommission:     {},
		domain.DeliveryEarning:        {},
		domain.RestaurantPayable:      {},
		domain.DeliveryPayable:        {},
		domain.PlatformDeliveryMargin: {},
		domain.CashCollected:          {},
		domain.ClientDebt:             {},
	},
	domain.EventCancelled: {
		domain.OrderRevenue:               {},
		domain.PlatformCommission:         {},
		domain.DeliveryEarning:            {},
		domain.RestaurantPayable:          {},
		domain.DeliveryPayable:            {},
		domain.PlatformDeliveryMargin:     {},
		domain.CashCollected:              {},
		domain.ClientDebt:                 {},
		domain.PlatformNotDeliveredRefund: {},
	},
	domain.EventRefunded: {
		domain.OrderRevenue:               {},
		domain.PlatformCommission:         {},
		domain.DeliveryEarning:            {},
		domain.RestaurantPayable:          {},
		domain.DeliveryPayable:            {},
		domain.PlatformDeliveryMargin:     {},
		domain.CashCollected:              {},
		domain.ClientDebt:                 {},
		domain.PlatformNotDeliveredRefund: {},
	},
	domain.EventPaymentFailed: {
		domain.OrderRevenue: {},
		domain.ClientDebt:   {},
	},
	domain.EventDebtRepayment: {
		domain.OrderRevenue: {},
		domain.ClientDebt:   {},
	},
	domain.EventAdjustment: {
		domain.RestaurantPayable: {},
		domain.DeliveryPayable:   {},
	},
	domain.EventSettlementPaid: {
		domain.SettlementPayment:   {},
		domain.SettlementReception: {},
	},
}

// ValidateBatch is the pure pre-commit check on a posting batch: the event
// type must be known, every posting type must be allowed for the event, no
// amount may be zero, and amounts grouped by order reference must each sum to
// zero. Violations wrap apperrors.ErrValidation and are non-retryable.
func ValidateBatch(eventType domain.EventType, postings []domain.Posting) error {
	if len(postings) == 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrBatchEmpty)
	}

	allowed, ok := allowedTypesByEvent[eventType]
	if !ok {
		return fmt.Errorf("%w: %s %q", apperrors.ErrValidation, ErrUnknownEventType, eventType)
	}

	for _, p := range postings {
		if !p.PostingType.Valid() {
			return fmt.Errorf("%w: unknown posting type %q", apperrors.ErrValidation, p.PostingType)
		}
		if _, ok := allowed[p.PostingType]; !ok {
			return fmt.Errorf("%w: %s: %s may not emit %s", apperrors.ErrValidation, ErrDisallowedType, eventType, p.PostingType)
		}
		if p.Amount == 0 {
			return fmt.Errorf("%w: %s (posting %s)", apperrors.ErrValidation, ErrZeroAmount, p.PostingID)
		}
	}

	for orderRef, sum := range domain.SumByOrderRef(postings) {
		if sum != 0 {
			return fmt.Errorf("%w: %s: order %q sums to %d", apperrors.ErrValidation, ErrBatchUnbalanced, orderRef, sum)
		}
	}

	return nil
}
