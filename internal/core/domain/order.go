package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderState is the orchestrator's view of an order, advanced only by events
// from the external order-lifecycle system.
type OrderState string

const (
	OrderPending   OrderState = "PENDING"
	OrderDelivered OrderState = "DELIVERED"
	OrderCancelled OrderState = "CANCELLED"
	OrderRefunded  OrderState = "REFUNDED"
)

// EventType names the business events that produce posting batches.
type EventType string

const (
	EventDelivered      EventType = "delivered"
	EventCancelled      EventType = "cancelled"
	EventRefunded       EventType = "refunded"
	EventPaymentFailed  EventType = "payment_failed"
	EventDebtRepayment  EventType = "debt_repayment"
	EventAdjustment     EventType = "adjustment"
	EventSettlementPaid EventType = "settlement_payout"
)

// PaymentMethod distinguishes online-captured orders from cash on delivery.
type PaymentMethod string

const (
	PaymentOnline PaymentMethod = "ONLINE"
	PaymentCash   PaymentMethod = "CASH"
)

// OrderEvent is the at-least-once event consumed from the order-lifecycle
// system. Amounts are integer minor units; CommissionRate is a fraction
// (0.15 for 15%).
type OrderEvent struct {
	OrderRef       string
	EventType      EventType
	Subtotal       int64
	DeliveryFee    int64
	CommissionRate decimal.Decimal
	PaymentMethod  PaymentMethod
	RestaurantRef  string // owner refs into the external identity system
	CourierRef     string
	ClientRef      string
	OccurredAt     time.Time
}

// IdempotencyKey derives the deterministic key that collapses duplicate
// deliveries of the same event into one committed batch.
func (e OrderEvent) IdempotencyKey() string {
	return fmt.Sprintf("order:%s:%s", e.OrderRef, e.EventType)
}

// Order is the orchestrator's persisted state for one order: the state
// machine position plus the amounts already posted, kept for reconciliation.
type Order struct {
	OrderRef       string
	State          OrderState
	Subtotal       int64
	DeliveryFee    int64
	CommissionRate decimal.Decimal
	PaymentMethod  PaymentMethod
	RestaurantRef  string
	CourierRef     string
	ClientRef      string
	Flagged        bool
	FlagReason     string
	UpdatedAt      time.Time
}

// CanTransition reports whether the state machine permits handling ev in the
// current state.
func (o Order) CanTransition(ev EventType) bool {
	switch ev {
	case EventDelivered:
		return o.State == OrderPending
	case EventCancelled, EventRefunded:
		return o.State == OrderPending || o.State == OrderDelivered
	case EventPaymentFailed, EventDebtRepayment:
		return o.State == OrderDelivered
	}
	return false
}
