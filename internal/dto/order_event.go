package dto

import (
	"time"

	"github.com/feastly/ledger_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// OrderEventRequest is the webhook payload from the order-lifecycle system.
// Delivery is at-least-once; duplicates collapse on the idempotency key
// derived from (orderId, eventType). Amounts are integer minor units.
type OrderEventRequest struct {
	OrderID        string          `json:"orderId" binding:"required"`
	EventType      string          `json:"eventType" binding:"required,oneof=delivered cancelled refunded"`
	Subtotal       int64           `json:"subtotal" binding:"required,gt=0"`
	DeliveryFee    int64           `json:"deliveryFee" binding:"gte=0"`
	CommissionRate decimal.Decimal `json:"commissionRate" binding:"required"`
	PaymentMethod  string          `json:"paymentMethod" binding:"required,oneof=ONLINE CASH"`
	RestaurantID   string          `json:"restaurantId" binding:"required"`
	CourierID      string          `json:"courierId" binding:"required"`
	ClientID       string          `json:"clientId" binding:"required"`
	Timestamp      time.Time       `json:"timestamp" binding:"required"`
}

// ToDomain maps the request onto the orchestrator's event type.
func (r OrderEventRequest) ToDomain() domain.OrderEvent {
	return domain.OrderEvent{
		OrderRef:       r.OrderID,
		EventType:      domain.EventType(r.EventType),
		Subtotal:       r.Subtotal,
		DeliveryFee:    r.DeliveryFee,
		CommissionRate: r.CommissionRate,
		PaymentMethod:  domain.PaymentMethod(r.PaymentMethod),
		RestaurantRef:  r.RestaurantID,
		CourierRef:     r.CourierID,
		ClientRef:      r.ClientID,
		OccurredAt:     r.Timestamp,
	}
}

// PaymentFailureRequest reports that a client's stated payment method failed
// after delivery. Whether this creates a tracked client debt or a write-off
// is a configured policy.
type PaymentFailureRequest struct {
	OrderID string `json:"orderId" binding:"required"`
}

// DebtRepaymentRequest reports a client repaying previously tracked debt.
type DebtRepaymentRequest struct {
	OrderID string `json:"orderId" binding:"required"`
	Amount  int64  `json:"amount" binding:"required,gt=0"`
}

// AdjustmentRequest credits a restaurant or delivery agent outside the order
// flow (bonus, complaint compensation). Negative amounts claw back.
type AdjustmentRequest struct {
	AccountID string `json:"accountId" binding:"required"`
	Amount    int64  `json:"amount" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
}

// BatchResultResponse reports the outcome of a posting batch commit.
type BatchResultResponse struct {
	BatchID          string `json:"batchID"`
	IdempotencyKey   string `json:"idempotencyKey"`
	PostingCount     int    `json:"postingCount"`
	AlreadyCommitted bool   `json:"alreadyCommitted"`
}

// ToBatchResultResponse converts a domain.BatchResult to its response DTO.
func ToBatchResultResponse(res *domain.BatchResult) BatchResultResponse {
	return BatchResultResponse{
		BatchID:          res.Batch.BatchID,
		IdempotencyKey:   res.Batch.IdempotencyKey,
		PostingCount:     len(res.Postings),
		AlreadyCommitted: res.AlreadyCommitted,
	}
}

// FlaggedOrderResponse surfaces a reconciliation conflict to operators.
type FlaggedOrderResponse struct {
	OrderID    string    `json:"orderId"`
	State      string    `json:"state"`
	FlagReason string    `json:"flagReason"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ToFlaggedOrderResponses converts flagged domain orders for the operator UI.
func ToFlaggedOrderResponses(orders []domain.Order) []FlaggedOrderResponse {
	out := make([]FlaggedOrderResponse, len(orders))
	for i, o := range orders {
		out[i] = FlaggedOrderResponse{
			OrderID:    o.OrderRef,
			State:      string(o.State),
			FlagReason: o.FlagReason,
			UpdatedAt:  o.UpdatedAt,
		}
	}
	return out
}
