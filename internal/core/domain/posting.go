package domain

import "time"

// PostingType is the closed enumeration of ledger entry kinds.
type PostingType string

const (
	OrderRevenue               PostingType = "ORDER_REVENUE"
	PlatformCommission         PostingType = "PLATFORM_COMMISSION"
	DeliveryEarning            PostingType = "DELIVERY_EARNING"
	CashCollected              PostingType = "CASH_COLLECTED"
	SettlementPayment          PostingType = "SETTLEMENT_PAYMENT"
	SettlementReception        PostingType = "SETTLEMENT_RECEPTION"
	RestaurantPayable          PostingType = "RESTAURANT_PAYABLE"
	DeliveryPayable            PostingType = "DELIVERY_PAYABLE"
	PlatformDeliveryMargin     PostingType = "PLATFORM_DELIVERY_MARGIN"
	PlatformNotDeliveredRefund PostingType = "PLATFORM_NOT_DELIVERED_REFUND"
	ClientDebt                 PostingType = "CLIENT_DEBT"
)

// PayableTypes are the posting types the settlement batch engine converts
// into payouts. They only count as payables on restaurant and delivery agent
// accounts; the same types on the platform account are funding entries.
var PayableTypes = []PostingType{
	OrderRevenue,
	RestaurantPayable,
	DeliveryEarning,
	DeliveryPayable,
}

// Valid reports whether t is a known posting type.
func (t PostingType) Valid() bool {
	switch t {
	case OrderRevenue, PlatformCommission, DeliveryEarning, CashCollected,
		SettlementPayment, SettlementReception, RestaurantPayable,
		DeliveryPayable, PlatformDeliveryMargin, PlatformNotDeliveredRefund,
		ClientDebt:
		return true
	}
	return false
}

// Posting is one immutable, append-only ledger entry: a signed amount in
// integer minor currency units against one account. Corrections are made by
// appending a reversing entry, never by mutation.
type Posting struct {
	PostingID   string      `json:"postingID"`
	BatchID     string      `json:"batchID"`
	PostingType PostingType `json:"postingType"`
	AccountID   string      `json:"accountID"`
	Amount      int64       `json:"amount"` // Signed minor units, never zero
	OrderRef    string      `json:"orderRef,omitempty"`
	Description string      `json:"description"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// PostingBatch is the unit of atomicity: all postings generated for one
// business event commit together or not at all. The idempotency key makes
// re-delivery of the same event collapse to a single committed batch.
type PostingBatch struct {
	BatchID        string    `json:"batchID"`
	IdempotencyKey string    `json:"idempotencyKey"`
	OrderRef       string    `json:"orderRef,omitempty"`
	EventType      EventType `json:"eventType"`
	CreatedAt      time.Time `json:"createdAt"`
}

// BatchResult is returned by the ledger store on commit. AlreadyCommitted is
// true when the idempotency key had been seen before and the prior result is
// being replayed.
type BatchResult struct {
	Batch            PostingBatch `json:"batch"`
	Postings         []Posting    `json:"postings"`
	AlreadyCommitted bool         `json:"alreadyCommitted"`
}

// SumByOrderRef groups posting amounts by order reference. Double-entry
// closure requires every group to sum to zero.
func SumByOrderRef(postings []Posting) map[string]int64 {
	sums := make(map[string]int64)
	for _, p := range postings {
		sums[p.OrderRef] += p.Amount
	}
	return sums
}
