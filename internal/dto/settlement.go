package dto

import (
	"time"

	"github.com/feastly/ledger_backend/internal/core/domain"
)

// RunSettlementRequest triggers a settlement run for one account and period.
// The periodic scheduler issues the same call internally.
type RunSettlementRequest struct {
	AccountID   string    `json:"accountId" binding:"required"`
	PeriodStart time.Time `json:"periodStart" binding:"required"`
	PeriodEnd   time.Time `json:"periodEnd" binding:"required,gtfield=PeriodStart"`
}

// SettlementConfirmationRequest is the asynchronous callback from the payout
// rail. A failure leaves the settlement open for operator resolution; it is
// never retried into a duplicate payout.
type SettlementConfirmationRequest struct {
	SettlementID string `json:"settlementId" binding:"required"`
	Status       string `json:"status" binding:"required,oneof=success failure"`
}

// SettlementResponse is the external view of a settlement.
type SettlementResponse struct {
	SettlementID string     `json:"settlementID"`
	AccountID    string     `json:"accountID"`
	PeriodStart  time.Time  `json:"periodStart"`
	PeriodEnd    time.Time  `json:"periodEnd"`
	Status       string     `json:"status"`
	TotalAmount  int64      `json:"totalAmount"`
	PostingCount int        `json:"postingCount"`
	CreatedAt    time.Time  `json:"createdAt"`
	PaidAt       *time.Time `json:"paidAt,omitempty"`
}

// ToSettlementResponse converts a domain.Settlement to its response DTO.
func ToSettlementResponse(s *domain.Settlement) SettlementResponse {
	return SettlementResponse{
		SettlementID: s.SettlementID,
		AccountID:    s.AccountID,
		PeriodStart:  s.Period.Start,
		PeriodEnd:    s.Period.End,
		Status:       string(s.Status),
		TotalAmount:  s.TotalAmount,
		PostingCount: len(s.PostingIDs),
		CreatedAt:    s.CreatedAt,
		PaidAt:       s.PaidAt,
	}
}

// ToSettlementResponses converts a slice of settlements.
func ToSettlementResponses(settlements []domain.Settlement) []SettlementResponse {
	out := make([]SettlementResponse, len(settlements))
	for i := range settlements {
		out[i] = ToSettlementResponse(&settlements[i])
	}
	return out
}
