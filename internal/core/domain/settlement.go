package domain

import (
	"fmt"
	"time"
)

// SettlementStatus is the lifecycle of a settlement: OPEN until the payout
// rail confirms the transfer, then PAID. There is no failed state; an
// unconfirmed settlement stays OPEN for operator resolution.
type SettlementStatus string

const (
	SettlementOpen SettlementStatus = "OPEN"
	SettlementPaid SettlementStatus = "PAID"
)

// SettlementPeriod bounds one payout run. Start is inclusive, End exclusive.
type SettlementPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Key renders the period for idempotency keys and lock hashing.
func (p SettlementPeriod) Key() string {
	return fmt.Sprintf("%s..%s", p.Start.UTC().Format("2006-01-02"), p.End.UTC().Format("2006-01-02"))
}

// PreviousPeriod returns the settlement window of `days` length ending at the
// start of the current day in UTC. Used by the periodic scheduler.
func PreviousPeriod(now time.Time, days int) SettlementPeriod {
	end := now.UTC().Truncate(24 * time.Hour)
	return SettlementPeriod{Start: end.AddDate(0, 0, -days), End: end}
}

// Settlement groups the payable postings of one account in one period into a
// single payout. A payable posting belongs to at most one settlement, and at
// most one settlement exists per (account, period).
type Settlement struct {
	SettlementID string           `json:"settlementID"`
	AccountID    string           `json:"accountID"`
	Period       SettlementPeriod `json:"period"`
	Status       SettlementStatus `json:"status"`
	TotalAmount  int64            `json:"totalAmount"` // Minor units, always positive
	PostingIDs   []string         `json:"postingIDs"`  // The payables this settlement covers
	CreatedAt    time.Time        `json:"createdAt"`
	PaidAt       *time.Time       `json:"paidAt,omitempty"`
}

// SettlementIdempotencyKey keys the payout posting batch for one account and
// period so a crashed run can be retried without a duplicate payout.
func SettlementIdempotencyKey(accountID string, period SettlementPeriod) string {
	return fmt.Sprintf("settlement:%s:%s", accountID, period.Key())
}
