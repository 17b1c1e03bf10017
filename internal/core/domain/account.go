package domain

import "time"

// AccountType identifies which kind of marketplace participant owns an account.
type AccountType string

const (
	AccountClient        AccountType = "CLIENT"
	AccountRestaurant    AccountType = "RESTAURANT"
	AccountDeliveryAgent AccountType = "DELIVERY_AGENT"
	AccountPlatform      AccountType = "PLATFORM"
)

// PlatformOwnerRef is the fixed owner reference of the platform singleton account.
const PlatformOwnerRef = "platform"

// Account represents a ledger participant. Exactly one account exists per
// (type, owner) pair; accounts are created lazily on first posting and never
// deleted. Balances are always derived from postings, never stored here.
type Account struct {
	AccountID   string      `json:"accountID"`
	AccountType AccountType `json:"accountType"`
	OwnerRef    string      `json:"ownerRef"` // Opaque id into the external identity system
	CreatedAt   time.Time   `json:"createdAt"`
}

// IsSettleable reports whether the settlement batch engine pays this account
// type out. Clients are receivable-side only and the platform is the payout
// counterparty itself.
func (t AccountType) IsSettleable() bool {
	return t == AccountRestaurant || t == AccountDeliveryAgent
}

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountClient, AccountRestaurant, AccountDeliveryAgent, AccountPlatform:
		return true
	}
	return false
}
