package domain

import "time"

// PostingFilter narrows posting list and export queries. Nil/zero fields are
// ignored. From is inclusive, To exclusive.
type PostingFilter struct {
	PostingType *PostingType
	AccountType *AccountType
	From        *time.Time
	To          *time.Time
}

// TransactionRow is the flat export shape: one row per posting, stable column
// order (date, type, account, amount, related order, description) suitable
// for spreadsheet/CSV consumption.
type TransactionRow struct {
	Date        time.Time
	PostingType PostingType
	AccountID   string
	AccountType AccountType
	OwnerRef    string
	Amount      int64
	OrderRef    string
	Description string
}

// ExportColumns is the fixed header row of transaction exports.
var ExportColumns = []string{"Date", "Type", "Account", "Amount", "Order", "Description"}
