package dto

import (
	"time"

	"github.com/feastly/ledger_backend/internal/core/domain"
	"github.com/feastly/ledger_backend/internal/utils/accounting"
)

// ListTransactionsParams are the query parameters of the transaction listing.
// Page is 1-based.
type ListTransactionsParams struct {
	Type        *string    `form:"type"`
	AccountType *string    `form:"accountType"`
	From        *time.Time `form:"from" time_format:"2006-01-02"`
	To          *time.Time `form:"to" time_format:"2006-01-02"`
	Page        int        `form:"page,default=1" binding:"gte=1"`
	PageSize    int        `form:"pageSize,default=50" binding:"gte=1,lte=500"`
}

// TransactionRowResponse is one listed/exported posting with its account
// context. Amount is minor units; AmountFormatted is the major-unit string.
type TransactionRowResponse struct {
	Date            time.Time `json:"date"`
	Type            string    `json:"type"`
	AccountID       string    `json:"accountID"`
	AccountType     string    `json:"accountType"`
	OwnerRef        string    `json:"ownerRef"`
	Amount          int64     `json:"amount"`
	AmountFormatted string    `json:"amountFormatted"`
	OrderRef        string    `json:"orderRef,omitempty"`
	Description     string    `json:"description"`
}

// ListTransactionsResponse is a page of transaction rows.
type ListTransactionsResponse struct {
	Rows       []TransactionRowResponse `json:"rows"`
	Page       int                      `json:"page"`
	TotalPages int                      `json:"totalPages"`
	TotalRows  int64                    `json:"totalRows"`
}

// ToTransactionRowResponse converts a domain export row.
func ToTransactionRowResponse(row domain.TransactionRow) TransactionRowResponse {
	return TransactionRowResponse{
		Date:            row.Date,
		Type:            string(row.PostingType),
		AccountID:       row.AccountID,
		AccountType:     string(row.AccountType),
		OwnerRef:        row.OwnerRef,
		Amount:          row.Amount,
		AmountFormatted: accounting.FormatMinorUnits(row.Amount),
		OrderRef:        row.OrderRef,
		Description:     row.Description,
	}
}

// ListAccountPostingsParams pages through one account's postings with an
// opaque cursor.
type ListAccountPostingsParams struct {
	Limit     int     `form:"limit,default=100" binding:"gte=1,lte=1000"`
	NextToken *string `form:"nextToken"`
}

// PostingResponse is the external view of one ledger posting.
type PostingResponse struct {
	PostingID   string    `json:"postingID"`
	BatchID     string    `json:"batchID"`
	Type        string    `json:"type"`
	AccountID   string    `json:"accountID"`
	Amount      int64     `json:"amount"`
	OrderRef    string    `json:"orderRef,omitempty"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ListAccountPostingsResponse is a cursored page of account postings.
type ListAccountPostingsResponse struct {
	Postings  []PostingResponse `json:"postings"`
	NextToken *string           `json:"nextToken,omitempty"`
}

// ToPostingResponses converts domain postings.
func ToPostingResponses(postings []domain.Posting) []PostingResponse {
	out := make([]PostingResponse, len(postings))
	for i, p := range postings {
		out[i] = PostingResponse{
			PostingID:   p.PostingID,
			BatchID:     p.BatchID,
			Type:        string(p.PostingType),
			AccountID:   p.AccountID,
			Amount:      p.Amount,
			OrderRef:    p.OrderRef,
			Description: p.Description,
			CreatedAt:   p.CreatedAt,
		}
	}
	return out
}

// BalanceResponse is the external view of a derived account balance.
type BalanceResponse struct {
	AccountID         string    `json:"accountID"`
	Available         int64     `json:"available"`
	PayablePending    int64     `json:"payablePending"`
	ReceivablePending int64     `json:"receivablePending"`
	AsOf              time.Time `json:"asOf"`
}

// ToBalanceResponse converts a domain.Balance.
func ToBalanceResponse(b *domain.Balance) BalanceResponse {
	return BalanceResponse{
		AccountID:         b.AccountID,
		Available:         b.Available,
		PayablePending:    b.PayablePending,
		ReceivablePending: b.ReceivablePending,
		AsOf:              b.AsOf,
	}
}
