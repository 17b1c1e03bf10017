package domain

import "time"

// Balance is the derived position of one account at a point in time.
// Available is the replay sum of every posting up to AsOf. PayablePending is
// the portion of payable-type postings not yet covered by a paid settlement;
// ReceivablePending mirrors that for outstanding client debt (positive means
// the account owes the platform).
type Balance struct {
	AccountID         string    `json:"accountID"`
	Available         int64     `json:"available"`
	PayablePending    int64     `json:"payablePending"`
	ReceivablePending int64     `json:"receivablePending"`
	AsOf              time.Time `json:"asOf"`
}
