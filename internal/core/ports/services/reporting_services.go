package services

import (
	"context"
	"io"

	"github.com/feastly/ledger_backend/internal/core/domain"
	"github.com/feastly/ledger_backend/internal/dto"
)

// ReportingSvcFacade exposes paginated, filtered read access to postings for
// operational and export use. It is a thin wrapper over the ledger reads.
type ReportingSvcFacade interface {
	// ListTransactions returns a filtered page of postings with page math.
	ListTransactions(ctx context.Context, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error)

	// ListAccountPostings pages one account's postings with an opaque cursor.
	ListAccountPostings(ctx context.Context, accountID string, params dto.ListAccountPostingsParams) (*dto.ListAccountPostingsResponse, error)

	// ListOrderPostings returns every posting referencing one order, in
	// creation order. Operator view for tracing an order through the ledger.
	ListOrderPostings(ctx context.Context, orderRef string) ([]dto.PostingResponse, error)

	// ExportCSV streams filtered postings as CSV rows in the stable export
	// column order.
	ExportCSV(ctx context.Context, filter domain.PostingFilter, w io.Writer) error

	// ExportXLSX writes filtered postings as a spreadsheet workbook.
	ExportXLSX(ctx context.Context, filter domain.PostingFilter, w io.Writer) error
}

// ServiceContainer holds all the services and manages their dependencies
type ServiceContainer struct {
	Account      AccountSvcFacade
	Ledger       LedgerSvcFacade
	Orchestrator OrchestratorSvcFacade
	Balance      BalanceSvcFacade
	Settlement   SettlementSvcFacade
	Reporting    ReportingSvcFacade
}
