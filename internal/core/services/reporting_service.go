package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/feastly/ledger_backend/internal/core/domain"
	portsrepo "github.com/feastly/ledger_backend/internal/core/ports/repositories"
	portssvc "github.com/feastly/ledger_backend/internal/core/ports/services"
	"github.com/feastly/ledger_backend/internal/dto"
	"github.com/feastly/ledger_backend/internal/utils/accounting"
)

// exportSheet is the worksheet name of XLSX exports.
const exportSheet = "Transactions"

// exportPageSize is the chunk size used when streaming filtered postings into
// an export.
const exportPageSize = 1000

// reportingService is a thin read wrapper over the ledger: paginated listing
// for operational UIs and flat-row export for spreadsheets.
type reportingService struct {
	ledgerRepo portsrepo.LedgerReader
}

// NewReportingService creates a new ReportingService.
func NewReportingService(ledgerRepo portsrepo.LedgerRepositoryFacade) portssvc.ReportingSvcFacade {
	return &reportingService{ledgerRepo: ledgerRepo}
}

var _ portssvc.ReportingSvcFacade = (*reportingService)(nil)

func filterFromParams(params dto.ListTransactionsParams) domain.PostingFilter {
	var filter domain.PostingFilter
	if params.Type != nil {
		t := domain.PostingType(*params.Type)
		filter.PostingType = &t
	}
	if params.AccountType != nil {
		t := domain.AccountType(*params.AccountType)
		filter.AccountType = &t
	}
	filter.From = params.From
	filter.To = params.To
	return filter
}

// ListTransactions returns a filtered page of postings with page math.
func (s *reportingService) ListTransactions(ctx context.Context, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error) {
	offset := (params.Page - 1) * params.PageSize
	rows, total, err := s.ledgerRepo.ListPostings(ctx, filterFromParams(params), params.PageSize, offset)
	if err != nil {
		return nil, err
	}

	out := make([]dto.TransactionRowResponse, len(rows))
	for i, row := range rows {
		out[i] = dto.ToTransactionRowResponse(row)
	}

	totalPages := int((total + int64(params.PageSize) - 1) / int64(params.PageSize))
	return &dto.ListTransactionsResponse{
		Rows:       out,
		Page:       params.Page,
		TotalPages: totalPages,
		TotalRows:  total,
	}, nil
}

// ListAccountPostings pages one account's postings with an opaque cursor.
func (s *reportingService) ListAccountPostings(ctx context.Context, accountID string, params dto.ListAccountPostingsParams) (*dto.ListAccountPostingsResponse, error) {
	postings, nextToken, err := s.ledgerRepo.ListPostingsByAccount(ctx, accountID, params.Limit, params.NextToken)
	if err != nil {
		return nil, err
	}
	return &dto.ListAccountPostingsResponse{
		Postings:  dto.ToPostingResponses(postings),
		NextToken: nextToken,
	}, nil
}

// ListOrderPostings returns every posting referencing one order, in creation
// order.
func (s *reportingService) ListOrderPostings(ctx context.Context, orderRef string) ([]dto.PostingResponse, error) {
	postings, err := s.ledgerRepo.FindPostingsByOrderRef(ctx, orderRef)
	if err != nil {
		return nil, err
	}
	return dto.ToPostingResponses(postings), nil
}

// forEachRow streams filtered postings page by page through fn in stable
// (newest first) order.
func (s *reportingService) forEachRow(ctx context.Context, filter domain.PostingFilter, fn func(row domain.TransactionRow) error) error {
	offset := 0
	for {
		rows, _, err := s.ledgerRepo.ListPostings(ctx, filter, exportPageSize, offset)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if err := fn(row); err != nil {
				return err
			}
		}
		if len(rows) < exportPageSize {
			return nil
		}
		offset += exportPageSize
	}
}

// ExportCSV streams filtered postings as CSV in the stable export column
// order: date, type, account, amount, related order, description.
func (s *reportingService) ExportCSV(ctx context.Context, filter domain.PostingFilter, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(domain.ExportColumns); err != nil {
		return fmt.Errorf("writing export header: %w", err)
	}

	err := s.forEachRow(ctx, filter, func(row domain.TransactionRow) error {
		return cw.Write([]string{
			row.Date.UTC().Format("2006-01-02 15:04:05"),
			string(row.PostingType),
			row.OwnerRef,
			accounting.FormatMinorUnits(row.Amount),
			row.OrderRef,
			row.Description,
		})
	})
	if err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

// ExportXLSX writes filtered postings as a spreadsheet workbook.
func (s *reportingService) ExportXLSX(ctx context.Context, filter domain.PostingFilter, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return fmt.Errorf("creating export sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("removing default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	for i, header := range domain.ExportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return err
		}
	}

	rowIndex := 2
	err = s.forEachRow(ctx, filter, func(row domain.TransactionRow) error {
		values := []interface{}{
			row.Date.UTC().Format("2006-01-02 15:04:05"),
			string(row.PostingType),
			row.OwnerRef,
			accounting.FormatMinorUnits(row.Amount),
			row.OrderRef,
			row.Description,
		}
		for i, value := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, rowIndex)
			if err := f.SetCellValue(exportSheet, cell, value); err != nil {
				return err
			}
		}
		rowIndex++
		return nil
	})
	if err != nil {
		return err
	}

	return f.Write(w)
}
