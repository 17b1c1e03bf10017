package services_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/feastly/ledger_backend/internal/core/domain"
	portssvc "github.com/feastly/ledger_backend/internal/core/ports/services"
	"github.com/feastly/ledger_backend/internal/core/services"
	"github.com/feastly/ledger_backend/internal/dto"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type ReportingServiceTestSuite struct {
	suite.Suite
	mockLedgerRepo *MockLedgerRepository
	service        portssvc.ReportingSvcFacade
}

func (suite *ReportingServiceTestSuite) SetupTest() {
	suite.mockLedgerRepo = new(MockLedgerRepository)
	suite.service = services.NewReportingService(suite.mockLedgerRepo)
}

func (suite *ReportingServiceTestSuite) sampleRows() []domain.TransactionRow {
	date := time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC)
	return []domain.TransactionRow{
		{
			Date:        date,
			PostingType: domain.OrderRevenue,
			AccountID:   "acc-1",
			AccountType: domain.AccountRestaurant,
			OwnerRef:    "rest-1",
			Amount:      20000,
			OrderRef:    "ord-1",
			Description: "order subtotal",
		},
		{
			Date:        date.Add(-time.Hour),
			PostingType: domain.PlatformCommission,
			AccountID:   "acc-2",
			AccountType: domain.AccountPlatform,
			OwnerRef:    "platform",
			Amount:      -3000,
			OrderRef:    "ord-1",
			Description: "platform commission",
		},
	}
}

func (suite *ReportingServiceTestSuite) TestListOrderPostings() {
	ctx := context.Background()
	postings := []domain.Posting{
		{PostingID: "p-1", BatchID: "b-1", PostingType: domain.OrderRevenue, AccountID: "acc-1", Amount: 20000, OrderRef: "ord-1", Description: "order subtotal"},
		{PostingID: "p-2", BatchID: "b-1", PostingType: domain.RestaurantPayable, AccountID: "acc-1", Amount: -3000, OrderRef: "ord-1", Description: "platform commission offset"},
	}

	suite.mockLedgerRepo.On("FindPostingsByOrderRef", ctx, "ord-1").Return(postings, nil).Once()

	out, err := suite.service.ListOrderPostings(ctx, "ord-1")

	suite.Require().NoError(err)
	suite.Require().Len(out, 2)
	suite.Equal("p-1", out[0].PostingID)
	suite.Equal("ORDER_REVENUE", out[0].Type)
	suite.Equal(int64(-3000), out[1].Amount)
	suite.mockLedgerRepo.AssertExpectations(suite.T())
}

func (suite *ReportingServiceTestSuite) TestListTransactions_PageMath() {
	ctx := context.Background()
	params := dto.ListTransactionsParams{Page: 2, PageSize: 50}

	suite.mockLedgerRepo.On("ListPostings", ctx, mock.AnythingOfType("domain.PostingFilter"), 50, 50).
		Return(suite.sampleRows(), int64(101), nil).Once()

	resp, err := suite.service.ListTransactions(ctx, params)

	suite.Require().NoError(err)
	suite.Equal(2, resp.Page)
	suite.Equal(3, resp.TotalPages) // 101 rows at 50 per page
	suite.Equal(int64(101), resp.TotalRows)
	suite.Len(resp.Rows, 2)
	suite.Equal("200.00", resp.Rows[0].AmountFormatted)
	suite.Equal("-30.00", resp.Rows[1].AmountFormatted)
}

func (suite *ReportingServiceTestSuite) TestListTransactions_FilterMapping() {
	ctx := context.Background()
	postingType := "ORDER_REVENUE"
	accountType := "RESTAURANT"
	params := dto.ListTransactionsParams{Page: 1, PageSize: 50, Type: &postingType, AccountType: &accountType}

	suite.mockLedgerRepo.On("ListPostings", ctx, mock.MatchedBy(func(f domain.PostingFilter) bool {
		return f.PostingType != nil && *f.PostingType == domain.OrderRevenue &&
			f.AccountType != nil && *f.AccountType == domain.AccountRestaurant
	}), 50, 0).Return([]domain.TransactionRow{}, int64(0), nil).Once()

	_, err := suite.service.ListTransactions(ctx, params)

	suite.Require().NoError(err)
	suite.mockLedgerRepo.AssertExpectations(suite.T())
}

func (suite *ReportingServiceTestSuite) TestListAccountPostings_PassesCursor() {
	ctx := context.Background()
	token := "cursor-1"
	params := dto.ListAccountPostingsParams{Limit: 100, NextToken: &token}

	suite.mockLedgerRepo.On("ListPostingsByAccount", ctx, "acc-1", 100, &token).
		Return([]domain.Posting{{PostingID: "p-1", Amount: 100}}, "cursor-2", nil).Once()

	resp, err := suite.service.ListAccountPostings(ctx, "acc-1", params)

	suite.Require().NoError(err)
	suite.Len(resp.Postings, 1)
	suite.Require().NotNil(resp.NextToken)
	suite.Equal("cursor-2", *resp.NextToken)
}

func (suite *ReportingServiceTestSuite) TestExportCSV_StableColumnOrder() {
	ctx := context.Background()

	suite.mockLedgerRepo.On("ListPostings", ctx, mock.AnythingOfType("domain.PostingFilter"), 1000, 0).
		Return(suite.sampleRows(), int64(2), nil).Once()

	var buf bytes.Buffer
	err := suite.service.ExportCSV(ctx, domain.PostingFilter{}, &buf)

	suite.Require().NoError(err)

	records, err := csv.NewReader(&buf).ReadAll()
	suite.Require().NoError(err)
	suite.Require().Len(records, 3)
	suite.Equal([]string{"Date", "Type", "Account", "Amount", "Order", "Description"}, records[0])
	suite.Equal([]string{"2026-08-20 14:30:00", "ORDER_REVENUE", "rest-1", "200.00", "ord-1", "order subtotal"}, records[1])
	suite.Equal([]string{"2026-08-20 13:30:00", "PLATFORM_COMMISSION", "platform", "-30.00", "ord-1", "platform commission"}, records[2])
}

func (suite *ReportingServiceTestSuite) TestExportXLSX_WritesWorkbook() {
	ctx := context.Background()

	suite.mockLedgerRepo.On("ListPostings", ctx, mock.AnythingOfType("domain.PostingFilter"), 1000, 0).
		Return(suite.sampleRows(), int64(2), nil).Once()

	var buf bytes.Buffer
	err := suite.service.ExportXLSX(ctx, domain.PostingFilter{}, &buf)

	suite.Require().NoError(err)
	// XLSX files are zip archives; check the magic bytes rather than parsing.
	suite.Greater(buf.Len(), 4)
	suite.Equal([]byte{'P', 'K'}, buf.Bytes()[:2])
}

func TestReportingService(t *testing.T) {
	suite.Run(t, new(ReportingServiceTestSuite))
}
