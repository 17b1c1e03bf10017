package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/feastly/ledger_backend/internal/apperrors"
	"github.com/feastly/ledger_backend/internal/core/domain"
	portssvc "github.com/feastly/ledger_backend/internal/core/ports/services"
	"github.com/feastly/ledger_backend/internal/dto"
	"github.com/feastly/ledger_backend/internal/handlers"
	"github.com/feastly/ledger_backend/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock OrchestratorService ---
type MockOrchestratorService struct {
	mock.Mock
}

var _ portssvc.OrchestratorSvcFacade = (*MockOrchestratorService)(nil)

func (m *MockOrchestratorService) HandleOrderEvent(ctx context.Context, event domain.OrderEvent) (*domain.BatchResult, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BatchResult), args.Error(1)
}

func (m *MockOrchestratorService) HandlePaymentFailure(ctx context.Context, orderRef string) (*domain.BatchResult, error) {
	args := m.Called(ctx, orderRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BatchResult), args.Error(1)
}

func (m *MockOrchestratorService) RecordDebtRepayment(ctx context.Context, orderRef string, amount int64) (*domain.BatchResult, error) {
	args := m.Called(ctx, orderRef, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BatchResult), args.Error(1)
}

func (m *MockOrchestratorService) RecordAdjustment(ctx context.Context, accountID string, amount int64, reason string) (*domain.BatchResult, error) {
	args := m.Called(ctx, accountID, amount, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BatchResult), args.Error(1)
}

func (m *MockOrchestratorService) ListFlaggedOrders(ctx context.Context) ([]domain.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

// --- Mock SettlementService ---
type MockSettlementService struct {
	mock.Mock
}

var _ portssvc.SettlementSvcFacade = (*MockSettlementService)(nil)

func (m *MockSettlementService) RunSettlement(ctx context.Context, accountID string, period domain.SettlementPeriod) (*domain.Settlement, error) {
	args := m.Called(ctx, accountID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Settlement), args.Error(1)
}

func (m *MockSettlementService) RunDuePeriod(ctx context.Context, now time.Time) error {
	args := m.Called(ctx, now)
	return args.Error(0)
}

func (m *MockSettlementService) ConfirmSettlement(ctx context.Context, settlementID string, success bool) (*domain.Settlement, error) {
	args := m.Called(ctx, settlementID, success)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Settlement), args.Error(1)
}

func (m *MockSettlementService) ListOpenSettlements(ctx context.Context, olderThan time.Duration) ([]domain.Settlement, error) {
	args := m.Called(ctx, olderThan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Settlement), args.Error(1)
}

// --- Mock BalanceService ---
type MockBalanceService struct {
	mock.Mock
}

var _ portssvc.BalanceSvcFacade = (*MockBalanceService)(nil)

func (m *MockBalanceService) GetBalance(ctx context.Context, accountID string, asOf *time.Time) (*domain.Balance, error) {
	args := m.Called(ctx, accountID, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Balance), args.Error(1)
}

// --- Mock ReportingService ---
type MockReportingService struct {
	mock.Mock
}

var _ portssvc.ReportingSvcFacade = (*MockReportingService)(nil)

func (m *MockReportingService) ListTransactions(ctx context.Context, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListTransactionsResponse), args.Error(1)
}

func (m *MockReportingService) ListAccountPostings(ctx context.Context, accountID string, params dto.ListAccountPostingsParams) (*dto.ListAccountPostingsResponse, error) {
	args := m.Called(ctx, accountID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListAccountPostingsResponse), args.Error(1)
}

func (m *MockReportingService) ListOrderPostings(ctx context.Context, orderRef string) ([]dto.PostingResponse, error) {
	args := m.Called(ctx, orderRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dto.PostingResponse), args.Error(1)
}

func (m *MockReportingService) ExportCSV(ctx context.Context, filter domain.PostingFilter, w io.Writer) error {
	args := m.Called(ctx, filter, w)
	return args.Error(0)
}

func (m *MockReportingService) ExportXLSX(ctx context.Context, filter domain.PostingFilter, w io.Writer) error {
	args := m.Called(ctx, filter, w)
	return args.Error(0)
}

// --- Test Suite ---
type EventsHandlerTestSuite struct {
	suite.Suite
	router           *gin.Engine
	mockOrchestrator *MockOrchestratorService
	mockBalance      *MockBalanceService
	jwtSecret        string
}

func (suite *EventsHandlerTestSuite) generateTestToken(subject string) string {
	claims := jwt.RegisteredClaims{
		Issuer:    "ledger-test",
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(suite.jwtSecret))
	if err != nil {
		suite.FailNow("Failed to sign test token", err.Error())
	}
	return signed
}

func (suite *EventsHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.jwtSecret = "test-secret-key-that-is-long-enough"

	suite.mockOrchestrator = new(MockOrchestratorService)
	suite.mockBalance = new(MockBalanceService)

	cfg := &config.Config{
		JWTSecret:       suite.jwtSecret,
		IngestRateLimit: "1000-M",
	}
	container := &portssvc.ServiceContainer{
		Orchestrator: suite.mockOrchestrator,
		Balance:      suite.mockBalance,
		Settlement:   new(MockSettlementService),
		Reporting:    new(MockReportingService),
	}
	suite.Require().NoError(handlers.RegisterRoutes(suite.router, cfg, container, nil))
}

func (suite *EventsHandlerTestSuite) postJSON(path string, body any, token string) *httptest.ResponseRecorder {
	payload, err := json.Marshal(body)
	suite.Require().NoError(err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *EventsHandlerTestSuite) orderEventBody() map[string]any {
	return map[string]any{
		"orderId":        "ord-1",
		"eventType":      "delivered",
		"subtotal":       20000,
		"deliveryFee":    500,
		"commissionRate": "0.15",
		"paymentMethod":  "ONLINE",
		"restaurantId":   "rest-1",
		"courierId":      "cour-1",
		"clientId":       "cli-1",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	}
}

func (suite *EventsHandlerTestSuite) TestHandleOrderEvent_Success() {
	token := suite.generateTestToken("order-lifecycle-svc")
	result := &domain.BatchResult{
		Batch: domain.PostingBatch{
			BatchID:        uuid.NewString(),
			IdempotencyKey: "order:ord-1:delivered",
			EventType:      domain.EventDelivered,
		},
		Postings: make([]domain.Posting, 6),
	}

	suite.mockOrchestrator.On("HandleOrderEvent", mock.Anything, mock.MatchedBy(func(e domain.OrderEvent) bool {
		return e.OrderRef == "ord-1" && e.EventType == domain.EventDelivered && e.Subtotal == 20000
	})).Return(result, nil).Once()

	w := suite.postJSON("/api/v1/orders/events", suite.orderEventBody(), token)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.BatchResultResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("order:ord-1:delivered", resp.IdempotencyKey)
	suite.Equal(6, resp.PostingCount)
	suite.False(resp.AlreadyCommitted)
	suite.mockOrchestrator.AssertExpectations(suite.T())
}

func (suite *EventsHandlerTestSuite) TestHandleOrderEvent_MissingToken() {
	w := suite.postJSON("/api/v1/orders/events", suite.orderEventBody(), "")

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.mockOrchestrator.AssertNotCalled(suite.T(), "HandleOrderEvent", mock.Anything, mock.Anything)
}

func (suite *EventsHandlerTestSuite) TestHandleOrderEvent_UnknownEventTypeRejected() {
	token := suite.generateTestToken("order-lifecycle-svc")
	body := suite.orderEventBody()
	body["eventType"] = "exploded"

	w := suite.postJSON("/api/v1/orders/events", body, token)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockOrchestrator.AssertNotCalled(suite.T(), "HandleOrderEvent", mock.Anything, mock.Anything)
}

func (suite *EventsHandlerTestSuite) TestHandleOrderEvent_ReconciliationConflict() {
	token := suite.generateTestToken("order-lifecycle-svc")

	suite.mockOrchestrator.On("HandleOrderEvent", mock.Anything, mock.Anything).
		Return(nil, apperrors.ErrReconciliation).Once()

	w := suite.postJSON("/api/v1/orders/events", suite.orderEventBody(), token)

	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *EventsHandlerTestSuite) TestGetBalance_Success() {
	token := suite.generateTestToken("ops-dashboard")
	accountID := uuid.NewString()
	balance := &domain.Balance{
		AccountID:      accountID,
		Available:      17000,
		PayablePending: 17000,
		AsOf:           time.Now().UTC(),
	}

	suite.mockBalance.On("GetBalance", mock.Anything, accountID, (*time.Time)(nil)).Return(balance, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/"+accountID+"/balance", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.BalanceResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(int64(17000), resp.Available)
	suite.Equal(int64(17000), resp.PayablePending)
}

func (suite *EventsHandlerTestSuite) TestGetBalance_UnknownAccount() {
	token := suite.generateTestToken("ops-dashboard")
	accountID := uuid.NewString()

	suite.mockBalance.On("GetBalance", mock.Anything, accountID, (*time.Time)(nil)).
		Return(nil, apperrors.ErrNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/"+accountID+"/balance", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusNotFound, w.Code)
}

func TestEventsHandler(t *testing.T) {
	suite.Run(t, new(EventsHandlerTestSuite))
}
