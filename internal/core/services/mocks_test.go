package services_test

import (
	"context"
	"time"

	"github.com/feastly/ledger_backend/internal/core/domain"
	portsrepo "github.com/feastly/ledger_backend/internal/core/ports/repositories"
	portssvc "github.com/feastly/ledger_backend/internal/core/ports/services"
	"github.com/stretchr/testify/mock"
)

// --- Mock LedgerRepository ---
type MockLedgerRepository struct {
	mock.Mock
}

var _ portsrepo.LedgerRepositoryFacade = (*MockLedgerRepository)(nil)

func (m *MockLedgerRepository) AppendBatch(ctx context.Context, batch domain.PostingBatch, postings []domain.Posting) (*domain.BatchResult, error) {
	args := m.Called(ctx, batch, postings)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BatchResult), args.Error(1)
}

func (m *MockLedgerRepository) FindBatchByIdempotencyKey(ctx context.Context, key string) (*domain.BatchResult, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BatchResult), args.Error(1)
}

func (m *MockLedgerRepository) FindPostingsByOrderRef(ctx context.Context, orderRef string) ([]domain.Posting, error) {
	args := m.Called(ctx, orderRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Posting), args.Error(1)
}

func (m *MockLedgerRepository) ListPostings(ctx context.Context, filter domain.PostingFilter, limit, offset int) ([]domain.TransactionRow, int64, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]domain.TransactionRow), args.Get(1).(int64), args.Error(2)
}

func (m *MockLedgerRepository) ListPostingsByAccount(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.Posting, *string, error) {
	args := m.Called(ctx, accountID, limit, nextToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var returnedToken *string
	if args.Get(1) != nil {
		tokenVal := args.Get(1).(string)
		returnedToken = &tokenVal
	}
	return args.Get(0).([]domain.Posting), returnedToken, args.Error(2)
}

func (m *MockLedgerRepository) SumPostings(ctx context.Context, accountID string, asOf time.Time) (int64, error) {
	args := m.Called(ctx, accountID, asOf)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) SumUnsettledPayables(ctx context.Context, accountID string, asOf time.Time) (int64, error) {
	args := m.Called(ctx, accountID, asOf)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) SumOutstandingDebt(ctx context.Context, accountID string, asOf time.Time) (int64, error) {
	args := m.Called(ctx, accountID, asOf)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock AccountRepository ---
type MockAccountRepository struct {
	mock.Mock
}

var _ portsrepo.AccountRepositoryFacade = (*MockAccountRepository)(nil)

func (m *MockAccountRepository) EnsureAccount(ctx context.Context, accountType domain.AccountType, ownerRef string) (*domain.Account, error) {
	args := m.Called(ctx, accountType, ownerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ListAccountsByType(ctx context.Context, accountType domain.AccountType) ([]domain.Account, error) {
	args := m.Called(ctx, accountType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

// --- Mock OrderRepository ---
type MockOrderRepository struct {
	mock.Mock
}

var _ portsrepo.OrderRepositoryFacade = (*MockOrderRepository)(nil)

func (m *MockOrderRepository) FindOrder(ctx context.Context, orderRef string) (*domain.Order, error) {
	args := m.Called(ctx, orderRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) ListFlaggedOrders(ctx context.Context) ([]domain.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *MockOrderRepository) SaveOrder(ctx context.Context, order domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) FlagOrder(ctx context.Context, orderRef string, reason string) error {
	args := m.Called(ctx, orderRef, reason)
	return args.Error(0)
}

// --- Mock SettlementRepository ---
type MockSettlementRepository struct {
	mock.Mock

	// Payables handed to the builder by CreateSettlementForPeriod.
	BuilderInput []domain.Posting
}

var _ portsrepo.SettlementRepositoryFacade = (*MockSettlementRepository)(nil)

func (m *MockSettlementRepository) FindSettlementByID(ctx context.Context, settlementID string) (*domain.Settlement, error) {
	args := m.Called(ctx, settlementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Settlement), args.Error(1)
}

func (m *MockSettlementRepository) ListOpenSettlements(ctx context.Context, olderThan time.Duration) ([]domain.Settlement, error) {
	args := m.Called(ctx, olderThan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Settlement), args.Error(1)
}

// CreateSettlementForPeriod invokes the builder with BuilderInput, mimicking
// the real repository's select-then-build transaction. The mock's first
// return value, when non-nil, overrides the built settlement (used for the
// existing-settlement path).
func (m *MockSettlementRepository) CreateSettlementForPeriod(ctx context.Context, accountID string, period domain.SettlementPeriod, build portsrepo.SettlementBuilder) (*domain.Settlement, bool, error) {
	args := m.Called(ctx, accountID, period)
	if err := args.Error(2); err != nil {
		return nil, false, err
	}
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Settlement), args.Bool(1), nil
	}
	if len(m.BuilderInput) == 0 {
		return nil, false, nil
	}
	settlement, _, _, err := build(m.BuilderInput)
	if err != nil {
		return nil, false, err
	}
	return &settlement, true, nil
}

func (m *MockSettlementRepository) MarkSettlementPaid(ctx context.Context, settlementID string, paidAt time.Time) error {
	args := m.Called(ctx, settlementID, paidAt)
	return args.Error(0)
}

// --- Mock AccountService ---
type MockAccountService struct {
	mock.Mock
}

var _ portssvc.AccountSvcFacade = (*MockAccountService)(nil)

func (m *MockAccountService) EnsureAccount(ctx context.Context, accountType domain.AccountType, ownerRef string) (*domain.Account, error) {
	args := m.Called(ctx, accountType, ownerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountService) GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountService) PlatformAccount(ctx context.Context) (*domain.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountService) ListSettleableAccounts(ctx context.Context) ([]domain.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

// --- Mock LedgerService ---
type MockLedgerService struct {
	mock.Mock
}

var _ portssvc.LedgerSvcFacade = (*MockLedgerService)(nil)

func (m *MockLedgerService) AppendBatch(ctx context.Context, batch domain.PostingBatch, postings []domain.Posting) (*domain.BatchResult, error) {
	args := m.Called(ctx, batch, postings)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BatchResult), args.Error(1)
}
