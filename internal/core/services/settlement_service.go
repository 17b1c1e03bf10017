package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/feastly/ledger_backend/internal/apperrors"
	"github.com/feastly/ledger_backend/internal/core/domain"
	portsrepo "github.com/feastly/ledger_backend/internal/core/ports/repositories"
	portssvc "github.com/feastly/ledger_backend/internal/core/ports/services"
	"github.com/feastly/ledger_backend/internal/middleware"
	"github.com/feastly/ledger_backend/internal/platform/metrics"
)

// ErrNothingToSettle is returned by the settlement builder when the selected
// payables net to zero or less; the repository rolls the run back without
// creating a settlement.
var ErrNothingToSettle = errors.New("nothing to settle")

// settlementService is the periodic payout engine: it converts unsettled
// payable postings into one settlement and one zero-sum payout batch per
// account per period.
type settlementService struct {
	accountSvc     portssvc.AccountSvcFacade
	settlementRepo portsrepo.SettlementRepositoryFacade
	periodDays     int
}

// NewSettlementService creates a new SettlementService. periodDays is the
// length of the settlement window used by the scheduler.
func NewSettlementService(accountSvc portssvc.AccountSvcFacade, settlementRepo portsrepo.SettlementRepositoryFacade, periodDays int) portssvc.SettlementSvcFacade {
	return &settlementService{
		accountSvc:     accountSvc,
		settlementRepo: settlementRepo,
		periodDays:     periodDays,
	}
}

var _ portssvc.SettlementSvcFacade = (*settlementService)(nil)

// RunSettlement settles one account for one period. Safe to re-run: the
// repository holds a per-(account, period) lock, and an existing settlement
// is returned as-is without new postings.
func (s *settlementService) RunSettlement(ctx context.Context, accountID string, period domain.SettlementPeriod) (*domain.Settlement, error) {
	logger := middleware.GetLoggerFromCtx(ctx).With(
		slog.String("account_id", accountID),
		slog.String("period", period.Key()))

	if !period.End.After(period.Start) {
		return nil, fmt.Errorf("%w: settlement period end must be after start", apperrors.ErrValidation)
	}

	account, err := s.accountSvc.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.AccountType.IsSettleable() {
		return nil, fmt.Errorf("%w: account type %s is not settled", apperrors.ErrValidation, account.AccountType)
	}

	platform, err := s.accountSvc.PlatformAccount(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	build := func(payables []domain.Posting) (domain.Settlement, domain.PostingBatch, []domain.Posting, error) {
		var total int64
		postingIDs := make([]string, 0, len(payables))
		for _, p := range payables {
			total += p.Amount
			postingIDs = append(postingIDs, p.PostingID)
		}
		if total <= 0 {
			return domain.Settlement{}, domain.PostingBatch{}, nil, ErrNothingToSettle
		}

		settlement := domain.Settlement{
			SettlementID: uuid.NewString(),
			AccountID:    accountID,
			Period:       period,
			Status:       domain.SettlementOpen,
			TotalAmount:  total,
			PostingIDs:   postingIDs,
			CreatedAt:    now,
		}

		batch := domain.PostingBatch{
			BatchID:        uuid.NewString(),
			IdempotencyKey: domain.SettlementIdempotencyKey(accountID, period),
			EventType:      domain.EventSettlementPaid,
			CreatedAt:      now,
		}

		description := fmt.Sprintf("settlement %s for period %s", settlement.SettlementID, period.Key())
		payout := []domain.Posting{
			{
				PostingID:   uuid.NewString(),
				BatchID:     batch.BatchID,
				PostingType: domain.SettlementPayment,
				AccountID:   accountID,
				Amount:      -total,
				Description: description,
				CreatedAt:   now,
			},
			{
				PostingID:   uuid.NewString(),
				BatchID:     batch.BatchID,
				PostingType: domain.SettlementReception,
				AccountID:   platform.AccountID,
				Amount:      total,
				Description: description,
				CreatedAt:   now,
			},
		}

		if err := ValidateBatch(batch.EventType, payout); err != nil {
			return domain.Settlement{}, domain.PostingBatch{}, nil, err
		}

		return settlement, batch, payout, nil
	}

	settlement, created, err := s.settlementRepo.CreateSettlementForPeriod(ctx, accountID, period, build)
	if err != nil {
		if errors.Is(err, ErrNothingToSettle) {
			logger.Info("No unsettled payables for period")
			return nil, nil
		}
		return nil, err
	}

	if created {
		metrics.SettlementsCreated.Inc()
		logger.Info("Settlement created",
			slog.String("settlement_id", settlement.SettlementID),
			slog.Int64("total_amount", settlement.TotalAmount),
			slog.Int("payables", len(settlement.PostingIDs)))
	} else if settlement != nil {
		logger.Info("Settlement already exists for period, returning it",
			slog.String("settlement_id", settlement.SettlementID))
	}

	return settlement, nil
}

// RunDuePeriod settles the previous period for every settleable account.
// Per-account failures are logged and skipped so one bad account does not
// stall the sweep.
func (s *settlementService) RunDuePeriod(ctx context.Context, now time.Time) error {
	logger := middleware.GetLoggerFromCtx(ctx)
	period := domain.PreviousPeriod(now, s.periodDays)

	accounts, err := s.accountSvc.ListSettleableAccounts(ctx)
	if err != nil {
		return err
	}

	var failed int
	for _, account := range accounts {
		if _, err := s.RunSettlement(ctx, account.AccountID, period); err != nil {
			failed++
			logger.Error("Settlement run failed for account",
				slog.String("account_id", account.AccountID),
				slog.String("period", period.Key()),
				slog.String("error", err.Error()))
		}
	}

	logger.Info("Settlement sweep finished",
		slog.String("period", period.Key()),
		slog.Int("accounts", len(accounts)),
		slog.Int("failed", failed))
	if failed > 0 {
		return fmt.Errorf("settlement sweep: %d of %d accounts failed", failed, len(accounts))
	}
	return nil
}

// ConfirmSettlement applies the payout rail's asynchronous confirmation.
func (s *settlementService) ConfirmSettlement(ctx context.Context, settlementID string, success bool) (*domain.Settlement, error) {
	logger := middleware.GetLoggerFromCtx(ctx).With(slog.String("settlement_id", settlementID))

	settlement, err := s.settlementRepo.FindSettlementByID(ctx, settlementID)
	if err != nil {
		return nil, err
	}

	if !success {
		// The settlement stays open for operator resolution. It must never
		// be silently retried into a duplicate payout.
		logger.Warn("Payout rail reported failure, settlement remains open")
		return settlement, nil
	}

	if settlement.Status == domain.SettlementPaid {
		logger.Info("Settlement already marked paid, ignoring duplicate confirmation")
		return settlement, nil
	}

	paidAt := time.Now().UTC()
	if err := s.settlementRepo.MarkSettlementPaid(ctx, settlementID, paidAt); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			// Lost the race against a concurrent confirmation; the outcome
			// is the same.
			return s.settlementRepo.FindSettlementByID(ctx, settlementID)
		}
		return nil, err
	}

	metrics.SettlementsPaid.Inc()
	logger.Info("Settlement marked paid", slog.Int64("total_amount", settlement.TotalAmount))

	settlement.Status = domain.SettlementPaid
	settlement.PaidAt = &paidAt
	return settlement, nil
}

func (s *settlementService) ListOpenSettlements(ctx context.Context, olderThan time.Duration) ([]domain.Settlement, error) {
	return s.settlementRepo.ListOpenSettlements(ctx, olderThan)
}
