package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/feastly/ledger_backend/internal/apperrors"
	"github.com/feastly/ledger_backend/internal/core/domain"
	portsrepo "github.com/feastly/ledger_backend/internal/core/ports/repositories"
	portssvc "github.com/feastly/ledger_backend/internal/core/ports/services"
	"github.com/feastly/ledger_backend/internal/middleware"
	"github.com/feastly/ledger_backend/internal/platform/metrics"
	"github.com/feastly/ledger_backend/internal/utils/accounting"
)

// PaymentFailurePolicy decides what happens when a client's stated payment
// method fails after delivery.
type PaymentFailurePolicy string

const (
	// PolicyDebt tracks the unpaid amount as a client receivable.
	PolicyDebt PaymentFailurePolicy = "debt"
	// PolicyWriteOff posts nothing and flags the order for review.
	PolicyWriteOff PaymentFailurePolicy = "writeoff"
)

// OrchestratorConfig carries the business parameters of the orchestrator.
type OrchestratorConfig struct {
	// DeliveryMarginRate is the platform's cut of the delivery fee.
	DeliveryMarginRate decimal.Decimal
	// FailurePolicy selects debt tracking vs write-off on payment failure.
	FailurePolicy PaymentFailurePolicy
}

// orchestratorService translates order lifecycle events into posting batches.
// It is the only producer of order-scoped postings; the settlement engine is
// the only other writer to the ledger.
type orchestratorService struct {
	ledgerSvc  portssvc.LedgerSvcFacade
	accountSvc portssvc.AccountSvcFacade
	ledgerRepo portsrepo.LedgerReader
	orderRepo  portsrepo.OrderRepositoryFacade
	balances   portsrepo.BalanceReader
	cfg        OrchestratorConfig
}

// NewOrchestratorService creates a new OrchestratorService.
func NewOrchestratorService(
	ledgerSvc portssvc.LedgerSvcFacade,
	accountSvc portssvc.AccountSvcFacade,
	ledgerRepo portsrepo.LedgerRepositoryFacade,
	orderRepo portsrepo.OrderRepositoryFacade,
	cfg OrchestratorConfig,
) portssvc.OrchestratorSvcFacade {
	return &orchestratorService{
		ledgerSvc:  ledgerSvc,
		accountSvc: accountSvc,
		ledgerRepo: ledgerRepo,
		orderRepo:  orderRepo,
		balances:   ledgerRepo,
		cfg:        cfg,
	}
}

var _ portssvc.OrchestratorSvcFacade = (*orchestratorService)(nil)

// HandleOrderEvent processes one at-least-once order lifecycle event.
func (s *orchestratorService) HandleOrderEvent(ctx context.Context, event domain.OrderEvent) (*domain.BatchResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx).With(
		slog.String("order_ref", event.OrderRef),
		slog.String("event_type", string(event.EventType)))

	if err := s.validateEvent(event); err != nil {
		return nil, err
	}

	order, err := s.orderRepo.FindOrder(ctx, event.OrderRef)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	if order != nil {
		if order.Flagged {
			logger.Warn("Event for flagged order rejected", slog.String("flag_reason", order.FlagReason))
			return nil, fmt.Errorf("%w: order %s is flagged: %s", apperrors.ErrReconciliation, order.OrderRef, order.FlagReason)
		}
		if err := s.checkAmounts(ctx, logger, order, event); err != nil {
			return nil, err
		}
	}

	switch event.EventType {
	case domain.EventDelivered:
		return s.handleDelivered(ctx, logger, order, event)
	case domain.EventCancelled, domain.EventRefunded:
		return s.handleReversal(ctx, logger, order, event)
	default:
		return nil, fmt.Errorf("%w: unsupported lifecycle event %q", apperrors.ErrValidation, event.EventType)
	}
}

func (s *orchestratorService) validateEvent(event domain.OrderEvent) error {
	if event.OrderRef == "" {
		return fmt.Errorf("%w: order reference is required", apperrors.ErrValidation)
	}
	if event.Subtotal <= 0 {
		return fmt.Errorf("%w: subtotal must be positive, got %d", apperrors.ErrValidation, event.Subtotal)
	}
	if event.DeliveryFee < 0 {
		return fmt.Errorf("%w: delivery fee must not be negative, got %d", apperrors.ErrValidation, event.DeliveryFee)
	}
	if err := accounting.ValidateRate("commission rate", event.CommissionRate); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrValidation, err)
	}
	return nil
}

// checkAmounts compares an event against the amounts already recorded for the
// order. A mismatch is a fatal reconciliation conflict: the order is flagged
// and excluded from automated reprocessing, never auto-corrected.
func (s *orchestratorService) checkAmounts(ctx context.Context, logger *slog.Logger, order *domain.Order, event domain.OrderEvent) error {
	if order.Subtotal == event.Subtotal &&
		order.DeliveryFee == event.DeliveryFee &&
		order.CommissionRate.Equal(event.CommissionRate) {
		return nil
	}

	reason := fmt.Sprintf("event %s reports subtotal=%d fee=%d rate=%s, ledger has subtotal=%d fee=%d rate=%s",
		event.EventType, event.Subtotal, event.DeliveryFee, event.CommissionRate.String(),
		order.Subtotal, order.DeliveryFee, order.CommissionRate.String())

	metrics.ReconciliationConflicts.Inc()
	logger.Error("Reconciliation conflict, flagging order", slog.String("reason", reason))
	if err := s.orderRepo.FlagOrder(ctx, order.OrderRef, reason); err != nil {
		logger.Error("Failed to flag order", slog.String("error", err.Error()))
		return err
	}
	return fmt.Errorf("%w: %s", apperrors.ErrReconciliation, reason)
}

func (s *orchestratorService) handleDelivered(ctx context.Context, logger *slog.Logger, order *domain.Order, event domain.OrderEvent) (*domain.BatchResult, error) {
	if order != nil && order.State != domain.OrderPending {
		if order.State == domain.OrderDelivered {
			// Duplicate webhook delivery: replay the committed batch.
			return s.replay(ctx, logger, event.IdempotencyKey())
		}
		return nil, fmt.Errorf("%w: cannot deliver order in state %s", apperrors.ErrInvalidTransition, order.State)
	}

	restaurant, err := s.accountSvc.EnsureAccount(ctx, domain.AccountRestaurant, event.RestaurantRef)
	if err != nil {
		return nil, err
	}
	courier, err := s.accountSvc.EnsureAccount(ctx, domain.AccountDeliveryAgent, event.CourierRef)
	if err != nil {
		return nil, err
	}
	platform, err := s.accountSvc.PlatformAccount(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	commission := accounting.ApplyRate(event.Subtotal, event.CommissionRate)
	margin := accounting.ApplyRate(event.DeliveryFee, s.cfg.DeliveryMarginRate)
	gross := event.Subtotal + event.DeliveryFee

	batch := domain.PostingBatch{
		BatchID:        uuid.NewString(),
		IdempotencyKey: event.IdempotencyKey(),
		OrderRef:       event.OrderRef,
		EventType:      domain.EventDelivered,
		CreatedAt:      now,
	}

	postings := []domain.Posting{
		s.posting(batch, domain.OrderRevenue, restaurant.AccountID, event.Subtotal, event.OrderRef, "order subtotal", now),
		s.posting(batch, domain.RestaurantPayable, restaurant.AccountID, -commission, event.OrderRef, "platform commission offset", now),
		s.posting(batch, domain.PlatformCommission, platform.AccountID, commission, event.OrderRef, "platform commission", now),
		s.posting(batch, domain.DeliveryEarning, courier.AccountID, event.DeliveryFee-margin, event.OrderRef, "delivery fee net of margin", now),
		s.posting(batch, domain.PlatformDeliveryMargin, platform.AccountID, margin, event.OrderRef, "platform delivery margin", now),
	}

	// The funding side: cash orders put the collected amount on the agent as
	// a debt; online orders book the captured client payment against the
	// platform's held funds.
	if event.PaymentMethod == domain.PaymentCash {
		postings = append(postings,
			s.posting(batch, domain.CashCollected, courier.AccountID, -gross, event.OrderRef, "cash collected on delivery", now))
	} else {
		postings = append(postings,
			s.posting(batch, domain.OrderRevenue, platform.AccountID, -gross, event.OrderRef, "captured client payment", now))
	}

	// Zero-fee orders produce a zero margin posting; drop zero amounts before
	// validation.
	postings = dropZeroAmounts(postings)

	result, err := s.ledgerSvc.AppendBatch(ctx, batch, postings)
	if err != nil {
		return nil, err
	}

	state := domain.Order{
		OrderRef:       event.OrderRef,
		State:          domain.OrderDelivered,
		Subtotal:       event.Subtotal,
		DeliveryFee:    event.DeliveryFee,
		CommissionRate: event.CommissionRate,
		PaymentMethod:  event.PaymentMethod,
		RestaurantRef:  event.RestaurantRef,
		CourierRef:     event.CourierRef,
		ClientRef:      event.ClientRef,
		UpdatedAt:      now,
	}
	if err := s.orderRepo.SaveOrder(ctx, state); err != nil {
		// The batch is committed; a retried event will replay it and save
		// the state again.
		logger.Error("Batch committed but order state save failed", slog.String("error", err.Error()))
		return nil, err
	}

	return result, nil
}

// handleReversal emits the exact negation of the delivered batch under a new
// idempotency key. The funding entry's reversal is typed
// PLATFORM_NOT_DELIVERED_REFUND; all other reversals keep their original
// types so payable aggregation self-corrects.
func (s *orchestratorService) handleReversal(ctx context.Context, logger *slog.Logger, order *domain.Order, event domain.OrderEvent) (*domain.BatchResult, error) {
	targetState := domain.OrderCancelled
	if event.EventType == domain.EventRefunded {
		targetState = domain.OrderRefunded
	}

	if order == nil {
		if event.EventType != domain.EventCancelled {
			return nil, fmt.Errorf("%w: no order state for %s", apperrors.ErrNotFound, event.OrderRef)
		}
		// Cancelled before any delivery was recorded. Persist the terminal
		// state so a retried cancellation is recognized; nothing is posted.
		state := domain.Order{
			OrderRef:       event.OrderRef,
			State:          domain.OrderCancelled,
			Subtotal:       event.Subtotal,
			DeliveryFee:    event.DeliveryFee,
			CommissionRate: event.CommissionRate,
			PaymentMethod:  event.PaymentMethod,
			RestaurantRef:  event.RestaurantRef,
			CourierRef:     event.CourierRef,
			ClientRef:      event.ClientRef,
			UpdatedAt:      time.Now().UTC(),
		}
		if err := s.orderRepo.SaveOrder(ctx, state); err != nil {
			return nil, err
		}
		logger.Info("Order cancelled before delivery, no postings emitted")
		return nil, nil
	}

	switch order.State {
	case domain.OrderCancelled, domain.OrderRefunded:
		if order.State != targetState {
			return nil, fmt.Errorf("%w: cannot reverse order in state %s", apperrors.ErrInvalidTransition, order.State)
		}
		// Duplicate delivery of the terminal event. A cancellation that
		// happened before delivery has no batch to replay.
		result, err := s.ledgerRepo.FindBatchByIdempotencyKey(ctx, event.IdempotencyKey())
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) && order.State == domain.OrderCancelled {
				logger.Info("Duplicate cancellation, nothing to replay")
				return nil, nil
			}
			if errors.Is(err, apperrors.ErrNotFound) {
				logger.Error("Order state says event was applied but no batch exists", slog.String("idempotency_key", event.IdempotencyKey()))
				return nil, fmt.Errorf("%w: order state has no matching ledger batch %s", apperrors.ErrReconciliation, event.IdempotencyKey())
			}
			return nil, err
		}
		result.AlreadyCommitted = true
		logger.Info("Duplicate event, replaying committed batch", slog.String("idempotency_key", event.IdempotencyKey()))
		return result, nil
	case domain.OrderDelivered:
		// Fall through to the reversing batch below.
	default:
		return nil, fmt.Errorf("%w: cannot reverse order in state %s", apperrors.ErrInvalidTransition, order.State)
	}

	deliveredKey := fmt.Sprintf("order:%s:%s", event.OrderRef, domain.EventDelivered)
	original, err := s.ledgerRepo.FindBatchByIdempotencyKey(ctx, deliveredKey)
	if err != nil {
		return nil, fmt.Errorf("loading delivered batch for reversal: %w", err)
	}

	platform, err := s.accountSvc.PlatformAccount(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	batch := domain.PostingBatch{
		BatchID:        uuid.NewString(),
		IdempotencyKey: event.IdempotencyKey(),
		OrderRef:       event.OrderRef,
		EventType:      event.EventType,
		CreatedAt:      now,
	}

	reversals := make([]domain.Posting, 0, len(original.Postings))
	for _, p := range original.Postings {
		postingType := p.PostingType
		description := "reversal: " + p.Description
		if fundingLeg(order.PaymentMethod, p, platform.AccountID) {
			// The funding entry: the held (or collected) client payment is
			// released back to the client via the external payment rail.
			postingType = domain.PlatformNotDeliveredRefund
			description = "refund of client payment"
		}
		reversals = append(reversals, s.posting(batch, postingType, p.AccountID, -p.Amount, p.OrderRef, description, now))
	}

	result, err := s.ledgerSvc.AppendBatch(ctx, batch, reversals)
	if err != nil {
		return nil, err
	}

	order.State = targetState
	order.UpdatedAt = now
	if err := s.orderRepo.SaveOrder(ctx, *order); err != nil {
		logger.Error("Reversal committed but order state save failed", slog.String("error", err.Error()))
		return nil, err
	}

	return result, nil
}

// HandlePaymentFailure applies the configured policy when a delivered order's
// online payment turns out to have failed.
func (s *orchestratorService) HandlePaymentFailure(ctx context.Context, orderRef string) (*domain.BatchResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx).With(slog.String("order_ref", orderRef))

	order, err := s.orderRepo.FindOrder(ctx, orderRef)
	if err != nil {
		return nil, err
	}
	if order.Flagged {
		logger.Warn("Payment failure for flagged order rejected", slog.String("flag_reason", order.FlagReason))
		return nil, fmt.Errorf("%w: order %s is flagged: %s", apperrors.ErrReconciliation, orderRef, order.FlagReason)
	}
	if order.State != domain.OrderDelivered {
		return nil, fmt.Errorf("%w: payment failure reported for order in state %s", apperrors.ErrInvalidTransition, order.State)
	}
	if order.PaymentMethod != domain.PaymentOnline {
		return nil, fmt.Errorf("%w: payment failure only applies to online orders", apperrors.ErrValidation)
	}

	if s.cfg.FailurePolicy == PolicyWriteOff {
		reason := "payment failure written off per policy"
		if err := s.orderRepo.FlagOrder(ctx, orderRef, reason); err != nil {
			return nil, err
		}
		logger.Warn("Payment failure written off, order flagged for review")
		return nil, nil
	}

	client, err := s.accountSvc.EnsureAccount(ctx, domain.AccountClient, order.ClientRef)
	if err != nil {
		return nil, err
	}
	platform, err := s.accountSvc.PlatformAccount(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	gross := order.Subtotal + order.DeliveryFee
	batch := domain.PostingBatch{
		BatchID:        uuid.NewString(),
		IdempotencyKey: fmt.Sprintf("order:%s:%s", orderRef, domain.EventPaymentFailed),
		OrderRef:       orderRef,
		EventType:      domain.EventPaymentFailed,
		CreatedAt:      now,
	}
	postings := []domain.Posting{
		// The payment capture booked at delivery never happened: release the
		// held-funds entry and move the hole onto the client as a receivable.
		s.posting(batch, domain.OrderRevenue, platform.AccountID, gross, orderRef, "release of failed payment capture", now),
		s.posting(batch, domain.ClientDebt, client.AccountID, -gross, orderRef, "client payment failed", now),
	}

	return s.ledgerSvc.AppendBatch(ctx, batch, postings)
}

// RecordDebtRepayment posts a repayment against an order's outstanding client
// debt. The idempotency key includes the amount, so a duplicate notification
// of the same repayment collapses while distinct partial repayments commit.
func (s *orchestratorService) RecordDebtRepayment(ctx context.Context, orderRef string, amount int64) (*domain.BatchResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: repayment amount must be positive", apperrors.ErrValidation)
	}

	order, err := s.orderRepo.FindOrder(ctx, orderRef)
	if err != nil {
		return nil, err
	}
	if order.Flagged {
		return nil, fmt.Errorf("%w: order %s is flagged: %s", apperrors.ErrReconciliation, orderRef, order.FlagReason)
	}

	client, err := s.accountSvc.EnsureAccount(ctx, domain.AccountClient, order.ClientRef)
	if err != nil {
		return nil, err
	}
	platform, err := s.accountSvc.PlatformAccount(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	outstanding, err := s.balances.SumOutstandingDebt(ctx, client.AccountID, now)
	if err != nil {
		return nil, err
	}
	if outstanding+amount > 0 {
		return nil, fmt.Errorf("%w: repayment %d exceeds outstanding debt %d", apperrors.ErrValidation, amount, -outstanding)
	}

	batch := domain.PostingBatch{
		BatchID:        uuid.NewString(),
		IdempotencyKey: fmt.Sprintf("order:%s:%s:%d", orderRef, domain.EventDebtRepayment, amount),
		OrderRef:       orderRef,
		EventType:      domain.EventDebtRepayment,
		CreatedAt:      now,
	}
	postings := []domain.Posting{
		s.posting(batch, domain.ClientDebt, client.AccountID, amount, orderRef, "debt repayment received", now),
		s.posting(batch, domain.OrderRevenue, platform.AccountID, -amount, orderRef, "recovered client payment", now),
	}

	return s.ledgerSvc.AppendBatch(ctx, batch, postings)
}

// RecordAdjustment credits a restaurant or delivery agent outside the order
// flow, offset on the platform account so the batch nets to zero.
func (s *orchestratorService) RecordAdjustment(ctx context.Context, accountID string, amount int64, reason string) (*domain.BatchResult, error) {
	if amount == 0 {
		return nil, fmt.Errorf("%w: adjustment amount must not be zero", apperrors.ErrValidation)
	}
	if reason == "" {
		return nil, fmt.Errorf("%w: adjustment reason is required", apperrors.ErrValidation)
	}

	account, err := s.accountSvc.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var postingType domain.PostingType
	switch account.AccountType {
	case domain.AccountRestaurant:
		postingType = domain.RestaurantPayable
	case domain.AccountDeliveryAgent:
		postingType = domain.DeliveryPayable
	default:
		return nil, fmt.Errorf("%w: adjustments only apply to restaurant and delivery agent accounts", apperrors.ErrValidation)
	}

	platform, err := s.accountSvc.PlatformAccount(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	batch := domain.PostingBatch{
		BatchID:        uuid.NewString(),
		IdempotencyKey: "adjustment:" + uuid.NewString(),
		EventType:      domain.EventAdjustment,
		CreatedAt:      now,
	}
	postings := []domain.Posting{
		s.posting(batch, postingType, account.AccountID, amount, "", "adjustment: "+reason, now),
		s.posting(batch, postingType, platform.AccountID, -amount, "", "adjustment offset: "+reason, now),
	}

	return s.ledgerSvc.AppendBatch(ctx, batch, postings)
}

func (s *orchestratorService) ListFlaggedOrders(ctx context.Context) ([]domain.Order, error) {
	return s.orderRepo.ListFlaggedOrders(ctx)
}

// replay returns the batch previously committed under key, marking it as a
// duplicate. A missing batch here means state and ledger disagree.
func (s *orchestratorService) replay(ctx context.Context, logger *slog.Logger, key string) (*domain.BatchResult, error) {
	result, err := s.ledgerRepo.FindBatchByIdempotencyKey(ctx, key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Error("Order state says event was applied but no batch exists", slog.String("idempotency_key", key))
			return nil, fmt.Errorf("%w: order state has no matching ledger batch %s", apperrors.ErrReconciliation, key)
		}
		return nil, err
	}
	result.AlreadyCommitted = true
	logger.Info("Duplicate event, replaying committed batch", slog.String("idempotency_key", key))
	return result, nil
}

func (s *orchestratorService) posting(batch domain.PostingBatch, postingType domain.PostingType, accountID string, amount int64, orderRef, description string, now time.Time) domain.Posting {
	return domain.Posting{
		PostingID:   uuid.NewString(),
		BatchID:     batch.BatchID,
		PostingType: postingType,
		AccountID:   accountID,
		Amount:      amount,
		OrderRef:    orderRef,
		Description: description,
		CreatedAt:   now,
	}
}

// fundingLeg reports whether p is the client-money side of a delivered
// batch: the platform's captured-payment entry for online orders, the
// courier's cash-collected entry for cash orders. The match is on identity,
// not amount; a commission offset can legitimately equal the gross.
func fundingLeg(method domain.PaymentMethod, p domain.Posting, platformAccountID string) bool {
	if method == domain.PaymentCash {
		return p.PostingType == domain.CashCollected
	}
	return p.PostingType == domain.OrderRevenue && p.AccountID == platformAccountID
}

func dropZeroAmounts(postings []domain.Posting) []domain.Posting {
	out := postings[:0]
	for _, p := range postings {
		if p.Amount != 0 {
			out = append(out, p)
		}
	}
	return out
}
