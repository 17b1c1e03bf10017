package services

import (
	"context"
	"log/slog"

	"github.com/feastly/ledger_backend/internal/core/domain"
	portsrepo "github.com/feastly/ledger_backend/internal/core/ports/repositories"
	portssvc "github.com/feastly/ledger_backend/internal/core/ports/services"
	"github.com/feastly/ledger_backend/internal/middleware"
	"github.com/feastly/ledger_backend/internal/platform/metrics"
)

// ledgerService is the write front of the ledger store: it runs the posting
// validator before every commit and relies on the repository's idempotency
// key constraint for exactly-once semantics under retry.
type ledgerService struct {
	ledgerRepo portsrepo.LedgerRepositoryFacade
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(ledgerRepo portsrepo.LedgerRepositoryFacade) portssvc.LedgerSvcFacade {
	return &ledgerService{ledgerRepo: ledgerRepo}
}

var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

// AppendBatch validates and atomically commits a posting batch.
func (s *ledgerService) AppendBatch(ctx context.Context, batch domain.PostingBatch, postings []domain.Posting) (*domain.BatchResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := ValidateBatch(batch.EventType, postings); err != nil {
		metrics.BatchesRejected.Inc()
		logger.Error("Posting batch failed validation",
			slog.String("idempotency_key", batch.IdempotencyKey),
			slog.String("event_type", string(batch.EventType)),
			slog.String("error", err.Error()))
		return nil, err
	}

	result, err := s.ledgerRepo.AppendBatch(ctx, batch, postings)
	if err != nil {
		logger.Error("Failed to append posting batch",
			slog.String("idempotency_key", batch.IdempotencyKey),
			slog.String("error", err.Error()))
		return nil, err
	}

	if result.AlreadyCommitted {
		metrics.BatchesReplayed.Inc()
		logger.Info("Posting batch already committed, returning prior result",
			slog.String("idempotency_key", batch.IdempotencyKey))
		return result, nil
	}

	metrics.BatchesCommitted.WithLabelValues(string(batch.EventType)).Inc()
	logger.Info("Posting batch committed",
		slog.String("batch_id", result.Batch.BatchID),
		slog.String("idempotency_key", batch.IdempotencyKey),
		slog.Int("postings", len(result.Postings)))
	return result, nil
}
