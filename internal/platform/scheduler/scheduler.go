package scheduler

import (
	"context"
	"log/slog"
	"time"

	portssvc "github.com/feastly/ledger_backend/internal/core/ports/services"
	"github.com/feastly/ledger_backend/internal/middleware"
	"github.com/robfig/cron/v3"
)

// Scheduler runs the periodic settlement sweep. Overlapping runs are skipped;
// settlement itself is idempotent, so a skipped tick is caught up by the next.
type Scheduler struct {
	cron          *cron.Cron
	settlementSvc portssvc.SettlementSvcFacade
	logger        *slog.Logger
	timeout       time.Duration
}

// New creates a scheduler that triggers the settlement sweep on the given
// cron expression.
func New(settlementSvc portssvc.SettlementSvcFacade, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
		settlementSvc: settlementSvc,
		logger:        logger,
		timeout:       30 * time.Minute,
	}
}

// Start registers the sweep job and starts the cron loop in its own goroutine.
func (s *Scheduler) Start(cronExpr string) error {
	_, err := s.cron.AddFunc(cronExpr, s.runSweep)
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("Settlement scheduler started", slog.String("cron", cronExpr))
	return nil
}

// Stop stops the cron loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Settlement scheduler stopped")
}

func (s *Scheduler) runSweep() {
	logger := s.logger.With(slog.String("job", "settlement_sweep"))
	ctx, cancel := context.WithTimeout(middleware.ContextWithLogger(context.Background(), logger), s.timeout)
	defer cancel()

	if err := s.settlementSvc.RunDuePeriod(ctx, time.Now().UTC()); err != nil {
		logger.Error("Settlement sweep reported failures", slog.String("error", err.Error()))
	}
}
