package services

import (
	portsrepo "github.com/feastly/ledger_backend/internal/core/ports/repositories"
	portssvc "github.com/feastly/ledger_backend/internal/core/ports/services"
	"github.com/feastly/ledger_backend/internal/platform/config"
)

// NewContainer creates the service container with properly initialized
// dependencies. The ledger service is built first; the orchestrator and the
// settlement engine are its only two writers.
func NewContainer(repos *portsrepo.RepositoryProvider, cfg *config.Config) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.Account = NewAccountService(repos.AccountRepo)
	container.Ledger = NewLedgerService(repos.LedgerRepo)

	container.Orchestrator = NewOrchestratorService(
		container.Ledger,
		container.Account,
		repos.LedgerRepo,
		repos.OrderRepo,
		OrchestratorConfig{
			DeliveryMarginRate: cfg.DeliveryMarginRate,
			FailurePolicy:      PaymentFailurePolicy(cfg.PaymentFailurePolicy),
		},
	)

	container.Balance = NewBalanceService(container.Account, repos.LedgerRepo)
	container.Settlement = NewSettlementService(container.Account, repos.SettlementRepo, cfg.SettlementPeriodDays)
	container.Reporting = NewReportingService(repos.LedgerRepo)

	return container
}

// Compile time interface checks
var (
	_ portssvc.AccountSvcFacade      = (*accountService)(nil)
	_ portssvc.LedgerSvcFacade       = (*ledgerService)(nil)
	_ portssvc.OrchestratorSvcFacade = (*orchestratorService)(nil)
	_ portssvc.BalanceSvcFacade      = (*balanceService)(nil)
	_ portssvc.SettlementSvcFacade   = (*settlementService)(nil)
	_ portssvc.ReportingSvcFacade    = (*reportingService)(nil)
)
