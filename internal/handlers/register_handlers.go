package handlers

import (
	portssvc "github.com/feastly/ledger_backend/internal/core/ports/services"
	"github.com/feastly/ledger_backend/internal/middleware"
	"github.com/feastly/ledger_backend/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	dbPool *pgxpool.Pool,
) error {
	r.GET("/health", healthHandler(dbPool))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return setupAPIV1Routes(r, cfg, services)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to the
// per-concern route registrations.
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
) error {
	// The whole v1 surface is service-to-service and JWT protected.
	v1 := r.Group("/api/v1", middleware.AuthMiddleware(cfg.JWTSecret))

	rate, err := limiter.NewRateFromFormatted(cfg.IngestRateLimit)
	if err != nil {
		return err
	}
	ingestLimiter := limiter.New(memory.NewStore(), rate)

	registerEventRoutes(v1, services.Orchestrator, ingestLimiter)
	registerSettlementRoutes(v1, services.Settlement)
	registerReportingRoutes(v1, services.Balance, services.Reporting)
	return nil
}

// registerEventRoutes wires the write-side ingest endpoints. They carry a
// rate limit because the order-lifecycle system retries aggressively.
func registerEventRoutes(rg *gin.RouterGroup, orchestrator portssvc.OrchestratorSvcFacade, ingestLimiter *limiter.Limiter) {
	h := newEventsHandler(orchestrator)

	events := rg.Group("", middleware.RateLimit(ingestLimiter))
	{
		events.POST("/orders/events", h.handleOrderEvent)
		events.POST("/payments/failures", h.handlePaymentFailure)
		events.POST("/payments/repayments", h.handleDebtRepayment)
		events.POST("/adjustments", h.handleAdjustment)
	}

	rg.GET("/orders/flagged", h.listFlaggedOrders)
}

// registerSettlementRoutes wires settlement runs and confirmations.
func registerSettlementRoutes(rg *gin.RouterGroup, settlementSvc portssvc.SettlementSvcFacade) {
	h := newSettlementHandler(settlementSvc)

	settlements := rg.Group("/settlements")
	{
		settlements.POST("/run", h.runSettlement)
		settlements.POST("/confirmations", h.confirmSettlement)
		settlements.GET("/open", h.listOpenSettlements)
	}
}

// registerReportingRoutes wires the read side: balances, listings, exports.
func registerReportingRoutes(rg *gin.RouterGroup, balanceSvc portssvc.BalanceSvcFacade, reportingSvc portssvc.ReportingSvcFacade) {
	h := newReportingHandler(balanceSvc, reportingSvc)

	rg.GET("/accounts/:accountID/balance", h.getBalance)
	rg.GET("/accounts/:accountID/postings", h.listAccountPostings)
	rg.GET("/orders/:orderRef/postings", h.getOrderPostings)
	rg.GET("/transactions", h.listTransactions)
	rg.GET("/transactions/export", h.exportTransactions)
}
