package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/feastly/ledger_backend/internal/core/domain"
	portssvc "github.com/feastly/ledger_backend/internal/core/ports/services"
	"github.com/feastly/ledger_backend/internal/dto"
	"github.com/feastly/ledger_backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// settlementHandler handles settlement runs and payout-rail confirmations.
type settlementHandler struct {
	settlementSvc portssvc.SettlementSvcFacade
}

// newSettlementHandler creates a new settlementHandler.
func newSettlementHandler(settlementSvc portssvc.SettlementSvcFacade) *settlementHandler {
	return &settlementHandler{settlementSvc: settlementSvc}
}

// runSettlement triggers a settlement for one account and period. Re-running
// a settled period returns the existing settlement unchanged.
func (h *settlementHandler) runSettlement(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.RunSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind settlement run", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	logger = logger.With(slog.String("account_id", req.AccountID))

	period := domain.SettlementPeriod{Start: req.PeriodStart, End: req.PeriodEnd}
	settlement, err := h.settlementSvc.RunSettlement(c.Request.Context(), req.AccountID, period)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to run settlement")
		return
	}
	if settlement == nil {
		c.JSON(http.StatusOK, gin.H{"accountId": req.AccountID, "settled": false})
		return
	}

	c.JSON(http.StatusOK, dto.ToSettlementResponse(settlement))
}

// confirmSettlement applies the payout rail's asynchronous confirmation.
func (h *settlementHandler) confirmSettlement(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.SettlementConfirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind settlement confirmation", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	logger = logger.With(slog.String("settlement_id", req.SettlementID))

	settlement, err := h.settlementSvc.ConfirmSettlement(c.Request.Context(), req.SettlementID, req.Status == "success")
	if err != nil {
		respondServiceError(c, logger, err, "Failed to confirm settlement")
		return
	}

	c.JSON(http.StatusOK, dto.ToSettlementResponse(settlement))
}

// listOpenSettlements surfaces settlements awaiting confirmation. The
// optional olderThanHours query narrows to stale ones.
func (h *settlementHandler) listOpenSettlements(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var params struct {
		OlderThanHours int `form:"olderThanHours,default=0" binding:"gte=0"`
	}
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	settlements, err := h.settlementSvc.ListOpenSettlements(c.Request.Context(), time.Duration(params.OlderThanHours)*time.Hour)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to list open settlements")
		return
	}

	c.JSON(http.StatusOK, gin.H{"settlements": dto.ToSettlementResponses(settlements)})
}
