package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/feastly/ledger_backend/internal/core/ports/services"
	"github.com/feastly/ledger_backend/internal/dto"
	"github.com/feastly/ledger_backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// eventsHandler handles HTTP requests from the order-lifecycle and payment
// systems. Every endpoint here is safe to retry.
type eventsHandler struct {
	orchestrator portssvc.OrchestratorSvcFacade
}

// newEventsHandler creates a new eventsHandler.
func newEventsHandler(orchestrator portssvc.OrchestratorSvcFacade) *eventsHandler {
	return &eventsHandler{orchestrator: orchestrator}
}

// handleOrderEvent ingests one order lifecycle event (delivered, cancelled,
// refunded). Duplicate deliveries replay the originally committed batch and
// respond with alreadyCommitted set.
func (h *eventsHandler) handleOrderEvent(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.OrderEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind order event", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	logger = logger.With(slog.String("order_ref", req.OrderID), slog.String("event_type", req.EventType))

	result, err := h.orchestrator.HandleOrderEvent(c.Request.Context(), req.ToDomain())
	if err != nil {
		respondServiceError(c, logger, err, "Failed to process order event")
		return
	}
	if result == nil {
		// State advanced without postings (e.g. cancel before delivery).
		c.JSON(http.StatusOK, gin.H{"orderId": req.OrderID, "postings": 0})
		return
	}

	logger.Info("Order event processed",
		slog.String("batch_id", result.Batch.BatchID),
		slog.Bool("already_committed", result.AlreadyCommitted))
	c.JSON(http.StatusOK, dto.ToBatchResultResponse(result))
}

// handlePaymentFailure applies the configured payment-failure policy to a
// delivered order.
func (h *eventsHandler) handlePaymentFailure(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.PaymentFailureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind payment failure", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	logger = logger.With(slog.String("order_ref", req.OrderID))

	result, err := h.orchestrator.HandlePaymentFailure(c.Request.Context(), req.OrderID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to process payment failure")
		return
	}
	if result == nil {
		// Write-off policy: the order was flagged, nothing was posted.
		c.JSON(http.StatusOK, gin.H{"orderId": req.OrderID, "postings": 0})
		return
	}

	logger.Info("Payment failure recorded", slog.String("batch_id", result.Batch.BatchID))
	c.JSON(http.StatusOK, dto.ToBatchResultResponse(result))
}

// handleDebtRepayment posts a repayment against an order's outstanding client debt.
func (h *eventsHandler) handleDebtRepayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.DebtRepaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind debt repayment", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	logger = logger.With(slog.String("order_ref", req.OrderID), slog.Int64("amount", req.Amount))

	result, err := h.orchestrator.RecordDebtRepayment(c.Request.Context(), req.OrderID, req.Amount)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to record debt repayment")
		return
	}

	logger.Info("Debt repayment recorded", slog.String("batch_id", result.Batch.BatchID))
	c.JSON(http.StatusOK, dto.ToBatchResultResponse(result))
}

// handleAdjustment credits or claws back a partner account outside the order flow.
func (h *eventsHandler) handleAdjustment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind adjustment", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	logger = logger.With(slog.String("account_id", req.AccountID), slog.Int64("amount", req.Amount))
	if caller, ok := middleware.GetCallerFromContext(c); ok {
		// Manual money movement: record who asked for it.
		logger = logger.With(slog.String("caller", caller))
	}

	result, err := h.orchestrator.RecordAdjustment(c.Request.Context(), req.AccountID, req.Amount, req.Reason)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to record adjustment")
		return
	}

	logger.Info("Adjustment recorded", slog.String("batch_id", result.Batch.BatchID))
	c.JSON(http.StatusOK, dto.ToBatchResultResponse(result))
}

// listFlaggedOrders returns orders held for manual reconciliation review.
func (h *eventsHandler) listFlaggedOrders(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	orders, err := h.orchestrator.ListFlaggedOrders(c.Request.Context())
	if err != nil {
		respondServiceError(c, logger, err, "Failed to list flagged orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": dto.ToFlaggedOrderResponses(orders)})
}
