package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/feastly/ledger_backend/internal/core/domain"
	portssvc "github.com/feastly/ledger_backend/internal/core/ports/services"
	"github.com/feastly/ledger_backend/internal/dto"
	"github.com/feastly/ledger_backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// reportingHandler exposes balances, posting listings and file exports.
type reportingHandler struct {
	balanceSvc   portssvc.BalanceSvcFacade
	reportingSvc portssvc.ReportingSvcFacade
}

// newReportingHandler creates a new reportingHandler.
func newReportingHandler(balanceSvc portssvc.BalanceSvcFacade, reportingSvc portssvc.ReportingSvcFacade) *reportingHandler {
	return &reportingHandler{balanceSvc: balanceSvc, reportingSvc: reportingSvc}
}

// getBalance returns the derived balance of one account, optionally as of a
// past instant (asOf query, RFC 3339).
func (h *reportingHandler) getBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("accountID")

	var asOf *time.Time
	if raw := c.Query("asOf"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "asOf must be RFC 3339"})
			return
		}
		asOf = &t
	}

	balance, err := h.balanceSvc.GetBalance(c.Request.Context(), accountID, asOf)
	if err != nil {
		respondServiceError(c, logger.With(slog.String("account_id", accountID)), err, "Failed to compute balance")
		return
	}

	c.JSON(http.StatusOK, dto.ToBalanceResponse(balance))
}

// listAccountPostings pages one account's postings with an opaque cursor.
func (h *reportingHandler) listAccountPostings(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("accountID")

	var params dto.ListAccountPostingsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	resp, err := h.reportingSvc.ListAccountPostings(c.Request.Context(), accountID, params)
	if err != nil {
		respondServiceError(c, logger.With(slog.String("account_id", accountID)), err, "Failed to list account postings")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// getOrderPostings lists every posting referencing one order, oldest first.
func (h *reportingHandler) getOrderPostings(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orderRef := c.Param("orderRef")

	postings, err := h.reportingSvc.ListOrderPostings(c.Request.Context(), orderRef)
	if err != nil {
		respondServiceError(c, logger.With(slog.String("order_ref", orderRef)), err, "Failed to list order postings")
		return
	}

	c.JSON(http.StatusOK, gin.H{"orderId": orderRef, "postings": postings})
}

// listTransactions returns a filtered, paginated listing of all postings.
func (h *reportingHandler) listTransactions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var params dto.ListTransactionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	resp, err := h.reportingSvc.ListTransactions(c.Request.Context(), params)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to list transactions")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// exportTransactions streams the filtered postings as a CSV or XLSX download.
func (h *reportingHandler) exportTransactions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var params struct {
		Format      string     `form:"format,default=csv" binding:"oneof=csv xlsx"`
		Type        *string    `form:"type"`
		AccountType *string    `form:"accountType"`
		From        *time.Time `form:"from" time_format:"2006-01-02"`
		To          *time.Time `form:"to" time_format:"2006-01-02"`
	}
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	var filter domain.PostingFilter
	if params.Type != nil {
		t := domain.PostingType(*params.Type)
		filter.PostingType = &t
	}
	if params.AccountType != nil {
		t := domain.AccountType(*params.AccountType)
		filter.AccountType = &t
	}
	filter.From = params.From
	filter.To = params.To

	filename := fmt.Sprintf("transactions_%s.%s", time.Now().UTC().Format("20060102_150405"), params.Format)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	var err error
	switch params.Format {
	case "xlsx":
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		err = h.reportingSvc.ExportXLSX(c.Request.Context(), filter, c.Writer)
	default:
		c.Header("Content-Type", "text/csv")
		err = h.reportingSvc.ExportCSV(c.Request.Context(), filter, c.Writer)
	}
	if err != nil {
		// Headers may already be written; log and abort the stream.
		logger.Error("Failed to export transactions", slog.String("format", params.Format), slog.String("error", err.Error()))
		c.Abort()
	}
}
