package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/carlfalc/offer-direct-stays/internal/services"
	apperrors "github.com/carlfalc/offer-direct-stays/pkg/errors"
	"github.com/carlfalc/offer-direct-stays/pkg/response"
	"github.com/carlfalc/offer-direct-stays/pkg/validator"
)

// InvoiceHandler exposes invoice listing and the admin generation endpoint.
type InvoiceHandler struct {
	invoices *services.InvoiceService
}

// NewInvoiceHandler constructs an InvoiceHandler.
func NewInvoiceHandler(invoices *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// GET /api/invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	businessID := currentBusinessID(c)
	if businessID == "" {
		response.Error(c, apperrors.ErrForbidden)
		return
	}

	invoices, err := h.invoices.ListForBusiness(requestContext(c), businessID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, invoices)
}

// GET /api/invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoice, err := h.invoices.Get(requestContext(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	// Businesses may only read their own invoices; admins read any.
	if businessID := currentBusinessID(c); businessID != "" && invoice.BusinessID != businessID {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, invoice)
}

type generateInvoicesRequest struct {
	PeriodStart string `json:"period_start" validate:"omitempty,len=10"`
	PeriodEnd   string `json:"period_end" validate:"omitempty,len=10"`
	Period      string `json:"period" validate:"omitempty,len=7"`
	DryRun      bool   `json:"dry_run"`
}

// POST /api/admin/invoices/generate
//
// Accepts explicit period_start/period_end ISO dates (end inclusive to end of
// day), or the YYYY-MM month shorthand; when both are omitted the previous
// calendar month is used.
func (h *InvoiceHandler) Generate(c *gin.Context) {
	var req generateInvoicesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid request body"))
		return
	}
	if err := validator.ValidateStruct(req); err != nil {
		response.Error(c, apperrors.NewValidation(err.Error()))
		return
	}

	var periodStart, periodEnd time.Time
	switch {
	case req.PeriodStart != "" || req.PeriodEnd != "":
		if req.PeriodStart == "" || req.PeriodEnd == "" {
			response.Error(c, apperrors.NewValidation("period_start and period_end must be provided together"))
			return
		}
		if req.Period != "" {
			response.Error(c, apperrors.NewValidation("period cannot be combined with period_start/period_end"))
			return
		}
		start, err := time.Parse("2006-01-02", req.PeriodStart)
		if err != nil {
			response.Error(c, apperrors.NewValidation("period_start must be YYYY-MM-DD"))
			return
		}
		end, err := time.Parse("2006-01-02", req.PeriodEnd)
		if err != nil {
			response.Error(c, apperrors.NewValidation("period_end must be YYYY-MM-DD"))
			return
		}
		periodStart = start
		periodEnd = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
	case req.Period != "":
		month, err := time.Parse("2006-01", req.Period)
		if err != nil {
			response.Error(c, apperrors.NewValidation("period must be YYYY-MM"))
			return
		}
		periodStart = month
		periodEnd = month.AddDate(0, 1, 0).Add(-time.Nanosecond)
	default:
		periodStart, periodEnd = services.MonthlyPeriod(time.Now().UTC())
	}

	summary, err := h.invoices.GenerateMonthly(requestContext(c), services.GenerateParams{
		AdminUserID: currentUserID(c),
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		DryRun:      req.DryRun,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, summary)
}
