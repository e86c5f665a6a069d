package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carlfalc/offer-direct-stays/internal/services"
	apperrors "github.com/carlfalc/offer-direct-stays/pkg/errors"
	"github.com/carlfalc/offer-direct-stays/pkg/response"
	"github.com/carlfalc/offer-direct-stays/pkg/validator"
)

// PaymentHandler exposes the booking commitment fee checkout endpoints.
type PaymentHandler struct {
	payments *services.PaymentService
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// POST /api/offers/:id/checkout
func (h *PaymentHandler) CreateCheckout(c *gin.Context) {
	session, err := h.payments.CreateCheckoutSession(requestContext(c), c.Param("id"), currentUserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"session_id":   session.ID,
		"checkout_url": session.URL,
		"amount":       session.AmountTotal,
		"currency":     session.Currency,
	})
}

type verifyPaymentRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

// POST /api/offers/:id/verify-payment
func (h *PaymentHandler) Verify(c *gin.Context) {
	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid request body"))
		return
	}
	if err := validator.ValidateStruct(req); err != nil {
		response.Error(c, apperrors.NewValidation(err.Error()))
		return
	}

	offer, err := h.payments.VerifyPayment(requestContext(c), c.Param("id"), currentUserID(c), req.SessionID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, offer)
}
