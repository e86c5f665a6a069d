package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/carlfalc/offer-direct-stays/internal/services"
	apperrors "github.com/carlfalc/offer-direct-stays/pkg/errors"
	"github.com/carlfalc/offer-direct-stays/pkg/response"
)

// writeServiceError maps domain sentinels onto typed API errors.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrOfferNotFound),
		errors.Is(err, services.ErrConversationNotFound),
		errors.Is(err, services.ErrUserNotFound):
		response.Error(c, apperrors.ErrNotFound)
	case errors.Is(err, services.ErrInvalidTransition):
		response.Error(c, apperrors.ErrInvalidTransition)
	case errors.Is(err, services.ErrAmountTooLow),
		errors.Is(err, services.ErrAmountTooHigh):
		response.Error(c, apperrors.NewValidation(err.Error()))
	case errors.Is(err, services.ErrOfferLimitReached):
		response.Error(c, apperrors.ErrOfferLimitReached)
	case errors.Is(err, services.ErrAccessDenied):
		response.Error(c, apperrors.ErrAccessDenied)
	case errors.Is(err, services.ErrPaymentNotCompleted):
		response.Error(c, apperrors.ErrPaymentNotCompleted)
	case errors.Is(err, services.ErrSessionMismatch):
		response.Error(c, apperrors.ErrSessionMismatch)
	case errors.Is(err, services.ErrConversationLocked):
		response.Error(c, apperrors.New("CONVERSATION_LOCKED", "Messaging unlocks once the booking is confirmed", 403))
	case errors.Is(err, services.ErrNotParticipant),
		errors.Is(err, services.ErrForbidden):
		response.Error(c, apperrors.ErrForbidden)
	case errors.Is(err, services.ErrInvalidCredentials):
		response.Error(c, apperrors.ErrInvalidCredentials)
	case errors.Is(err, services.ErrUserInactive):
		response.Error(c, apperrors.ErrForbidden)
	case errors.Is(err, services.ErrEmailTaken):
		response.Error(c, apperrors.New("EMAIL_TAKEN", "Email address is already registered", 409))
	default:
		response.Error(c, apperrors.ErrInternalServer.WithInternal(err))
	}
}
