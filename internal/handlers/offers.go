package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/carlfalc/offer-direct-stays/internal/middleware"
	"github.com/carlfalc/offer-direct-stays/internal/models"
	"github.com/carlfalc/offer-direct-stays/internal/services"
	apperrors "github.com/carlfalc/offer-direct-stays/pkg/errors"
	"github.com/carlfalc/offer-direct-stays/pkg/response"
	"github.com/carlfalc/offer-direct-stays/pkg/validator"
)

// OfferHandler exposes the offer lifecycle endpoints.
type OfferHandler struct {
	offers *services.OfferService
}

// NewOfferHandler constructs an OfferHandler.
func NewOfferHandler(offers *services.OfferService) *OfferHandler {
	return &OfferHandler{offers: offers}
}

type submitOfferRequest struct {
	PropertyID   string  `json:"property_id" validate:"required"`
	RoomID       *string `json:"room_id"`
	OfferAmount  float64 `json:"offer_amount" validate:"required,gt=0"`
	Adults       int     `json:"adults" validate:"required,min=1"`
	Children     int     `json:"children" validate:"min=0"`
	CheckInDate  string  `json:"check_in_date" validate:"required"`
	CheckOutDate string  `json:"check_out_date" validate:"required"`
	GuestNotes   string  `json:"guest_notes"`
}

// POST /api/offers
func (h *OfferHandler) Submit(c *gin.Context) {
	var req submitOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid request body"))
		return
	}
	if err := validator.ValidateStruct(req); err != nil {
		response.Error(c, apperrors.NewValidation(err.Error()))
		return
	}

	checkIn, err := time.Parse("2006-01-02", req.CheckInDate)
	if err != nil {
		response.Error(c, apperrors.NewValidation("check_in_date must be YYYY-MM-DD"))
		return
	}
	checkOut, err := time.Parse("2006-01-02", req.CheckOutDate)
	if err != nil {
		response.Error(c, apperrors.NewValidation("check_out_date must be YYYY-MM-DD"))
		return
	}

	offer, err := h.offers.Submit(requestContext(c), services.SubmitOfferParams{
		GuestUserID:  currentUserID(c),
		PropertyID:   req.PropertyID,
		RoomID:       req.RoomID,
		OfferAmount:  req.OfferAmount,
		Adults:       req.Adults,
		Children:     req.Children,
		CheckInDate:  checkIn,
		CheckOutDate: checkOut,
		GuestNotes:   req.GuestNotes,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, offer)
}

// GET /api/offers/:id
func (h *OfferHandler) Get(c *gin.Context) {
	offer, err := h.offers.Get(requestContext(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, offer)
}

// GET /api/offers
func (h *OfferHandler) List(c *gin.Context) {
	if businessID := currentBusinessID(c); businessID != "" {
		offers, err := h.offers.ListForBusiness(requestContext(c), businessID)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		response.Success(c, http.StatusOK, offers)
		return
	}

	offers, err := h.offers.ListForGuest(requestContext(c), currentUserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, offers)
}

// businessOwnsOffer confirms the offer belongs to the caller's business.
// Admins bypass the check. Foreign offers read as not found so the endpoint
// does not confirm their existence.
func (h *OfferHandler) businessOwnsOffer(c *gin.Context) bool {
	if c.GetString(middleware.CtxUserRoleKey) == models.RoleAdmin {
		return true
	}

	offer, err := h.offers.Get(requestContext(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return false
	}
	if offer.Property == nil || offer.Property.BusinessID != currentBusinessID(c) {
		response.Error(c, apperrors.ErrNotFound)
		return false
	}
	return true
}

// POST /api/offers/:id/accept
func (h *OfferHandler) Accept(c *gin.Context) {
	if !h.businessOwnsOffer(c) {
		return
	}

	offer, err := h.offers.Accept(requestContext(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, offer)
}

type counterOfferRequest struct {
	CounterAmount float64 `json:"counter_amount" validate:"required,gt=0"`
}

// POST /api/offers/:id/counter
func (h *OfferHandler) Counter(c *gin.Context) {
	var req counterOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid request body"))
		return
	}
	if err := validator.ValidateStruct(req); err != nil {
		response.Error(c, apperrors.NewValidation(err.Error()))
		return
	}
	if !h.businessOwnsOffer(c) {
		return
	}

	offer, err := h.offers.Counter(requestContext(c), c.Param("id"), req.CounterAmount)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, offer)
}

// POST /api/offers/:id/decline
func (h *OfferHandler) Decline(c *gin.Context) {
	if !h.businessOwnsOffer(c) {
		return
	}

	offer, err := h.offers.Decline(requestContext(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, offer)
}

// POST /api/offers/:id/cancel
func (h *OfferHandler) Cancel(c *gin.Context) {
	offer, err := h.offers.Cancel(requestContext(c), c.Param("id"), currentUserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, offer)
}

// GET /api/offers/:id/respond?token=...
//
// Unauthenticated: access is granted by the emailed response token alone.
func (h *OfferHandler) ResolveToken(c *gin.Context) {
	offer, err := h.offers.ResolveResponseToken(requestContext(c), c.Param("id"), c.Query("token"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, offer)
}

type tokenRespondRequest struct {
	Action        string  `json:"action" validate:"required,oneof=accept counter decline"`
	CounterAmount float64 `json:"counter_amount" validate:"omitempty,gt=0"`
}

// POST /api/offers/:id/respond?token=...
func (h *OfferHandler) RespondWithToken(c *gin.Context) {
	offer, err := h.offers.ResolveResponseToken(requestContext(c), c.Param("id"), c.Query("token"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	var req tokenRespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid request body"))
		return
	}
	if err := validator.ValidateStruct(req); err != nil {
		response.Error(c, apperrors.NewValidation(err.Error()))
		return
	}

	switch req.Action {
	case "accept":
		offer, err = h.offers.Accept(requestContext(c), offer.ID)
	case "counter":
		offer, err = h.offers.Counter(requestContext(c), offer.ID, req.CounterAmount)
	case "decline":
		offer, err = h.offers.Decline(requestContext(c), offer.ID)
	}
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, offer)
}
