package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carlfalc/offer-direct-stays/internal/models"
	"github.com/carlfalc/offer-direct-stays/internal/realtime"
	"github.com/carlfalc/offer-direct-stays/internal/services"
	apperrors "github.com/carlfalc/offer-direct-stays/pkg/errors"
	"github.com/carlfalc/offer-direct-stays/pkg/response"
	"github.com/carlfalc/offer-direct-stays/pkg/validator"
)

// ConversationHandler exposes conversation listing, messaging, and the
// realtime subscription endpoint.
type ConversationHandler struct {
	conversations *services.ConversationService
	hub           *realtime.Hub
}

// NewConversationHandler constructs a ConversationHandler.
func NewConversationHandler(conversations *services.ConversationService, hub *realtime.Hub) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, hub: hub}
}

// GET /api/conversations
func (h *ConversationHandler) List(c *gin.Context) {
	conversations, err := h.conversations.ListForUser(requestContext(c), currentUserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, conversations)
}

// GET /api/conversations/:id
func (h *ConversationHandler) Get(c *gin.Context) {
	conv, err := h.participantConversation(c)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, conv)
}

// GET /api/conversations/:id/messages
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	conv, err := h.participantConversation(c)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	messages, err := h.conversations.ListMessages(requestContext(c), conv.ID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, messages)
}

type postMessageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

// POST /api/conversations/:id/messages
func (h *ConversationHandler) PostMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid request body"))
		return
	}
	if err := validator.ValidateStruct(req); err != nil {
		response.Error(c, apperrors.NewValidation(err.Error()))
		return
	}

	message, err := h.conversations.PostMessage(requestContext(c), c.Param("id"), currentUserID(c), req.Content)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, message)
}

// GET /api/conversations/:id/ws
//
// Upgrades to a websocket delivering message.created events for the
// conversation. Participants only.
func (h *ConversationHandler) Subscribe(c *gin.Context) {
	conv, err := h.participantConversation(c)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	stream := realtime.ConversationStream(conv.ID)
	allowed := map[string]struct{}{stream: {}}
	h.hub.Serve(currentUserID(c), []string{stream}, allowed, c.Writer, c.Request)
}

// participantConversation loads the conversation and verifies the caller is a
// participant. Non-participants get a not-found, not a forbidden, so the
// endpoint does not confirm the conversation exists.
func (h *ConversationHandler) participantConversation(c *gin.Context) (*models.Conversation, error) {
	conv, err := h.conversations.Get(requestContext(c), c.Param("id"))
	if err != nil {
		return nil, err
	}

	userID := currentUserID(c)
	participant := conv.GuestUserID == userID ||
		(conv.BusinessUserID != nil && *conv.BusinessUserID == userID)
	if !participant {
		return nil, services.ErrConversationNotFound
	}

	return conv, nil
}
