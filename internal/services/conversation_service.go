package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/carlfalc/offer-direct-stays/internal/models"
	"github.com/carlfalc/offer-direct-stays/internal/realtime"
	"github.com/carlfalc/offer-direct-stays/pkg/logger"
)

// SystemMessageBookingConfirmed is the single system message inserted when a
// booking is confirmed. Insertion is deduplicated on this exact content.
const SystemMessageBookingConfirmed = "Booking confirmed - you can now message each other directly."

// ConversationOption customises ConversationService behaviour.
type ConversationOption func(*ConversationService)

// WithConversationClock injects a custom clock primarily for testing.
func WithConversationClock(clock func() time.Time) ConversationOption {
	return func(s *ConversationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithConversationHub attaches a realtime hub for message fan-out.
func WithConversationHub(hub *realtime.Hub) ConversationOption {
	return func(s *ConversationService) {
		s.hub = hub
	}
}

// ConversationService manages offer-paired conversations and enforces the
// unlock gate: no message is persisted against a conversation whose offer has
// not reached the paid/confirmed state.
type ConversationService struct {
	db  *gorm.DB
	hub *realtime.Hub
	now func() time.Time
	log *zap.Logger
}

// NewConversationService constructs a ConversationService.
func NewConversationService(db *gorm.DB, opts ...ConversationOption) (*ConversationService, error) {
	if db == nil {
		return nil, errors.New("conversation service: db is required")
	}

	service := &ConversationService{
		db:  db,
		now: time.Now,
		log: logger.WithModule("conversations"),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// EnsureParams identifies the conversation to create or update for an offer.
type EnsureParams struct {
	OfferID        string
	GuestUserID    string
	BusinessID     string
	BusinessUserID string
	Unlock         bool
}

// Ensure idempotently creates the conversation for an offer, filling in
// business identifiers that were unknown at creation time. is_unlocked may be
// raised to true but never lowered back to false.
func (s *ConversationService) Ensure(ctx context.Context, params EnsureParams) (*models.Conversation, error) {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(params.OfferID) == "" {
		return nil, errors.New("conversation service: offer id is required")
	}

	var conv models.Conversation
	err := s.db.WithContext(ctx).Where("offer_id = ?", params.OfferID).First(&conv).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		conv = models.Conversation{
			OfferID:     params.OfferID,
			GuestUserID: params.GuestUserID,
			IsUnlocked:  params.Unlock,
		}
		if params.BusinessID != "" {
			conv.BusinessID = &params.BusinessID
		}
		if params.BusinessUserID != "" {
			conv.BusinessUserID = &params.BusinessUserID
		}
		if createErr := s.db.WithContext(ctx).Create(&conv).Error; createErr != nil {
			if !isUniqueConstraintError(createErr) {
				return nil, fmt.Errorf("conversation service: create conversation: %w", createErr)
			}
			// Lost a creation race; fall through to update the winner's row.
			if findErr := s.db.WithContext(ctx).Where("offer_id = ?", params.OfferID).First(&conv).Error; findErr != nil {
				return nil, fmt.Errorf("conversation service: find conversation after race: %w", findErr)
			}
		} else {
			return &conv, nil
		}
	case err != nil:
		return nil, fmt.Errorf("conversation service: find conversation: %w", err)
	}

	updates := map[string]any{}
	if params.Unlock && !conv.IsUnlocked {
		updates["is_unlocked"] = true
	}
	if conv.BusinessID == nil && params.BusinessID != "" {
		updates["business_id"] = params.BusinessID
	}
	if conv.BusinessUserID == nil && params.BusinessUserID != "" {
		updates["business_user_id"] = params.BusinessUserID
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&conv).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("conversation service: update conversation: %w", err)
		}
		if err := s.db.WithContext(ctx).Where("offer_id = ?", params.OfferID).First(&conv).Error; err != nil {
			return nil, fmt.Errorf("conversation service: reload conversation: %w", err)
		}
	}

	return &conv, nil
}

// Get returns a conversation by id.
func (s *ConversationService) Get(ctx context.Context, conversationID string) (*models.Conversation, error) {
	ctx = ensureContext(ctx)

	var conv models.Conversation
	if err := s.db.WithContext(ctx).First(&conv, "id = ?", conversationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("conversation service: find conversation: %w", err)
	}
	return &conv, nil
}

// GetByOffer returns the conversation paired with an offer.
func (s *ConversationService) GetByOffer(ctx context.Context, offerID string) (*models.Conversation, error) {
	ctx = ensureContext(ctx)

	var conv models.Conversation
	if err := s.db.WithContext(ctx).Where("offer_id = ?", offerID).First(&conv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("conversation service: find conversation: %w", err)
	}
	return &conv, nil
}

// CanSendMessage reports whether the conversation accepts new messages.
func (s *ConversationService) CanSendMessage(conv *models.Conversation) bool {
	return conv != nil && conv.IsUnlocked
}

// PostMessage persists a user message and publishes it to the conversation's
// realtime stream. Locked conversations and non-participants are refused.
func (s *ConversationService) PostMessage(ctx context.Context, conversationID, senderUserID, content string) (*models.Message, error) {
	ctx = ensureContext(ctx)

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("conversation service: message content is required")
	}

	conv, err := s.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !s.CanSendMessage(conv) {
		return nil, ErrConversationLocked
	}
	if !s.isParticipant(conv, senderUserID) {
		return nil, ErrNotParticipant
	}

	message := models.Message{
		ConversationID: conv.ID,
		SenderUserID:   &senderUserID,
		Kind:           models.MessageKindUser,
		Content:        content,
	}
	if err := s.db.WithContext(ctx).Create(&message).Error; err != nil {
		return nil, fmt.Errorf("conversation service: create message: %w", err)
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(conv).Update("last_message_at", now).Error; err != nil {
		s.log.Warn("failed to bump last_message_at", zap.String("conversation_id", conv.ID), zap.Error(err))
	}

	s.publish(conv.ID, &message)
	return &message, nil
}

// PostSystemMessage idempotently inserts a system message. A second insert of
// the same content into the same conversation is a no-op, which makes the
// payment verification flow safe to re-run.
func (s *ConversationService) PostSystemMessage(ctx context.Context, conversationID, content string) (*models.Message, error) {
	ctx = ensureContext(ctx)

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("conversation service: message content is required")
	}

	var existing models.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ? AND kind = ? AND content = ?", conversationID, models.MessageKindSystem, content).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("conversation service: check system message: %w", err)
	}

	message := models.Message{
		ConversationID: conversationID,
		Kind:           models.MessageKindSystem,
		Content:        content,
	}
	if err := s.db.WithContext(ctx).Create(&message).Error; err != nil {
		return nil, fmt.Errorf("conversation service: create system message: %w", err)
	}

	s.publish(conversationID, &message)
	return &message, nil
}

// ListMessages returns a conversation's messages in insertion order.
func (s *ConversationService) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	ctx = ensureContext(ctx)

	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("conversation service: list messages: %w", err)
	}
	return messages, nil
}

// ListForUser returns conversations the user participates in, most recent
// activity first.
func (s *ConversationService) ListForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	ctx = ensureContext(ctx)

	var conversations []models.Conversation
	err := s.db.WithContext(ctx).
		Where("guest_user_id = ? OR business_user_id = ?", userID, userID).
		Order("last_message_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, fmt.Errorf("conversation service: list conversations: %w", err)
	}
	return conversations, nil
}

func (s *ConversationService) isParticipant(conv *models.Conversation, userID string) bool {
	if userID == "" {
		return false
	}
	if conv.GuestUserID == userID {
		return true
	}
	return conv.BusinessUserID != nil && *conv.BusinessUserID == userID
}

func (s *ConversationService) publish(conversationID string, message *models.Message) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(realtime.ConversationStream(conversationID), "message.created", message)
}
