package models

import "time"

// Conversation pairs a guest and a business around one confirmed (or
// confirming) offer. Messaging stays locked until the booking commitment fee
// is paid; once unlocked it never locks again.
type Conversation struct {
	BaseModel

	OfferID        string  `gorm:"type:uuid;not null;uniqueIndex" json:"offer_id"`
	GuestUserID    string  `gorm:"type:uuid;not null;index" json:"guest_user_id"`
	BusinessID     *string `gorm:"type:uuid;index" json:"business_id,omitempty"`
	BusinessUserID *string `gorm:"type:uuid" json:"business_user_id,omitempty"`

	IsUnlocked    bool       `gorm:"not null;default:false" json:"is_unlocked"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`

	Messages []Message `gorm:"constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

// Message kinds.
const (
	MessageKindUser   = "user"
	MessageKindSystem = "system"
)

// Message is a single chat entry within a conversation. Ordering is by
// CreatedAt ascending; no reordering is attempted on delivery.
type Message struct {
	BaseModel

	ConversationID string  `gorm:"type:uuid;not null;index" json:"conversation_id"`
	SenderUserID   *string `gorm:"type:uuid" json:"sender_user_id,omitempty"`
	Kind           string  `gorm:"not null;default:user" json:"kind"`
	Content        string  `gorm:"not null" json:"content"`
}
