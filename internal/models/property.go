package models

// Property is an accommodation listing owned by a business.
type Property struct {
	BaseModel

	BusinessID string `gorm:"type:uuid;not null;index" json:"business_id"`
	Name       string `gorm:"not null" json:"name"`
	City       string `gorm:"not null;index" json:"city"`
	Country    string `gorm:"size:2;not null" json:"country"`
	Address    string `json:"address"`
	Currency   string `gorm:"size:3;not null;default:NZD" json:"currency"`

	Business *Business `json:"business,omitempty"`
	Rooms    []Room    `gorm:"constraint:OnDelete:CASCADE" json:"rooms,omitempty"`
}

// Room is an individually offerable unit within a property.
type Room struct {
	BaseModel

	PropertyID  string  `gorm:"type:uuid;not null;index" json:"property_id"`
	Name        string  `gorm:"not null" json:"name"`
	NightlyRate float64 `gorm:"type:decimal(10,2)" json:"nightly_rate"`
	MaxGuests   int     `gorm:"default:2" json:"max_guests"`
}
