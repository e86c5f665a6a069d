package models

import "time"

// Offer statuses. "pending" is a legacy alias for "submitted" accepted on
// input and normalised before transition checks; it is never written back.
const (
	OfferStatusSubmitted = "submitted"
	OfferStatusPending   = "pending"
	OfferStatusAccepted  = "accepted"
	OfferStatusCountered = "countered"
	OfferStatusDeclined  = "declined"
	OfferStatusCancelled = "cancelled"
	OfferStatusConfirmed = "confirmed"
)

// Booking commitment fee payment states.
const (
	BCFPaymentPending = "pending"
	BCFPaymentPaid    = "paid"
)

// Offer bounds enforced at submission.
const (
	MinOfferAmount = 20.0
	MaxOfferAmount = 5000.0
)

// Offer represents one guest's proposed nightly rate for a property or room.
type Offer struct {
	BaseModel

	GuestUserID string  `gorm:"type:uuid;not null;index" json:"guest_user_id"`
	PropertyID  string  `gorm:"type:uuid;not null;index" json:"property_id"`
	RoomID      *string `gorm:"type:uuid" json:"room_id,omitempty"`

	// City is copied from the property at submission so the per-city offer
	// throttle can be evaluated without a join.
	City string `gorm:"not null;index" json:"city"`

	OfferAmount   float64  `gorm:"type:decimal(10,2);not null" json:"offer_amount"`
	CounterAmount *float64 `gorm:"type:decimal(10,2)" json:"counter_amount,omitempty"`
	Currency      string   `gorm:"size:3;not null" json:"currency"`
	Status        string   `gorm:"not null;default:submitted;index" json:"status"`

	Adults       int       `gorm:"not null" json:"adults"`
	Children     int       `gorm:"not null;default:0" json:"children"`
	CheckInDate  time.Time `gorm:"not null" json:"check_in_date"`
	CheckOutDate time.Time `gorm:"not null" json:"check_out_date"`
	GuestNotes   string    `json:"guest_notes,omitempty"`

	// Response tokens grant time-limited unauthenticated access from emailed
	// links so a business can act on the offer without signing in.
	ResponseToken          *string    `gorm:"index" json:"-"`
	ResponseTokenExpiresAt *time.Time `json:"-"`

	// Booking commitment fee, fixed per property country.
	BCFAmount        float64    `gorm:"type:decimal(10,2)" json:"bcf_amount"`
	BCFCurrency      string     `gorm:"size:3" json:"bcf_currency"`
	BCFPaymentStatus string     `gorm:"not null;default:pending" json:"bcf_payment_status"`
	BCFPaidAt        *time.Time `json:"bcf_paid_at,omitempty"`

	// Admin fee owed to the platform and how it is settled.
	FeeAmount        float64 `gorm:"type:decimal(10,2)" json:"fee_amount"`
	FeeCurrency      string  `gorm:"size:3" json:"fee_currency"`
	FeeSettledVia    string  `json:"fee_settled_via,omitempty"`
	FeePaymentStatus string  `gorm:"default:pending" json:"fee_payment_status"`

	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	InvoiceID   *string    `gorm:"type:uuid" json:"invoice_id,omitempty"`

	Property *Property `json:"property,omitempty"`
}

// NormalizedStatus maps the legacy "pending" alias onto "submitted".
func (o *Offer) NormalizedStatus() string {
	if o.Status == OfferStatusPending {
		return OfferStatusSubmitted
	}
	return o.Status
}

// IsTerminal reports whether the offer can no longer change status.
func (o *Offer) IsTerminal() bool {
	switch o.NormalizedStatus() {
	case OfferStatusDeclined, OfferStatusCancelled, OfferStatusConfirmed:
		return true
	}
	return false
}

// ActiveOfferStatuses lists the statuses counted against the per-city
// submission throttle.
func ActiveOfferStatuses() []string {
	return []string{OfferStatusSubmitted, OfferStatusPending, OfferStatusAccepted, OfferStatusCountered}
}
