package models

import "time"

// BillableEvent records one admin fee owed by a business under the
// business_invoice settlement model. At most one event exists per offer; the
// unique index on OfferID is the idempotency guard for creation.
type BillableEvent struct {
	BaseModel

	BusinessID string `gorm:"type:uuid;not null;index" json:"business_id"`
	OfferID    string `gorm:"type:uuid;not null;uniqueIndex" json:"offer_id"`
	PropertyID string `gorm:"type:uuid;not null" json:"property_id"`

	BookingConfirmedAt time.Time `gorm:"not null;index" json:"booking_confirmed_at"`
	CheckInDate        time.Time `json:"check_in_date"`
	CheckOutDate       time.Time `json:"check_out_date"`

	AdminFeeAmount float64 `gorm:"type:decimal(10,2);not null" json:"admin_fee_amount"`
	Currency       string  `gorm:"size:3;not null" json:"currency"`

	// InvoicedInvoiceID is null while the event awaits the next invoice run.
	InvoicedInvoiceID *string `gorm:"type:uuid;index" json:"invoiced_invoice_id,omitempty"`
}
