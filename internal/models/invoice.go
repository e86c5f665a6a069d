package models

import "time"

// Invoice statuses.
const (
	InvoiceStatusDraft   = "draft"
	InvoiceStatusPending = "pending"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusVoid    = "void"
)

// Invoice aggregates a business's billable events for one period. The
// (business_id, period_start, period_end) tuple is the idempotency key for the
// monthly generator; re-running a period reuses the existing row.
type Invoice struct {
	BaseModel

	BusinessID    string `gorm:"type:uuid;not null;index:idx_invoice_business_period,unique" json:"business_id"`
	InvoiceNumber string `gorm:"not null;uniqueIndex" json:"invoice_number"`

	PeriodStart time.Time `gorm:"not null;index:idx_invoice_business_period,unique" json:"period_start"`
	PeriodEnd   time.Time `gorm:"not null;index:idx_invoice_business_period,unique" json:"period_end"`

	Status      string  `gorm:"not null;default:pending" json:"status"`
	TotalAmount float64 `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	GSTAmount   float64 `gorm:"type:decimal(10,2);not null;default:0" json:"gst_amount"`
	Currency    string  `gorm:"size:3" json:"currency"`

	IssuedAt time.Time  `json:"issued_at"`
	PaidAt   *time.Time `json:"paid_at,omitempty"`

	LineItems []InvoiceLineItem `gorm:"constraint:OnDelete:CASCADE" json:"line_items,omitempty"`
}

// InvoiceLineItem is one invoiced billable event. The (invoice_id, offer_id)
// unique index guards against duplicate line items on generator re-runs.
type InvoiceLineItem struct {
	BaseModel

	InvoiceID  string `gorm:"type:uuid;not null;index:idx_line_item_invoice_offer,unique" json:"invoice_id"`
	OfferID    string `gorm:"type:uuid;not null;index:idx_line_item_invoice_offer,unique" json:"offer_id"`
	PropertyID string `gorm:"type:uuid;not null" json:"property_id"`

	Description    string  `json:"description"`
	AdminFeeAmount float64 `gorm:"type:decimal(10,2);not null" json:"admin_fee_amount"`

	CheckInDate        time.Time `json:"check_in_date"`
	CheckOutDate       time.Time `json:"check_out_date"`
	BookingConfirmedAt time.Time `json:"booking_confirmed_at"`
}
