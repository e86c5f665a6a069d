package models

// Fee settlement models for confirmed bookings.
const (
	// CollectGuestAdminFee settles the admin fee immediately via the guest's
	// booking commitment fee payment.
	CollectGuestAdminFee = "guest_admin_fee"
	// CollectBusinessInvoice defers the admin fee onto a monthly invoice
	// issued to the business.
	CollectBusinessInvoice = "business_invoice"
)

// Business owns properties and decides how its admin fees are settled.
type Business struct {
	BaseModel

	Name                    string `gorm:"not null" json:"name"`
	OwnerUserID             string `gorm:"type:uuid;index" json:"owner_user_id"`
	ContactEmail            string `gorm:"not null" json:"contact_email"`
	Country                 string `gorm:"size:2;not null" json:"country"`
	PaymentCollectionMethod string `gorm:"not null;default:guest_admin_fee" json:"payment_collection_method"`

	Properties []Property `gorm:"constraint:OnDelete:CASCADE" json:"properties,omitempty"`
}
