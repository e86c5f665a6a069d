package payments

import "context"

// Session payment states reported by the processor.
const (
	StatusPaid   = "paid"
	StatusUnpaid = "unpaid"
)

// Metadata key carrying the offer an open checkout session belongs to.
const MetadataOfferID = "offer_id"

// Session is a checkout session held by the external payment processor.
type Session struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	PaymentStatus string            `json:"payment_status"`
	AmountTotal   float64           `json:"amount_total"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
}

// OfferID returns the offer id embedded in the session metadata, if any.
func (s *Session) OfferID() string {
	if s == nil {
		return ""
	}
	return s.Metadata[MetadataOfferID]
}

// CreateSessionParams describes the checkout session to open.
type CreateSessionParams struct {
	OfferID     string
	Amount      float64
	Currency    string
	Description string
	SuccessURL  string
	CancelURL   string
}

// Provider abstracts the external payment processor's checkout API.
type Provider interface {
	CreateSession(ctx context.Context, params CreateSessionParams) (*Session, error)
	GetSession(ctx context.Context, sessionID string) (*Session, error)
}
