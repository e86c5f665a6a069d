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
	"github.com/carlfalc/offer-direct-stays/internal/payments"
	"github.com/carlfalc/offer-direct-stays/pkg/logger"
	"github.com/carlfalc/offer-direct-stays/pkg/metrics"
)

// bcfByCountry fixes the booking commitment fee per property country.
var bcfByCountry = map[string]struct {
	Amount   float64
	Currency string
}{
	"NZ": {Amount: 8.99, Currency: "NZD"},
	"AU": {Amount: 12.00, Currency: "AUD"},
}

// BookingCommitmentFee returns the fixed fee for a property country. Unknown
// countries fall back to the NZ fee.
func BookingCommitmentFee(country string) (float64, string) {
	fee, ok := bcfByCountry[strings.ToUpper(strings.TrimSpace(country))]
	if !ok {
		fee = bcfByCountry["NZ"]
	}
	return fee.Amount, fee.Currency
}

// PaymentOption customises PaymentService behaviour.
type PaymentOption func(*PaymentService)

// WithPaymentClock injects a custom clock primarily for testing.
func WithPaymentClock(clock func() time.Time) PaymentOption {
	return func(s *PaymentService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithCheckoutURLs sets the redirect targets embedded in checkout sessions.
func WithCheckoutURLs(successURL, cancelURL string) PaymentOption {
	return func(s *PaymentService) {
		s.successURL = successURL
		s.cancelURL = cancelURL
	}
}

// WithPaymentAudit attaches an audit trail for settlement events.
func WithPaymentAudit(audit *AuditService) PaymentOption {
	return func(s *PaymentService) {
		s.audit = audit
	}
}

// PaymentService drives the booking commitment fee flow: opening checkout
// sessions for accepted offers and verifying paid sessions into confirmed
// bookings with their follow-on records.
type PaymentService struct {
	db            *gorm.DB
	provider      payments.Provider
	conversations *ConversationService
	audit         *AuditService
	successURL    string
	cancelURL     string
	now           func() time.Time
	log           *zap.Logger
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(db *gorm.DB, provider payments.Provider, conversations *ConversationService, opts ...PaymentOption) (*PaymentService, error) {
	if db == nil {
		return nil, errors.New("payment service: db is required")
	}
	if provider == nil {
		return nil, errors.New("payment service: provider is required")
	}
	if conversations == nil {
		return nil, errors.New("payment service: conversation service is required")
	}

	service := &PaymentService{
		db:            db,
		provider:      provider,
		conversations: conversations,
		now:           time.Now,
		log:           logger.WithModule("payments"),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// CreateCheckoutSession opens a checkout session for the booking commitment
// fee of an accepted offer. Only the offer's guest may start checkout.
func (s *PaymentService) CreateCheckoutSession(ctx context.Context, offerID, guestUserID string) (*payments.Session, error) {
	ctx = ensureContext(ctx)

	var offer models.Offer
	if err := s.db.WithContext(ctx).Preload("Property.Business").First(&offer, "id = ?", offerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("payment service: find offer: %w", err)
	}

	if offer.GuestUserID != guestUserID {
		return nil, ErrForbidden
	}
	if offer.NormalizedStatus() != models.OfferStatusAccepted {
		return nil, ErrInvalidTransition
	}

	country := ""
	if offer.Property != nil {
		country = offer.Property.Country
	}
	amount, currency := BookingCommitmentFee(country)

	if offer.BCFAmount != amount || offer.BCFCurrency != currency {
		err := s.db.WithContext(ctx).Model(&offer).
			Updates(map[string]any{"bcf_amount": amount, "bcf_currency": currency}).Error
		if err != nil {
			return nil, fmt.Errorf("payment service: record fee: %w", err)
		}
	}

	session, err := s.provider.CreateSession(ctx, payments.CreateSessionParams{
		OfferID:     offer.ID,
		Amount:      amount,
		Currency:    currency,
		Description: fmt.Sprintf("Booking commitment fee for offer %s", offer.ID),
		SuccessURL:  s.successURL,
		CancelURL:   s.cancelURL,
	})
	if err != nil {
		return nil, fmt.Errorf("payment service: create session: %w", err)
	}

	s.auditLog(ctx, guestUserID, "payment.checkout_started", offer.ID, map[string]any{
		"session_id": session.ID,
		"amount":     amount,
		"currency":   currency,
	})

	return session, nil
}

// VerifyPayment confirms a booking from a paid checkout session. The offer
// update is the commit point: once the processor reports the session paid and
// the offer flips to confirmed, failures in the follow-on records (billable
// event, conversation unlock, system message) are logged and surfaced to
// operators but never unwind the booking. Each follow-on write is idempotent,
// so re-running verification repairs a partial run.
func (s *PaymentService) VerifyPayment(ctx context.Context, offerID, guestUserID, sessionID string) (*models.Offer, error) {
	ctx = ensureContext(ctx)

	session, err := s.provider.GetSession(ctx, sessionID)
	if err != nil {
		metrics.PaymentsVerified.WithLabelValues("provider_error").Inc()
		return nil, fmt.Errorf("payment service: fetch session: %w", err)
	}

	if session.PaymentStatus != payments.StatusPaid {
		metrics.PaymentsVerified.WithLabelValues("unpaid").Inc()
		return nil, ErrPaymentNotCompleted
	}
	if session.OfferID() != offerID {
		metrics.PaymentsVerified.WithLabelValues("mismatch").Inc()
		return nil, ErrSessionMismatch
	}

	var offer models.Offer
	if err := s.db.WithContext(ctx).Preload("Property.Business").First(&offer, "id = ?", offerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.PaymentsVerified.WithLabelValues("not_found").Inc()
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("payment service: find offer: %w", err)
	}
	if offer.GuestUserID != guestUserID {
		metrics.PaymentsVerified.WithLabelValues("forbidden").Inc()
		return nil, ErrForbidden
	}

	settlement := models.CollectGuestAdminFee
	var business *models.Business
	if offer.Property != nil && offer.Property.Business != nil {
		business = offer.Property.Business
		settlement = business.PaymentCollectionMethod
	}

	now := s.now()
	updates := map[string]any{
		"status":             models.OfferStatusConfirmed,
		"bcf_payment_status": models.BCFPaymentPaid,
		"bcf_paid_at":        now,
		"confirmed_at":       now,
		"fee_settled_via":    settlement,
	}
	if settlement == models.CollectGuestAdminFee {
		// Under guest collection the fee is settled inside the commitment
		// fee payment itself.
		updates["fee_amount"] = session.AmountTotal
		updates["fee_currency"] = strings.ToUpper(session.Currency)
		updates["fee_payment_status"] = models.BCFPaymentPaid
	}

	result := s.db.WithContext(ctx).
		Model(&models.Offer{}).
		Where("id = ? AND guest_user_id = ? AND status = ?", offer.ID, guestUserID, models.OfferStatusAccepted).
		Updates(updates)
	if result.Error != nil {
		metrics.PaymentsVerified.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("payment service: confirm offer: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// Either already confirmed by an earlier verification, or the offer
		// never reached accepted. Re-running a confirmed offer just repairs
		// the follow-on records.
		if offer.NormalizedStatus() != models.OfferStatusConfirmed {
			metrics.PaymentsVerified.WithLabelValues("invalid_state").Inc()
			return nil, ErrInvalidTransition
		}
	}

	metrics.PaymentsVerified.WithLabelValues("ok").Inc()
	metrics.OfferTransitions.WithLabelValues(models.OfferStatusConfirmed, "ok").Inc()

	s.recordBillableEvent(ctx, &offer, business, settlement, now)
	s.unlockConversation(ctx, &offer, business)

	s.auditLog(ctx, guestUserID, "payment.verified", offer.ID, map[string]any{
		"session_id": sessionID,
		"settlement": settlement,
	})

	return s.reload(ctx, offer.ID)
}

// recordBillableEvent queues the admin fee for monthly invoicing when the
// business settles via invoice. Duplicate creation is swallowed.
func (s *PaymentService) recordBillableEvent(ctx context.Context, offer *models.Offer, business *models.Business, settlement string, confirmedAt time.Time) {
	if settlement != models.CollectBusinessInvoice {
		return
	}
	if business == nil {
		s.log.Error("cannot record billable event without business",
			zap.String("offer_id", offer.ID))
		return
	}

	feeAmount, feeCurrency := BookingCommitmentFee(business.Country)
	event := models.BillableEvent{
		BusinessID:         business.ID,
		OfferID:            offer.ID,
		PropertyID:         offer.PropertyID,
		BookingConfirmedAt: confirmedAt,
		CheckInDate:        offer.CheckInDate,
		CheckOutDate:       offer.CheckOutDate,
		AdminFeeAmount:     feeAmount,
		Currency:           feeCurrency,
	}
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		if isUniqueConstraintError(err) {
			return
		}
		s.log.Error("billable event write failed after paid confirmation",
			zap.String("offer_id", offer.ID), zap.Error(err))
	}
}

// unlockConversation ensures the offer's conversation exists and is unlocked,
// then drops the one-time confirmation system message.
func (s *PaymentService) unlockConversation(ctx context.Context, offer *models.Offer, business *models.Business) {
	params := EnsureParams{
		OfferID:     offer.ID,
		GuestUserID: offer.GuestUserID,
		Unlock:      true,
	}
	if business != nil {
		params.BusinessID = business.ID
		params.BusinessUserID = business.OwnerUserID
	}

	conv, err := s.conversations.Ensure(ctx, params)
	if err != nil {
		s.log.Error("conversation unlock failed after paid confirmation",
			zap.String("offer_id", offer.ID), zap.Error(err))
		return
	}

	if _, err := s.conversations.PostSystemMessage(ctx, conv.ID, SystemMessageBookingConfirmed); err != nil {
		s.log.Error("confirmation system message failed",
			zap.String("conversation_id", conv.ID), zap.Error(err))
	}
}

func (s *PaymentService) reload(ctx context.Context, offerID string) (*models.Offer, error) {
	var offer models.Offer
	if err := s.db.WithContext(ctx).Preload("Property").First(&offer, "id = ?", offerID).Error; err != nil {
		return nil, fmt.Errorf("payment service: reload offer: %w", err)
	}
	return &offer, nil
}

func (s *PaymentService) auditLog(ctx context.Context, userID, action, offerID string, metadata map[string]any) {
	if s.audit == nil {
		return
	}

	entry := AuditEntry{Action: action, Resource: offerID, Result: "success", Metadata: metadata}
	if strings.TrimSpace(userID) != "" {
		entry.UserID = &userID
	}
	if err := s.audit.Log(ctx, entry); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}
